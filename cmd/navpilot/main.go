package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"navpilot/internal/ais"
	"navpilot/internal/autopilot"
	"navpilot/internal/cache"
	"navpilot/internal/config"
	"navpilot/internal/feed"
	"navpilot/internal/stream"
)

func setupLogging(cfg config.LogConfig) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.Path == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./navpilot.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	setupLogging(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("navpilot starting")

	sentences := cache.New()
	targets := ais.NewTargetStore(ais.TargetStoreConfig{
		MaxTargets: cfg.Targets.Max,
		TTL:        cfg.Targets.TTL.Std(),
	})

	publisher := feed.New(feed.Config{
		Broker:         cfg.Feed.Broker,
		TLS:            cfg.Feed.TLS,
		Auth:           cfg.Feed.Auth,
		TopicPrefix:    cfg.Feed.TopicPrefix,
		ClientID:       cfg.Feed.ClientID,
		TargetInterval: cfg.Feed.TargetInterval.Std(),
	}, targets, sentences)
	if err := publisher.Start(ctx); err != nil {
		// The broker is an optional consumer; run without it.
		log.Printf("mqtt feed unavailable: %v", err)
	}
	defer publisher.Close()

	reader := stream.New(stream.Config{
		Source:      cfg.Input.Source,
		Device:      cfg.Input.Device,
		Baud:        cfg.Input.Baud,
		Addr:        cfg.Input.Addr,
		Path:        cfg.Input.Path,
		ReplayDelay: cfg.Input.ReplayDelay.Std(),
		LoopFile:    cfg.Input.Loop,
		BufferBytes: cfg.Input.BufferBytes,
		OnAccepted:  publisher.PublishLine,
	}, sentences, targets)
	if err := reader.Start(ctx); err != nil {
		log.Fatalf("input reader failed: %v", err)
	}
	defer reader.Close()

	if cfg.Autopilot.Enable {
		sink, closeSink, err := buildSink(cfg.Output)
		if err != nil {
			log.Fatalf("output sink failed: %v", err)
		}
		defer closeSink()

		pilot := autopilot.New(autopilot.Config{
			Interval:       cfg.Autopilot.Interval.Std(),
			Talker:         cfg.Autopilot.Talker,
			ArrivalRadiusM: cfg.Autopilot.ArrivalRadiusM,
		}, sentences, sink)
		pilot.Start()
		defer pilot.Stop()
		log.Printf("autopilot running interval=%s output=%s", cfg.Autopilot.Interval.Std(), cfg.Output.Mode)
	}

	<-ctx.Done()
	log.Printf("navpilot stopping")
}

func buildSink(cfg config.OutputConfig) (autopilot.Sink, func(), error) {
	switch cfg.Mode {
	case "udp":
		sink, err := stream.NewUDPSink(cfg.Dest)
		if err != nil {
			return nil, nil, err
		}
		return sink, func() { _ = sink.Close() }, nil
	default:
		return stream.NewBatchWriter(os.Stdout), func() {}, nil
	}
}
