package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"go.bug.st/serial"
)

// openSource opens the configured input and returns a stream of raw NMEA
// bytes. The caller owns the closer.
func openSource(ctx context.Context, cfg Config) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", "serial":
		return openSerial(cfg.Device, cfg.Baud)
	case "tcp":
		return openTCP(ctx, cfg.Addr)
	case "file":
		return openFile(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func openSerial(device string, baud int) (io.ReadCloser, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return nil, fmt.Errorf("serial auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
		}
	}
	if baud == 0 {
		baud = 4800
	}
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s at %d baud: %w", device, baud, err)
	}
	return port, nil
}

func openTCP(ctx context.Context, addr string) (io.ReadCloser, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("tcp source needs an address")
	}
	d := &net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func openFile(path string) (io.ReadCloser, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file source needs a path")
	}
	return os.Open(path)
}

func autoDetectDevice() string {
	candidates := make([]string, 0, 20)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
