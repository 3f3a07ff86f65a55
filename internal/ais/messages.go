package ais

import "fmt"

// Message is one decoded AIS message. Concrete variants embed MessageHeader.
type Message interface {
	MessageType() uint8
	SourceMMSI() uint32
}

// MessageHeader carries the fields every AIS message starts with.
type MessageHeader struct {
	MsgType uint8
	Repeat  uint8
	MMSI    uint32
}

func (h MessageHeader) MessageType() uint8 { return h.MsgType }
func (h MessageHeader) SourceMMSI() uint32 { return h.MMSI }

// Scaling sentinels from ITU-R M.1371.
const (
	sogNotAvailable     = 1023
	cogNotAvailable     = 3600
	headingNotAvailable = 511
	lonNotAvailable     = 181 * 600000
	latNotAvailable     = 91 * 600000
)

// PositionReport is a class A position report (message types 1, 2 and 3).
type PositionReport struct {
	MessageHeader
	NavStatus    uint8
	RateOfTurn   int8 // raw ROTais value, -128 = not available
	SpeedKt      float64
	HasSpeed     bool
	PosAccuracy  bool
	LatDeg       float64
	LonDeg       float64
	HasPosition  bool
	CourseDeg    float64
	HasCourse    bool
	HeadingDeg   uint16
	HasHeading   bool
	TimestampSec uint8
	RAIM         bool
}

func decodePositionReport(h MessageHeader, p *Payload) (Message, error) {
	m := &PositionReport{MessageHeader: h}

	ns, err := p.ReadUInt(38, 4)
	if err != nil {
		return nil, err
	}
	m.NavStatus = uint8(ns)
	rot, err := p.ReadInt(42, 8)
	if err != nil {
		return nil, err
	}
	m.RateOfTurn = int8(rot)

	if err := decodeSogPos(p, 50, &m.SpeedKt, &m.HasSpeed, &m.LatDeg, &m.LonDeg, &m.HasPosition); err != nil {
		return nil, err
	}
	if acc, err := p.ReadBool(60, 1); err == nil {
		m.PosAccuracy = acc
	}
	if err := decodeCogHeading(p, 116, &m.CourseDeg, &m.HasCourse, &m.HeadingDeg, &m.HasHeading); err != nil {
		return nil, err
	}
	ts, err := p.ReadUInt(137, 6)
	if err != nil {
		return nil, err
	}
	m.TimestampSec = uint8(ts)
	if raim, err := p.ReadBool(148, 1); err == nil {
		m.RAIM = raim
	}
	return m, nil
}

// ClassBPositionReport is a standard class B position report (message 18).
type ClassBPositionReport struct {
	MessageHeader
	SpeedKt      float64
	HasSpeed     bool
	LatDeg       float64
	LonDeg       float64
	HasPosition  bool
	CourseDeg    float64
	HasCourse    bool
	HeadingDeg   uint16
	HasHeading   bool
	TimestampSec uint8
}

func decodeClassBPositionReport(h MessageHeader, p *Payload) (Message, error) {
	m := &ClassBPositionReport{MessageHeader: h}
	if err := decodeSogPos(p, 46, &m.SpeedKt, &m.HasSpeed, &m.LatDeg, &m.LonDeg, &m.HasPosition); err != nil {
		return nil, err
	}
	if err := decodeCogHeading(p, 112, &m.CourseDeg, &m.HasCourse, &m.HeadingDeg, &m.HasHeading); err != nil {
		return nil, err
	}
	ts, err := p.ReadUInt(133, 6)
	if err != nil {
		return nil, err
	}
	m.TimestampSec = uint8(ts)
	return m, nil
}

// decodeSogPos reads the SOG/accuracy/lon/lat group that messages 1-3 and 18
// share, starting at the SOG offset.
func decodeSogPos(p *Payload, sogBit int, speedKt *float64, hasSpeed *bool, latDeg, lonDeg *float64, hasPos *bool) error {
	sog, err := p.ReadUInt(sogBit, 10)
	if err != nil {
		return err
	}
	if sog != sogNotAvailable {
		*speedKt = float64(sog) / 10
		*hasSpeed = true
	}
	lon, err := p.ReadInt(sogBit+11, 28)
	if err != nil {
		return err
	}
	lat, err := p.ReadInt(sogBit+39, 27)
	if err != nil {
		return err
	}
	if lon != lonNotAvailable && lat != latNotAvailable {
		*lonDeg = float64(lon) / 600000
		*latDeg = float64(lat) / 600000
		*hasPos = true
	}
	return nil
}

// decodeCogHeading reads the COG/heading pair shared by position reports.
func decodeCogHeading(p *Payload, cogBit int, courseDeg *float64, hasCourse *bool, headingDeg *uint16, hasHeading *bool) error {
	cog, err := p.ReadUInt(cogBit, 12)
	if err != nil {
		return err
	}
	if cog != cogNotAvailable {
		*courseDeg = float64(cog) / 10
		*hasCourse = true
	}
	hdg, err := p.ReadUInt(cogBit+12, 9)
	if err != nil {
		return err
	}
	if hdg != headingNotAvailable {
		*headingDeg = uint16(hdg)
		*hasHeading = true
	}
	return nil
}

// StaticAndVoyageData is the class A static and voyage message (type 5).
type StaticAndVoyageData struct {
	MessageHeader
	AISVersion  uint8
	IMONumber   uint32
	CallSign    string
	Name        string
	ShipType    uint8
	DimToBowM   uint16
	DimToSternM uint16
	DimToPortM  uint8
	DimToStbdM  uint8
	ETAMonth    uint8
	ETADay      uint8
	ETAHour     uint8
	ETAMinute   uint8
	DraughtM    float64
	Destination string
}

func decodeStaticAndVoyageData(h MessageHeader, p *Payload) (Message, error) {
	m := &StaticAndVoyageData{MessageHeader: h}

	v, err := p.ReadUInt(38, 2)
	if err != nil {
		return nil, err
	}
	m.AISVersion = uint8(v)
	imo, err := p.ReadUInt(40, 30)
	if err != nil {
		return nil, err
	}
	m.IMONumber = uint32(imo)
	if m.CallSign, err = p.ReadString(70, 42); err != nil {
		return nil, err
	}
	if m.Name, err = p.ReadString(112, 120); err != nil {
		return nil, err
	}
	st, err := p.ReadUInt(232, 8)
	if err != nil {
		return nil, err
	}
	m.ShipType = uint8(st)
	if err := decodeDimensions(p, 240, &m.DimToBowM, &m.DimToSternM, &m.DimToPortM, &m.DimToStbdM); err != nil {
		return nil, err
	}

	eta, err := p.ReadUInt(274, 20)
	if err != nil {
		return nil, err
	}
	m.ETAMonth = uint8(eta >> 16)
	m.ETADay = uint8(eta >> 11 & 0x1F)
	m.ETAHour = uint8(eta >> 6 & 0x1F)
	m.ETAMinute = uint8(eta & 0x3F)

	draught, err := p.ReadUInt(294, 8)
	if err != nil {
		return nil, err
	}
	m.DraughtM = float64(draught) / 10

	// Some transponders truncate the destination; take what is there.
	destBits := p.Len() - 302
	if destBits > 120 {
		destBits = 120
	}
	destBits -= destBits % 6
	if destBits > 0 {
		if m.Destination, err = p.ReadString(302, destBits); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeDimensions(p *Payload, startBit int, bow, stern *uint16, port, stbd *uint8) error {
	a, err := p.ReadUInt(startBit, 9)
	if err != nil {
		return err
	}
	b, err := p.ReadUInt(startBit+9, 9)
	if err != nil {
		return err
	}
	c, err := p.ReadUInt(startBit+18, 6)
	if err != nil {
		return err
	}
	d, err := p.ReadUInt(startBit+24, 6)
	if err != nil {
		return err
	}
	*bow, *stern = uint16(a), uint16(b)
	*port, *stbd = uint8(c), uint8(d)
	return nil
}

// SafetyBroadcast is the safety-related broadcast text message (type 14).
type SafetyBroadcast struct {
	MessageHeader
	Text string
}

func decodeSafetyBroadcast(h MessageHeader, p *Payload) (Message, error) {
	m := &SafetyBroadcast{MessageHeader: h}
	textBits := p.Len() - 40
	textBits -= textBits % 6
	if textBits <= 0 {
		return nil, fmt.Errorf("ais: safety broadcast without text")
	}
	var err error
	if m.Text, err = p.ReadString(40, textBits); err != nil {
		return nil, err
	}
	return m, nil
}

// BinaryBroadcast is the application-specific broadcast message (type 8).
// The application payload is kept as raw bits for downstream decoders.
type BinaryBroadcast struct {
	MessageHeader
	DAC     uint16
	FID     uint8
	DataLen int // application data length in bits
	data    *Payload
	dataOff int
}

// Data reads an unsigned field out of the application payload, with offsets
// relative to the start of the application data.
func (m *BinaryBroadcast) Data(startBit, bitLength int) (uint64, error) {
	return m.data.ReadUInt(m.dataOff+startBit, bitLength)
}

func decodeBinaryBroadcast(h MessageHeader, p *Payload) (Message, error) {
	m := &BinaryBroadcast{MessageHeader: h, data: p, dataOff: 56}

	dac, err := p.ReadUInt(40, 10)
	if err != nil {
		return nil, err
	}
	fid, err := p.ReadUInt(50, 6)
	if err != nil {
		return nil, err
	}
	m.DAC = uint16(dac)
	m.FID = uint8(fid)
	m.DataLen = p.Len() - 56
	if m.DataLen < 0 {
		m.DataLen = 0
	}
	return m, nil
}

// StaticDataReport is the class B static data report (type 24, parts A/B).
type StaticDataReport struct {
	MessageHeader
	PartNumber  uint8
	Name        string // part A
	ShipType    uint8  // part B
	VendorID    string // part B
	CallSign    string // part B
	DimToBowM   uint16
	DimToSternM uint16
	DimToPortM  uint8
	DimToStbdM  uint8
}

func decodeStaticDataReport(h MessageHeader, p *Payload) (Message, error) {
	m := &StaticDataReport{MessageHeader: h}

	part, err := p.ReadUInt(38, 2)
	if err != nil {
		return nil, err
	}
	m.PartNumber = uint8(part)
	switch m.PartNumber {
	case 0:
		if m.Name, err = p.ReadString(40, 120); err != nil {
			return nil, err
		}
	case 1:
		st, err := p.ReadUInt(40, 8)
		if err != nil {
			return nil, err
		}
		m.ShipType = uint8(st)
		if m.VendorID, err = p.ReadString(48, 42); err != nil {
			return nil, err
		}
		if m.CallSign, err = p.ReadString(90, 42); err != nil {
			return nil, err
		}
		if err := decodeDimensions(p, 132, &m.DimToBowM, &m.DimToSternM, &m.DimToPortM, &m.DimToStbdM); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("ais: static data report part %d", m.PartNumber)
	}
	return m, nil
}

type decodeFunc func(MessageHeader, *Payload) (Message, error)

// messageDecoders maps the AIS message type to its decoder. Initialized once,
// read-only afterwards.
var messageDecoders = map[uint8]decodeFunc{
	1:  decodePositionReport,
	2:  decodePositionReport,
	3:  decodePositionReport,
	5:  decodeStaticAndVoyageData,
	8:  decodeBinaryBroadcast,
	14: decodeSafetyBroadcast,
	18: decodeClassBPositionReport,
	24: decodeStaticDataReport,
}

// ErrUnsupportedType marks message types this package has no decoder for.
// Callers count these rather than treating them as stream errors.
var ErrUnsupportedType = fmt.Errorf("ais: unsupported message type")

// Decode dispatches a reassembled payload to the decoder for its message
// type.
func Decode(p *Payload) (Message, error) {
	t, err := p.ReadUInt(0, 6)
	if err != nil {
		return nil, err
	}
	repeat, err := p.ReadUInt(6, 2)
	if err != nil {
		return nil, err
	}
	mmsi, err := p.ReadUInt(8, 30)
	if err != nil {
		return nil, err
	}
	h := MessageHeader{MsgType: uint8(t), Repeat: uint8(repeat), MMSI: uint32(mmsi)}

	dec, ok := messageDecoders[h.MsgType]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, h.MsgType)
	}
	return dec(h, p)
}
