package source

import (
	"bufio"
	"encoding/binary"
	"fmt"
)

// Coordinator serial protocol: byte-stuffed frames with an XOR frame
// check sequence, carrying one message each.
//
//	frame   = FLAG escaped(content FCS) FLAG
//	content = msgType(1) ieee(8, big-endian) endpoint(1) cluster(2, LE) body
//	FCS     = XOR of all content bytes
const (
	frameFlag   = 0x7E
	frameEscape = 0x7D
	escapeXOR   = 0x20

	msgClusterCommand  = 0x01
	msgAttributeReport = 0x02
	msgWriteAttributes = 0x03

	frameHeaderSize = 12 // type(1) + ieee(8) + endpoint(1) + cluster(2)
	maxFrameSize    = 256
)

// message is one decoded frame payload.
type message struct {
	Type     uint8
	IEEE     [8]byte
	Endpoint uint8
	Cluster  uint16
	Body     []byte
}

func fcs(content []byte) uint8 {
	var x uint8
	for _, b := range content {
		x ^= b
	}
	return x
}

// encodeFrame wraps one message into a wire frame.
func encodeFrame(m *message) []byte {
	content := make([]byte, 0, frameHeaderSize+len(m.Body)+1)
	content = append(content, m.Type)
	content = append(content, m.IEEE[:]...)
	content = append(content, m.Endpoint)
	content = binary.LittleEndian.AppendUint16(content, m.Cluster)
	content = append(content, m.Body...)
	content = append(content, fcs(content))

	out := make([]byte, 0, len(content)+4)
	out = append(out, frameFlag)
	for _, b := range content {
		if b == frameFlag || b == frameEscape {
			out = append(out, frameEscape, b^escapeXOR)
		} else {
			out = append(out, b)
		}
	}
	return append(out, frameFlag)
}

// readFrame reads and unstuffs the next frame from r, blocking until a
// complete frame arrives. Empty flag-to-flag gaps are skipped.
func readFrame(r *bufio.Reader) (*message, error) {
	// Resynchronize on the next flag.
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == frameFlag {
			break
		}
	}

	content := make([]byte, 0, 32)
	escaped := false
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == frameFlag {
			if escaped {
				return nil, fmt.Errorf("source: escape before frame flag")
			}
			if len(content) == 0 {
				continue // back-to-back flags between frames
			}
			break
		}
		if escaped {
			content = append(content, b^escapeXOR)
			escaped = false
			continue
		}
		if b == frameEscape {
			escaped = true
			continue
		}
		content = append(content, b)
		if len(content) > maxFrameSize {
			return nil, fmt.Errorf("source: frame exceeds %d bytes", maxFrameSize)
		}
	}

	return decodeContent(content)
}

func decodeContent(content []byte) (*message, error) {
	if len(content) < frameHeaderSize+1 {
		return nil, fmt.Errorf("source: frame too short: %d bytes", len(content))
	}
	payload, check := content[:len(content)-1], content[len(content)-1]
	if got := fcs(payload); got != check {
		return nil, fmt.Errorf("source: FCS mismatch: got 0x%02X, want 0x%02X", check, got)
	}

	m := &message{Type: payload[0]}
	copy(m.IEEE[:], payload[1:9])
	m.Endpoint = payload[9]
	m.Cluster = binary.LittleEndian.Uint16(payload[10:12])
	m.Body = payload[12:]
	return m, nil
}

// decodeClusterCommand extracts the command from a msgClusterCommand body.
func decodeClusterCommand(m *message) (ClusterCommandEvent, error) {
	if len(m.Body) < 1 {
		return ClusterCommandEvent{}, fmt.Errorf("source: cluster command without command ID")
	}
	return ClusterCommandEvent{
		IEEE:     formatIEEE(m.IEEE),
		Endpoint: m.Endpoint,
		Cluster:  m.Cluster,
		Command:  m.Body[0],
		Payload:  m.Body[1:],
	}, nil
}

// decodeAttributeReport extracts one report from a msgAttributeReport body.
func decodeAttributeReport(m *message) (AttributeReportEvent, error) {
	if len(m.Body) < 3 {
		return AttributeReportEvent{}, fmt.Errorf("source: attribute report too short: %d bytes", len(m.Body))
	}
	return AttributeReportEvent{
		IEEE:     formatIEEE(m.IEEE),
		Endpoint: m.Endpoint,
		Cluster:  m.Cluster,
		AttrID:   binary.LittleEndian.Uint16(m.Body[0:2]),
		DataType: m.Body[2],
		Value:    m.Body[3:],
	}, nil
}

// encodeWriteAttributes builds the outgoing frame for a write request.
func encodeWriteAttributes(ieee [8]byte, endpoint uint8, cluster uint16, records []WriteRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("source: write with no records")
	}
	if len(records) > 0xFF {
		return nil, fmt.Errorf("source: too many write records: %d", len(records))
	}
	body := []byte{uint8(len(records))}
	for _, rec := range records {
		if len(rec.Value) > 0xFF {
			return nil, fmt.Errorf("source: write value too long for attr 0x%04X", rec.AttrID)
		}
		body = binary.LittleEndian.AppendUint16(body, rec.AttrID)
		body = append(body, rec.DataType, uint8(len(rec.Value)))
		body = append(body, rec.Value...)
	}
	return encodeFrame(&message{
		Type:     msgWriteAttributes,
		IEEE:     ieee,
		Endpoint: endpoint,
		Cluster:  cluster,
		Body:     body,
	}), nil
}
