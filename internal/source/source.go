// Package source abstracts the raw event feed from the Zigbee network:
// cluster commands and attribute reports flowing in, attribute writes
// flowing out. The production implementation speaks a framed protocol
// over a serial port to the coordinator firmware.
package source

import (
	"context"
	"fmt"
	"strings"
)

// ClusterCommandEvent is an incoming cluster-specific command from a
// device, e.g. an On/Off command sent by a remote.
type ClusterCommandEvent struct {
	IEEE     string
	Endpoint uint8
	Cluster  uint16
	Command  uint8
	Payload  []byte
}

// AttributeReportEvent is an unsolicited attribute report from a device.
type AttributeReportEvent struct {
	IEEE     string
	Endpoint uint8
	Cluster  uint16
	AttrID   uint16
	DataType uint8
	Value    []byte
}

// WriteRecord is a single attribute write.
type WriteRecord struct {
	AttrID   uint16
	DataType uint8
	Value    []byte
}

// Source is the raw event feed. Callbacks are invoked from the source's
// read goroutine; handlers must not block.
type Source interface {
	OnClusterCommand(handler func(ClusterCommandEvent))
	OnAttributeReport(handler func(AttributeReportEvent))

	// WriteAttributes writes attribute records to one cluster of a device.
	WriteAttributes(ctx context.Context, ieee string, endpoint uint8, cluster uint16, records []WriteRecord) error

	Close() error
}

// formatIEEE renders an 8-byte extended address in the usual
// colon-separated form, most significant byte first.
func formatIEEE(addr [8]byte) string {
	var b strings.Builder
	for i, x := range addr {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%02x", x)
	}
	return b.String()
}

// parseIEEE parses the colon-separated form back into 8 bytes.
func parseIEEE(s string) ([8]byte, error) {
	var addr [8]byte
	parts := strings.Split(s, ":")
	if len(parts) != 8 {
		return addr, fmt.Errorf("source: bad ieee address %q", s)
	}
	for i, p := range parts {
		var x uint8
		if _, err := fmt.Sscanf(p, "%02x", &x); err != nil || len(p) != 2 {
			return addr, fmt.Errorf("source: bad ieee address %q", s)
		}
		addr[i] = x
	}
	return addr, nil
}
