package source

import (
	"bufio"
	"bytes"
	"testing"
)

var testIEEE = [8]byte{0xF0, 0xCC, 0x8F, 0xFF, 0xFE, 0x12, 0x3A, 0x4B}

func TestFrameRoundTrip(t *testing.T) {
	in := &message{
		Type:     msgClusterCommand,
		IEEE:     testIEEE,
		Endpoint: 1,
		Cluster:  0x0006,
		Body:     []byte{0x01},
	}

	raw := encodeFrame(in)
	got, err := readFrame(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != in.Type || got.IEEE != in.IEEE || got.Endpoint != in.Endpoint || got.Cluster != in.Cluster {
		t.Fatalf("decoded header %+v, want %+v", got, in)
	}
	if !bytes.Equal(got.Body, in.Body) {
		t.Fatalf("decoded body % X, want % X", got.Body, in.Body)
	}
}

func TestFrameEscapesReservedBytes(t *testing.T) {
	// Body containing the flag and escape bytes must survive stuffing.
	in := &message{
		Type:     msgAttributeReport,
		IEEE:     testIEEE,
		Endpoint: 1,
		Cluster:  0x7D7E,
		Body:     []byte{0x7E, 0x7D, 0x00, 0x7E},
	}

	raw := encodeFrame(in)
	// No unescaped flag bytes between the delimiters.
	for _, b := range raw[1 : len(raw)-1] {
		if b == frameFlag {
			t.Fatal("unescaped flag byte inside frame")
		}
	}

	got, err := readFrame(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatal(err)
	}
	if got.Cluster != in.Cluster || !bytes.Equal(got.Body, in.Body) {
		t.Fatalf("decoded %+v, want %+v", got, in)
	}
}

func TestReadFrameResynchronizes(t *testing.T) {
	// Garbage before the first flag and an empty flag pair are skipped.
	raw := encodeFrame(&message{Type: msgClusterCommand, IEEE: testIEEE, Endpoint: 1, Cluster: 6, Body: []byte{0x00}})
	stream := append([]byte{0xDE, 0xAD, frameFlag}, raw...)

	got, err := readFrame(bufio.NewReader(bytes.NewReader(stream)))
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != msgClusterCommand {
		t.Fatalf("type = 0x%02X, want cluster command", got.Type)
	}
}

func TestReadFrameRejectsBadFCS(t *testing.T) {
	raw := encodeFrame(&message{Type: msgClusterCommand, IEEE: testIEEE, Endpoint: 1, Cluster: 6, Body: []byte{0x01}})
	raw[len(raw)-2] ^= 0xFF // corrupt the FCS byte

	if _, err := readFrame(bufio.NewReader(bytes.NewReader(raw))); err == nil {
		t.Fatal("expected FCS error")
	}
}

func TestDecodeClusterCommand(t *testing.T) {
	m := &message{
		Type:     msgClusterCommand,
		IEEE:     testIEEE,
		Endpoint: 1,
		Cluster:  0x0006,
		Body:     []byte{0x02, 0xAA},
	}
	ev, err := decodeClusterCommand(m)
	if err != nil {
		t.Fatal(err)
	}
	if ev.IEEE != "f0:cc:8f:ff:fe:12:3a:4b" {
		t.Errorf("ieee = %q", ev.IEEE)
	}
	if ev.Command != 0x02 || !bytes.Equal(ev.Payload, []byte{0xAA}) {
		t.Errorf("command = 0x%02X payload % X", ev.Command, ev.Payload)
	}

	if _, err := decodeClusterCommand(&message{Type: msgClusterCommand}); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestDecodeAttributeReport(t *testing.T) {
	m := &message{
		Type:     msgAttributeReport,
		IEEE:     testIEEE,
		Endpoint: 1,
		Cluster:  0xFC11,
		Body:     []byte{0x0B, 0x60, 0x20, 0x32}, // attr 0x600B, uint8, value 50
	}
	ev, err := decodeAttributeReport(m)
	if err != nil {
		t.Fatal(err)
	}
	if ev.AttrID != 0x600B || ev.DataType != 0x20 || !bytes.Equal(ev.Value, []byte{0x32}) {
		t.Fatalf("decoded %+v", ev)
	}
}

func TestEncodeWriteAttributes(t *testing.T) {
	raw, err := encodeWriteAttributes(testIEEE, 1, 0xFC11, []WriteRecord{
		{AttrID: 0x600B, DataType: 0x20, Value: []byte{75}},
		{AttrID: 0x600C, DataType: 0x20, Value: []byte{25}},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, err := readFrame(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatal(err)
	}
	if m.Type != msgWriteAttributes || m.Cluster != 0xFC11 {
		t.Fatalf("header %+v", m)
	}
	want := []byte{
		2,
		0x0B, 0x60, 0x20, 1, 75,
		0x0C, 0x60, 0x20, 1, 25,
	}
	if !bytes.Equal(m.Body, want) {
		t.Fatalf("body % X, want % X", m.Body, want)
	}

	if _, err := encodeWriteAttributes(testIEEE, 1, 0xFC11, nil); err == nil {
		t.Fatal("expected error for empty write")
	}
}

func TestIEEEFormatting(t *testing.T) {
	s := formatIEEE(testIEEE)
	if s != "f0:cc:8f:ff:fe:12:3a:4b" {
		t.Fatalf("formatIEEE = %q", s)
	}
	back, err := parseIEEE(s)
	if err != nil {
		t.Fatal(err)
	}
	if back != testIEEE {
		t.Fatalf("parseIEEE = % X", back)
	}
	if _, err := parseIEEE("not-an-address"); err == nil {
		t.Fatal("expected error for malformed address")
	}
}
