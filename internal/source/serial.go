package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialSource reads coordinator frames from a serial port.
type SerialSource struct {
	port   serial.Port
	reader *bufio.Reader
	logger *slog.Logger

	handlerMu    sync.RWMutex
	onClusterCmd func(ClusterCommandEvent)
	onReport     func(AttributeReportEvent)

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSerialSource opens the coordinator serial port and starts reading.
func NewSerialSource(portName string, baudRate int, logger *slog.Logger) (*SerialSource, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", portName, err)
	}

	// USB CDC ACM: assert DTR/RTS for the coordinator firmware.
	_ = port.SetDTR(true)
	_ = port.SetRTS(true)

	s := &SerialSource{
		port:   port,
		reader: bufio.NewReader(port),
		logger: logger,
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.readLoop()
	return s, nil
}

func (s *SerialSource) OnClusterCommand(handler func(ClusterCommandEvent)) {
	s.handlerMu.Lock()
	s.onClusterCmd = handler
	s.handlerMu.Unlock()
}

func (s *SerialSource) OnAttributeReport(handler func(AttributeReportEvent)) {
	s.handlerMu.Lock()
	s.onReport = handler
	s.handlerMu.Unlock()
}

// WriteAttributes sends a write-attributes frame to the coordinator.
func (s *SerialSource) WriteAttributes(ctx context.Context, ieee string, endpoint uint8, cluster uint16, records []WriteRecord) error {
	addr, err := parseIEEE(ieee)
	if err != nil {
		return err
	}
	frame, err := encodeWriteAttributes(addr, endpoint, cluster, records)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return fmt.Errorf("source: closed")
	default:
	}

	s.writeMu.Lock()
	_, err = s.port.Write(frame)
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("source: serial write: %w", err)
	}
	s.logger.Debug("write attributes sent",
		"ieee", ieee, "cluster", fmt.Sprintf("0x%04X", cluster), "records", len(records))
	return nil
}

func (s *SerialSource) readLoop() {
	defer s.wg.Done()

	backoff := 10 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		select {
		case <-s.done:
			return
		default:
		}

		m, err := readFrame(s.reader)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if err != io.EOF && !strings.Contains(err.Error(), "closed") {
				s.logger.Error("source read error", "err", err)
			}
			select {
			case <-time.After(backoff):
			case <-s.done:
				return
			}
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = 10 * time.Millisecond
		s.dispatch(m)
	}
}

func (s *SerialSource) dispatch(m *message) {
	switch m.Type {
	case msgClusterCommand:
		ev, err := decodeClusterCommand(m)
		if err != nil {
			s.logger.Warn("bad cluster command frame", "err", err)
			return
		}
		s.handlerMu.RLock()
		h := s.onClusterCmd
		s.handlerMu.RUnlock()
		if h != nil {
			h(ev)
		}
	case msgAttributeReport:
		ev, err := decodeAttributeReport(m)
		if err != nil {
			s.logger.Warn("bad attribute report frame", "err", err)
			return
		}
		s.handlerMu.RLock()
		h := s.onReport
		s.handlerMu.RUnlock()
		if h != nil {
			h(ev)
		}
	default:
		s.logger.Debug("unknown frame type", "type", fmt.Sprintf("0x%02X", m.Type))
	}
}

func (s *SerialSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.port.Close()
		s.wg.Wait()
	})
	return err
}
