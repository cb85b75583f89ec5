// Package transport runs the serial link to the doll: an I/O goroutine that
// writes queued orders and reads raw bytes, and a consumer side that turns
// those bytes back into frames.
package transport

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/hipsterbrown/feetech-servo/transports"

	"github.com/gwillem/premaid/pkg/protocol"
)

// Defaults for Config.
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 10 * time.Millisecond
	DefaultInterval    = time.Millisecond
	DefaultSettleDelay = 2 * time.Second
	DefaultKeepalive   = 10 * time.Second
)

// Config configures a Session.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
	// Interval is the pause between I/O loop iterations.
	Interval time.Duration
	// SettleDelay is the wait after opening before the first keepalive.
	SettleDelay time.Duration
	// Keepalive is the battery query period. Negative disables it.
	Keepalive time.Duration
	// MaxBuffer bounds the reassembly buffer.
	MaxBuffer int
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.Keepalive == 0 {
		c.Keepalive = DefaultKeepalive
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = DefaultMaxBuffer
	}
	return c
}

// Session owns an open port and the three queues shared between the I/O
// goroutine and the consumer. Only the queues cross goroutines.
type Session struct {
	port feetech.Transport
	cfg  Config

	outbound *Queue[protocol.Order]
	inbound  *Queue[[]byte]
	errs     *Queue[error]

	pollMu sync.Mutex
	asm    *Reassembler

	open      atomic.Bool
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Open opens the serial port (8N1) and starts a session on it.
func Open(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	port, err := transports.OpenSerial(transports.SerialConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Timeout:  cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	return New(port, cfg), nil
}

// New starts a session on an already open port.
func New(port feetech.Transport, cfg Config) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		port:     port,
		cfg:      cfg,
		outbound: &Queue[protocol.Order]{},
		inbound:  &Queue[[]byte]{},
		errs:     &Queue[error]{},
		asm:      NewReassembler(cfg.MaxBuffer, nil),
		stop:     make(chan struct{}),
	}
	s.open.Store(true)

	s.wg.Add(1)
	go s.loop()

	if cfg.Keepalive > 0 {
		s.wg.Add(1)
		go s.keepalive()
	}
	return s
}

// Port returns the configured port name.
func (s *Session) Port() string { return s.cfg.Port }

// IsOpen reports whether Close has not been called yet.
func (s *Session) IsOpen() bool { return s.open.Load() }

// Send queues an order for the I/O goroutine.
func (s *Session) Send(o protocol.Order) error {
	if !s.open.Load() {
		return ErrClosed
	}
	if o.IsZero() {
		return errors.New("empty order")
	}
	s.outbound.Push(o)
	return nil
}

// Pending returns the number of orders not yet written.
func (s *Session) Pending() int { return s.outbound.Len() }

// OnFrame sets the handler Poll calls for each received frame.
func (s *Session) OnFrame(handler func(protocol.Frame)) {
	s.pollMu.Lock()
	s.asm.SetHandler(handler)
	s.pollMu.Unlock()
}

// Poll runs on the consumer side. It feeds everything read so far through the
// reassembler, calling the frame handler, and returns the I/O and overflow
// errors collected since the last call. It never blocks on the port.
func (s *Session) Poll() []error {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	errs := s.errs.Drain()
	for _, chunk := range s.inbound.Drain() {
		if err := s.asm.Feed(chunk); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Buffered returns the partial frame waiting in the reassembler, as hex.
func (s *Session) Buffered() string {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	return s.asm.HexView()
}

// Close stops accepting orders, waits for the I/O goroutine to finish its
// current iteration and closes the port. Orders still queued are dropped.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.open.Store(false)
		close(s.stop)
		s.wg.Wait()

		var errs []error
		if err := s.port.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
		if err := s.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close port: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *Session) loop() {
	defer s.wg.Done()
	buf := make([]byte, 256*3)
	for s.open.Load() {
		s.step(buf)
		time.Sleep(s.cfg.Interval)
	}
}

// step writes at most one queued order and does one read.
func (s *Session) step(buf []byte) {
	if o, ok := s.outbound.Pop(); ok {
		f := o.Frame()
		if _, err := s.port.Write(f); err != nil {
			s.errs.Push(&IOError{Op: "write", Order: f.String(), Err: err})
		}
	}

	n, err := s.port.Read(buf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		s.inbound.Push(chunk)
	}
	if err != nil && !IsTimeout(n, err) {
		s.errs.Push(&IOError{Op: "read", Err: err})
	}
}

func (s *Session) keepalive() {
	defer s.wg.Done()

	select {
	case <-s.stop:
		return
	case <-time.After(s.cfg.SettleDelay):
	}

	ticker := time.NewTicker(s.cfg.Keepalive)
	defer ticker.Stop()
	for {
		if s.Send(protocol.BatteryQuery()) != nil {
			return
		}
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}
