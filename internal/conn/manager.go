package conn

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"relaychat/internal/wire"
)

// State is the connection lifecycle position.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// InboundHandler consumes decoded messages. *dispatch.Dispatcher satisfies it.
type InboundHandler interface {
	Dispatch(ctx context.Context, msg wire.Message) error
}

// Options configures a Manager.
type Options struct {
	Dialer       Dialer // defaults to TCPDialer
	Handler      InboundHandler
	Logger       *log.Logger
	MaxLineBytes int
	// OnDrop is called from the receive loop when the stream fails without
	// Disconnect having been requested.
	OnDrop func(error)
}

// Manager owns one stream to the relay at a time.
type Manager struct {
	dialer   Dialer
	handler  InboundHandler
	logger   *log.Logger
	maxLine  int
	onDrop   func(error)
	writeMu  sync.Mutex // serializes whole-line writes
	mu       sync.Mutex // guards the fields below
	state    State
	stream   net.Conn
	addr     string
	stopping bool
	done     chan struct{}
	cancel   context.CancelFunc
}

// NewManager returns a Disconnected manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		dialer:  opts.Dialer,
		handler: opts.Handler,
		logger:  opts.Logger,
		maxLine: opts.MaxLineBytes,
		onDrop:  opts.OnDrop,
	}
	if m.dialer == nil {
		m.dialer = TCPDialer{}
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	m.logger = m.logger.With("component", "conn")
	if m.maxLine <= 0 {
		m.maxLine = DefaultMaxLineBytes
	}
	closed := make(chan struct{})
	close(closed)
	m.done = closed
	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done returns a channel closed when the current receive loop exits. While
// disconnected it returns an already closed channel.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Connect dials address:port and starts the receive loop. It never retries;
// a dial failure leaves the manager Disconnected and returns a
// *TransportError.
func (m *Manager) Connect(ctx context.Context, address string, port int) error {
	addr := net.JoinHostPort(address, strconv.Itoa(port))

	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.state = Connecting
	m.mu.Unlock()

	stream, err := m.dialer.Dial(ctx, addr)
	if err != nil {
		m.mu.Lock()
		m.state = Disconnected
		m.mu.Unlock()
		return &TransportError{Op: "dial", Addr: addr, Err: err}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.stream = stream
	m.addr = addr
	m.stopping = false
	m.done = done
	m.cancel = cancel
	m.state = Connected
	m.mu.Unlock()

	m.logger.Info("connected", "addr", addr)
	go m.receive(loopCtx, stream, done)
	return nil
}

// Send encodes msg and writes it as one line. Concurrent calls never
// interleave.
func (m *Manager) Send(msg wire.Message) error {
	line, err := wire.Encode(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	stream, addr := m.stream, m.addr
	ok := m.state == Connected
	m.mu.Unlock()
	if !ok || stream == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if _, err := stream.Write([]byte(line + "\n")); err != nil {
		return &TransportError{Op: "write", Addr: addr, Err: err}
	}
	m.logger.Debug("sent", "kind", string(msg.Kind()))
	return nil
}

// Disconnect stops the receive loop, waits for it to exit, then closes the
// stream. Calling it while disconnected is a no-op. It must not be called
// from an InboundHandler, which runs on the receive loop.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	switch m.state {
	case Disconnected, Connecting:
		m.mu.Unlock()
		return nil
	case Disconnecting:
		done := m.done
		m.mu.Unlock()
		<-done
		return nil
	}
	m.stopping = true
	m.state = Disconnecting
	stream, done, cancel, addr := m.stream, m.done, m.cancel, m.addr
	m.mu.Unlock()

	// Unblock the pending read and any handler stuck in Send.
	_ = stream.SetDeadline(time.Now())
	cancel()
	<-done

	err := stream.Close()

	m.mu.Lock()
	m.stream = nil
	m.state = Disconnected
	m.mu.Unlock()

	m.logger.Info("disconnected", "addr", addr)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return &TransportError{Op: "close", Addr: addr, Err: err}
	}
	return nil
}

func (m *Manager) receive(ctx context.Context, stream net.Conn, done chan struct{}) {
	defer close(done)

	r := bufio.NewReaderSize(stream, 4096)
	for {
		line, oversized, err := readLine(r, m.maxLine)
		if err != nil {
			m.loopEnded(stream, err)
			return
		}
		if oversized {
			m.logger.Warn("dropping oversized line", "max_bytes", m.maxLine)
			continue
		}
		if len(line) == 0 {
			continue
		}

		msg, err := wire.Decode(string(line))
		if err != nil {
			m.logger.Warn("dropping malformed line", "err", err)
			continue
		}
		if m.handler == nil {
			continue
		}
		// The dispatcher logs handler failures itself.
		_ = m.handler.Dispatch(ctx, msg)
	}
}

// loopEnded runs on the receive goroutine when a read fails.
func (m *Manager) loopEnded(stream net.Conn, err error) {
	m.mu.Lock()
	requested := m.stopping
	if !requested {
		m.state = Disconnected
		m.stream = nil
		if m.cancel != nil {
			m.cancel()
		}
	}
	addr := m.addr
	m.mu.Unlock()

	if requested {
		m.logger.Debug("receive loop stopped", "addr", addr)
		return
	}

	_ = stream.Close()
	terr := &TransportError{Op: "read", Addr: addr, Err: err}
	m.logger.Error("connection lost", "addr", addr, "err", err)
	if m.onDrop != nil {
		m.onDrop(terr)
	}
}
