package pushchan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/logging"
	"clipwatch/internal/services"
)

// delayGrowthCap bounds the linear backoff multiplier: the wait before
// attempt n is baseDelay * min(n+1, delayGrowthCap).
const delayGrowthCap = 5

const (
	defaultKeepalive   = 30 * time.Second
	defaultBaseDelay   = 3 * time.Second
	defaultMaxAttempts = 10
)

// Events carries the subscriber callbacks. OnDelta receives every
// video_update payload in arrival order, unfiltered. OnState fires on every
// lifecycle transition. OnTerminal fires at most once per subscription, when
// the reconnect budget runs out. All callbacks run on the subscription
// goroutine and must not block for long.
type Events struct {
	OnDelta    func(job.Delta)
	OnState    func(job.ConnectionState)
	OnTerminal func(error)
}

// Manager opens and supervises push subscriptions. One Manager serves any
// number of jobs; each Subscribe call produces an independent Handle.
type Manager struct {
	apiBaseURL  string
	dialer      Dialer
	keepalive   time.Duration
	baseDelay   time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// NewManager builds a Manager from the server and push configuration
// sections. A nil dialer selects the gorilla/websocket dialer.
func NewManager(server config.Server, push config.Push, dialer Dialer, logger *slog.Logger) *Manager {
	if dialer == nil {
		dialer = NewWebsocketDialer(server.APIToken)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	keepalive := time.Duration(push.KeepaliveInterval) * time.Second
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	baseDelay := time.Duration(push.ReconnectBaseDelayMS) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	maxAttempts := push.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Manager{
		apiBaseURL:  server.APIBaseURL,
		dialer:      dialer,
		keepalive:   keepalive,
		baseDelay:   baseDelay,
		maxAttempts: maxAttempts,
		logger:      logger.With(logging.String(logging.FieldComponent, "pushchan")),
	}
}

// Subscribe opens the push channel for one job and starts its supervision
// goroutine. The returned Handle must be released with Unsubscribe.
func (m *Manager) Subscribe(ctx context.Context, jobID string, events Events) (*Handle, error) {
	endpoint, err := Endpoint(m.apiBaseURL, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pushchan", "subscribe", "derive endpoint", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		jobID:    jobID,
		endpoint: endpoint,
		events:   events,
		manager:  m,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    job.ConnectionState{Status: job.ConnConnecting},
	}
	go h.run(runCtx)
	return h, nil
}

// Handle is one live subscription.
type Handle struct {
	jobID    string
	endpoint string
	events   Events
	manager  *Manager
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.Mutex
	conn   Conn
	state  job.ConnectionState
	closed bool

	writeMu sync.Mutex
}

// State returns the current connection state.
func (h *Handle) State() job.ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// RequestStatus asks the server to push a full status frame. The reply
// arrives through OnDelta like any other update.
func (h *Handle) RequestStatus() error {
	return h.Send(outboundMessage{Type: TypeGetStatus})
}

// Send writes one frame on the open connection. Writes are serialized;
// sending on a closed channel returns a transport error.
func (h *Handle) Send(msg any) error {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return services.Wrap(services.ErrTransport, "pushchan", "send", "channel not open", nil)
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return services.Wrap(services.ErrTransport, "pushchan", "send", "write frame", err)
	}
	return nil
}

// Unsubscribe tears the channel down and waits for the supervision goroutine
// to exit. It never triggers a reconnect and is safe to call more than once.
func (h *Handle) Unsubscribe() {
	h.mu.Lock()
	alreadyClosed := h.closed
	h.closed = true
	conn := h.conn
	h.mu.Unlock()
	if !alreadyClosed {
		h.cancel()
		if conn != nil {
			conn.Close()
		}
	}
	<-h.done
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handle) setState(state job.ConnectionState) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
	if h.events.OnState != nil {
		h.events.OnState(state)
	}
}

func (h *Handle) attach(conn Conn) {
	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()
}

func (h *Handle) detach() {
	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	h.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// run owns the connection lifecycle: dial, serve, and on abnormal loss
// reconnect with linearly growing delay until the budget runs out.
func (h *Handle) run(ctx context.Context) {
	defer close(h.done)
	logger := h.manager.logger.With(logging.String(logging.FieldJobID, h.jobID))
	attempts := 0
	lastErr := ""
	for {
		h.setState(job.ConnectionState{
			Status:            job.ConnConnecting,
			ReconnectAttempts: attempts,
			LastError:         lastErr,
		})

		conn, err := h.manager.dialer.DialContext(ctx, h.endpoint)
		if err == nil {
			attempts = 0
			h.attach(conn)
			h.setState(job.ConnectionState{Status: job.ConnOpen})
			logger.Info("push channel open")
			err = h.serve(ctx, conn)
			h.detach()
			if err == nil {
				h.setState(job.ConnectionState{Status: job.ConnClosed})
				logger.Info("push channel closed")
				return
			}
		}

		lastErr = err.Error()
		if ctx.Err() != nil || h.isClosed() {
			h.setState(job.ConnectionState{Status: job.ConnClosed, LastError: lastErr})
			return
		}
		if attempts >= h.manager.maxAttempts {
			h.setState(job.ConnectionState{
				Status:            job.ConnClosed,
				ReconnectAttempts: attempts,
				LastError:         lastErr,
			})
			logger.Error("push channel terminal", logging.Error(err))
			if h.events.OnTerminal != nil {
				h.events.OnTerminal(services.Wrap(
					services.ErrTerminalConnection, "pushchan", "reconnect",
					"reconnect budget exhausted", err))
			}
			return
		}

		delay := h.manager.baseDelay * time.Duration(min(attempts+1, delayGrowthCap))
		attempts++
		logger.Warn("push channel down, reconnecting",
			logging.Int("attempt", attempts),
			logging.Duration("delay", delay),
			logging.Error(err))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			h.setState(job.ConnectionState{Status: job.ConnClosed, LastError: lastErr})
			return
		case <-timer.C:
		}
	}
}

// serve pumps frames until the connection drops. A nil return means the
// connection ended cleanly and the subscription is over; a non-nil return
// asks run to reconnect.
func (h *Handle) serve(ctx context.Context, conn Conn) error {
	pingStop := make(chan struct{})
	var pingWG sync.WaitGroup
	pingWG.Add(1)
	go func() {
		defer pingWG.Done()
		ticker := time.NewTicker(h.manager.keepalive)
		defer ticker.Stop()
		for {
			select {
			case <-pingStop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := h.Send(outboundMessage{Type: TypePing}); err != nil {
					return
				}
			}
		}
	}()
	defer func() {
		close(pingStop)
		pingWG.Wait()
	}()

	// Cancellation must unblock the read; closing the connection is the
	// only way to do that.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	logger := h.manager.logger.With(logging.String(logging.FieldJobID, h.jobID))
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || h.isClosed() || isNormalClose(err) {
				return nil
			}
			return services.Wrap(services.ErrTransport, "pushchan", "read", "connection lost", err)
		}
		msg, delta, err := parseInbound(raw)
		if err != nil {
			logger.Warn("dropping malformed frame", logging.Error(err))
			continue
		}
		switch msg.Type {
		case TypePong:
			// Keepalive answered.
		case TypeVideoUpdate:
			if h.events.OnDelta != nil {
				h.events.OnDelta(delta)
			}
		default:
			logger.Debug("ignoring frame", logging.String("frame_type", msg.Type))
		}
	}
}
