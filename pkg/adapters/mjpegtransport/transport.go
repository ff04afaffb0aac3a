// Package mjpegtransport provides a network transport that serves frames as
// Motion JPEG over HTTP and as binary JPEG messages over WebSocket.
package mjpegtransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/user/vidout/pkg/ports"
	"github.com/user/vidout/pkg/rawimage"
)

const (
	boundary = "frame"

	// DefaultQuality is the JPEG quality used when no option overrides it.
	DefaultQuality = 85

	// DefaultClientBuffer is the number of encoded frames queued per client
	// before further frames are dropped for it.
	DefaultClientBuffer = 2

	writeTimeout = 5 * time.Second
)

// Status is the JSON document served at /status.
type Status struct {
	Open    bool    `json:"open"`
	Session string  `json:"session,omitempty"`
	Format  string  `json:"format,omitempty"`
	Frames  uint64  `json:"frames"`
	Dropped uint64  `json:"dropped"`
	Clients int     `json:"clients"`
	FPS     float64 `json:"fps"`
}

type client struct {
	id     string
	remote string
	ch     chan []byte
}

// Option configures a Transport.
type Option func(*Transport)

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(t *Transport) {
		if q >= 1 && q <= 100 {
			t.quality = q
		}
	}
}

// WithClientBuffer sets how many frames may be queued per client.
func WithClientBuffer(n int) Option {
	return func(t *Transport) {
		if n >= 1 {
			t.clientBuffer = n
		}
	}
}

// Transport implements ports.Transport and http.Handler.
type Transport struct {
	renderer     ports.Renderer
	logger       ports.Logger
	quality      int
	clientBuffer int
	router       *mux.Router
	upgrader     websocket.Upgrader

	mu      sync.RWMutex
	open    bool
	session string
	desc    ports.FrameDescriptor
	started time.Time
	frames  uint64
	dropped uint64
	clients map[*client]struct{}
}

// New creates a transport encoding frames through renderer.
func New(renderer ports.Renderer, logger ports.Logger, opts ...Option) *Transport {
	t := &Transport{
		renderer:     renderer,
		logger:       logger.WithComponent("mjpeg"),
		quality:      DefaultQuality,
		clientBuffer: DefaultClientBuffer,
		router:       mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.setupRoutes()
	return t
}

func (t *Transport) setupRoutes() {
	t.router.HandleFunc("/", t.handleIndex).Methods("GET")
	t.router.HandleFunc("/stream", t.handleStream).Methods("GET")
	t.router.HandleFunc("/ws", t.handleWebSocket)
	t.router.HandleFunc("/status", t.handleStatus).Methods("GET")
}

// ServeHTTP implements http.Handler.
func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.router.ServeHTTP(w, r)
}

// ListenAndServe serves the transport on addr until ctx ends.
func (t *Transport) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: t, ReadHeaderTimeout: 10 * time.Second}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
	defer stop()

	t.logger.Info("Listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Name returns "mjpeg".
func (t *Transport) Name() string {
	return "mjpeg"
}

// Supports accepts every format rawimage can convert.
func (t *Transport) Supports(desc ports.FrameDescriptor) error {
	if !rawimage.Supported(desc.Format) {
		return fmt.Errorf("%w: cannot encode %s as JPEG", ports.ErrUnsupportedFormat, desc.Format)
	}
	return nil
}

// Open starts a session. Clients may connect from now until Close.
func (t *Transport) Open(ctx context.Context, desc ports.FrameDescriptor, session string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = true
	t.session = session
	t.desc = desc
	t.started = time.Now()
	t.frames = 0
	t.dropped = 0
	return nil
}

// Transmit encodes the frame once and queues it for every client. A client
// whose queue is full skips the frame.
func (t *Transport) Transmit(ctx context.Context, frame *ports.RawFrame) error {
	img, err := rawimage.ToImage(frame)
	if err != nil {
		return err
	}
	data, err := t.renderer.EncodeImage(img, ports.FormatJPEG, t.quality)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", frame.Seq, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		return fmt.Errorf("mjpeg transport is not open")
	}
	t.frames++
	for c := range t.clients {
		select {
		case c.ch <- data:
		default:
			t.dropped++
			t.logger.Debug("Dropping frame %d for slow client %s", frame.Seq, c.remote)
		}
	}
	return nil
}

// Close ends the session and disconnects every client.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = false
	for c := range t.clients {
		close(c.ch)
	}
	t.clients = make(map[*client]struct{})
	return nil
}

// Status returns a snapshot of the transport state.
func (t *Transport) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := Status{
		Open:    t.open,
		Frames:  t.frames,
		Dropped: t.dropped,
		Clients: len(t.clients),
	}
	if t.open {
		st.Session = t.session
		st.Format = t.desc.String()
		if elapsed := time.Since(t.started).Seconds(); elapsed > 0 {
			st.FPS = float64(t.frames) / elapsed
		}
	}
	return st
}

// subscribe registers a client, or returns nil when no session is open.
func (t *Transport) subscribe(remote string) *client {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		return nil
	}
	c := &client{id: uuid.NewString(), remote: remote, ch: make(chan []byte, t.clientBuffer)}
	t.clients[c] = struct{}{}
	t.logger.Info("MJPEG client connected: %s", remote)
	return c
}

func (t *Transport) unsubscribe(c *client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Close may already have dropped and closed it.
	if _, ok := t.clients[c]; ok {
		delete(t.clients, c)
		close(c.ch)
	}
	t.logger.Info("MJPEG client disconnected: %s", c.remote)
}

func (t *Transport) handleStream(w http.ResponseWriter, r *http.Request) {
	c := t.subscribe(r.RemoteAddr)
	if c == nil {
		http.Error(w, "no active stream", http.StatusServiceUnavailable)
		return
	}
	defer t.unsubscribe(c)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "close")
	w.Header().Set("X-Stream-Session", c.id)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-c.ch:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(data)); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (t *Transport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warn("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := t.subscribe(r.RemoteAddr)
	if c == nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "no active stream"))
		return
	}
	defer t.unsubscribe(c)

	// Reading is only needed to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case data, ok := <-c.ch:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}
}

func (t *Transport) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t.Status())
}

func (t *Transport) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>vidout</title>
<style>body{margin:0;background:#000;display:flex;justify-content:center;align-items:center;min-height:100vh}img{max-width:100vw;max-height:100vh}</style>
</head>
<body><img src="/stream" alt="vidout stream"></body>
</html>
`)
}

// Ensure Transport implements ports.Transport
var _ ports.Transport = (*Transport)(nil)
