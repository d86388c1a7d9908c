// ABOUTME: HTTP and websocket front end for a keep-alive queue
// ABOUTME: Streams the queue to clients and exposes append/status endpoints
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/Sendspin/sendspin-queue/internal/version"
	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/decode"
	"github.com/Sendspin/sendspin-queue/pkg/audio/resample"
	"github.com/Sendspin/sendspin-queue/pkg/queue"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeDeadline   = 10 * time.Second
	pingInterval    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Config holds server configuration
type Config struct {
	Addr        string
	Name        string
	Format      audio.Format // wire format; the queue is conformed to it
	ChunkPeriod time.Duration
	BufferAhead time.Duration
}

// Metrics receives stream counters
type Metrics interface {
	ChunkSent()
	ChunkDropped()
	ClientConnected(delta int)
}

// Opener turns a path from POST /queue into a source
type Opener func(path string) (audio.Source, error)

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics reports stream counters to m and serves handler at /metrics
func WithMetrics(m Metrics, handler http.Handler) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
		s.metricsHandler = handler
	}
}

// WithOpener replaces decode.Open for POST /queue
func WithOpener(open Opener) Option {
	return func(s *Server) {
		if open != nil {
			s.open = open
		}
	}
}

// Server streams one queue to any number of websocket clients
type Server struct {
	config   Config
	serverID uuid.UUID

	input  *queue.Input
	output *queue.Output

	echo     *echo.Echo
	upgrader websocket.Upgrader
	hub      *hub
	engine   *Engine

	open           Opener
	logger         *log.Logger
	metrics        Metrics
	metricsHandler http.Handler

	clockStart time.Time
	wg         sync.WaitGroup
}

// New creates a server for the queue pair. The server is the output's only
// consumer.
func New(config Config, in *queue.Input, out *queue.Output, opts ...Option) (*Server, error) {
	s := &Server{
		config:   config,
		serverID: uuid.New(),
		input:    in,
		output:   out,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			// Trusted local network deployments only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		open:       openFile,
		logger:     log.New(io.Discard),
		metrics:    nopMetrics{},
		clockStart: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.metrics)

	src := resample.Conform(out, config.Format.SampleRate, config.Format.Channels)
	engine, err := newEngine(src, config.Format, config.ChunkPeriod, config.BufferAhead,
		s.hub, s.clockMicros, s.logger.WithPrefix("engine"))
	if err != nil {
		return nil, fmt.Errorf("failed to create audio engine: %w", err)
	}
	s.engine = engine

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.GET("/stream", s.handleStream)
	s.echo.GET("/queue", s.handleStatus)
	s.echo.POST("/queue", s.handleAppend)
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	return s, nil
}

func openFile(path string) (audio.Source, error) {
	return decode.Open(path)
}

// Handler returns the HTTP handler without starting the engine
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Engine returns the audio engine; Run starts it
func (s *Server) Engine() *Engine {
	return s.engine
}

// Run serves on config.Addr and streams the queue until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("server starting", "name", s.config.Name, "id", s.serverID, "addr", s.config.Addr)

	engineErr := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		engineErr <- s.engine.Run(ctx)
	}()

	httpErr := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
	case err := <-httpErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	case err := <-engineErr:
		// Engine ended on its own; keep serving the API until cancelled
		if err != nil {
			runErr = fmt.Errorf("audio engine failed: %w", err)
		} else {
			<-ctx.Done()
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", "err", err)
	}

	// Hijacked websocket connections outlive Shutdown
	cancel()
	s.hub.closeAll()
	s.wg.Wait()

	s.logger.Info("server stopped cleanly")
	return runErr
}

// handleStream upgrades to websocket and streams chunks until the client leaves
func (s *Server) handleStream(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return nil
	}
	defer conn.Close()

	cl := s.hub.add(conn)
	logger := s.logger.With("client", cl.id, "remote", c.RealIP())
	logger.Info("client connected")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(cl, logger)
	}()
	defer func() {
		s.hub.remove(cl)
		logger.Info("client disconnected")
	}()

	format := s.engine.Format()
	hello := Message{Type: "server/hello", Payload: ServerHello{
		ServerID: s.serverID.String(),
		ClientID: cl.id.String(),
		Name:     s.config.Name,
		Version:  ProtocolVersion,
		Software: version.String(),
	}}
	start := Message{Type: "stream/start", Payload: StreamStart{
		Codec:      format.Codec,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
	}}
	for _, msg := range []Message{hello, start} {
		if err := s.hub.enqueue(cl, msg); err != nil {
			logger.Warn("could not send handshake", "type", msg.Type, "err", err)
			return nil
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", "err", err)
			}
			return nil
		}
		s.handleClientMessage(cl, data, logger)
	}
}

// clientWriter sends queued messages and keepalive pings
func (s *Server) clientWriter(cl *client, logger *log.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				return
			}
			if err := s.writeMessage(cl.conn, msg); err != nil {
				logger.Debug("write failed", "err", err)
				cl.conn.Close()
				return
			}
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				cl.conn.Close()
				return
			}
		}
	}
}

func (s *Server) writeMessage(conn *websocket.Conn, msg any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	if data, ok := msg.([]byte); ok {
		return conn.WriteMessage(websocket.BinaryMessage, data)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// handleClientMessage processes JSON messages from clients
func (s *Server) handleClientMessage(cl *client, data []byte, logger *log.Logger) {
	recv := s.clockMicros()

	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Debug("ignoring malformed message", "err", err)
		return
	}

	switch msg.Type {
	case "client/time":
		var ct ClientTime
		if err := json.Unmarshal(msg.Payload, &ct); err != nil {
			logger.Debug("bad client/time payload", "err", err)
			return
		}
		reply := Message{Type: "server/time", Payload: ServerTime{
			ClientTransmitted: ct.ClientTransmitted,
			ServerReceived:    recv,
			ServerTransmitted: s.clockMicros(),
		}}
		if err := s.hub.enqueue(cl, reply); err != nil {
			logger.Debug("could not send server/time", "err", err)
		}
	default:
		logger.Debug("unknown message type", "type", msg.Type)
	}
}

// handleAppend decodes a file and appends it to the queue
func (s *Server) handleAppend(c echo.Context) error {
	var req AppendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}

	src, err := s.open(req.Path)
	if err != nil {
		s.logger.Warn("append rejected", "path", req.Path, "err", err)
		switch {
		case errors.Is(err, decode.ErrUnsupportedFormat):
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, fs.ErrNotExist):
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		default:
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
	}

	ticket := s.input.Submit(src, req.Wait)
	resp := AppendResponse{ID: ticket.ID, Pending: s.input.Len()}
	s.logger.Info("appended", "path", req.Path, "id", ticket.ID, "pending", resp.Pending)

	if req.Wait {
		select {
		case <-ticket.Done:
			resp.Played = true
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleStatus reports queue depth and playback state
func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, QueueStatus{
		Pending: s.input.Len(),
		State:   s.output.State().String(),
		Clients: s.hub.len(),
	})
}

// clockMicros returns the server clock in microseconds
func (s *Server) clockMicros() int64 {
	return time.Since(s.clockStart).Microseconds()
}

type nopMetrics struct{}

func (nopMetrics) ChunkSent()          {}
func (nopMetrics) ChunkDropped()       {}
func (nopMetrics) ClientConnected(int) {}
