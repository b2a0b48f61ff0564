// Package httpserver exposes the flow event intake over HTTP.
package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/ingest"
	"github.com/tinytelemetry/flowlog/internal/model"
)

// DefaultAddr is used when no listen address is configured.
const DefaultAddr = "127.0.0.1:3100"

const sourceName = "http"

// Intake is the narrow ingest contract required by the HTTP API.
type Intake interface {
	HandleLine(source string, line *ingest.EventLine) *ingest.ProcessResult
	Handle(event model.Event, opts flowlog.Options) *ingest.ProcessResult
	Defaults() flowlog.Options
	Processed() int64
}

// Server accepts flow events over HTTP and hands them to the intake.
type Server struct {
	addr      string
	host      string
	intake    Intake
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. host is reported by the health
// endpoint.
func NewServer(addr string, intake Intake, host string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		host:      host,
		intake:    intake,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.POST("/api/events", s.handleEvent)
	r.POST("/api/events/raw", s.handleRawEvent)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the listen address, resolved once the server has started.
func (s *Server) Addr() string { return s.addr }

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"host":      s.host,
		"processed": s.intake.Processed(),
	})
}

func (s *Server) handleEvent(c *gin.Context) {
	var line ingest.EventLine
	if err := c.ShouldBindJSON(&line); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON event body"})
		return
	}

	result := s.intake.HandleLine(sourceName, &line)
	if result.Err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"correlationId": correlationID(result),
	})
}

// handleRawEvent logs the request body as a streaming payload. The body is
// read only after logging, so the response byte count shows the logger left
// the stream untouched.
func (s *Server) handleRawEvent(c *gin.Context) {
	opts, err := rawOptions(c).Apply(s.intake.Defaults())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := &model.Message{
		ID:     c.Query("id"),
		Root:   c.Query("rootId"),
		Flow:   c.Query("flow"),
		Source: sourceName,
		Body:   c.Request.Body,
	}
	if msg.ID == "" && msg.Root == "" {
		msg.ID = uuid.NewString()
	}

	result := s.intake.Handle(msg, opts)
	if result.Err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Err.Error()})
		return
	}

	n, err := io.Copy(io.Discard, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"correlationId": correlationID(result),
		"bytes":         n,
	})
}

// rawOptions reads per-event overrides from the query string.
func rawOptions(c *gin.Context) *ingest.LineOptions {
	var o ingest.LineOptions
	str := func(key string) *string {
		if v, ok := c.GetQuery(key); ok {
			return &v
		}
		return nil
	}
	flag := func(key string) *bool {
		v, ok := c.GetQuery(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			b = v == ""
		}
		return &b
	}
	o.Message = str("message")
	o.CorrelationID = str("correlationId")
	o.Level = str("level")
	o.PayloadType = str("payloadType")
	o.LogType = str("logType")
	o.LogPayload = flag("logPayload")
	o.TruncatePayload = flag("truncatePayload")
	return &o
}

func correlationID(result *ingest.ProcessResult) string {
	if result.Options.CorrelationID != "" {
		return result.Options.CorrelationID
	}
	if result.Event != nil {
		return result.Event.RootID()
	}
	return ""
}
