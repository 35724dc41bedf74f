package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

// maxBody bounds PUT payloads; attribute values are short decimal strings.
const maxBody = 4096

// Handler exposes the attribute and event surfaces over HTTP.
type Handler struct {
	attrs  ports.Attributes
	events ports.Events
	obs    ports.Observability
}

func NewHandler(attrs ports.Attributes, events ports.Events, obs ports.Observability) *Handler {
	return &Handler{attrs: attrs, events: events, obs: obs}
}

// NewRouter wires the routes. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	r.GET("/attributes", h.ListAttributes)
	r.GET("/attributes/:name", h.GetAttribute)
	r.PUT("/attributes/:name", h.PutAttribute)
	r.GET("/events", h.WaitEvents)
	return r
}

func (h *Handler) ListAttributes(c *gin.Context) {
	out := gin.H{}
	for _, name := range h.attrs.Names() {
		v, err := h.attrs.Read(name)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		out[name] = v
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetAttribute(c *gin.Context) {
	v, err := h.attrs.Read(c.Param("name"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.String(http.StatusOK, v+"\n")
}

func (h *Handler) PutAttribute(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.attrs.Write(c.Param("name"), strings.TrimSpace(string(body))); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// WaitEvents long-polls the readiness surface. mask defaults to both bits;
// timeout is a Go duration, 0 polls, absent waits until the client leaves.
func (h *Handler) WaitEvents(c *gin.Context) {
	mask := domain.AllEvents
	if raw := c.Query("mask"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mask"})
			return
		}
		mask = domain.ReadinessMask(n)
	}

	ctx := c.Request.Context()
	if raw := c.Query("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeout"})
			return
		}
		if d == 0 {
			c.JSON(http.StatusOK, maskBody(h.events.Poll(mask)))
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	got, err := h.events.Wait(ctx, mask)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		// engine stopped, server shutting down or client gone
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, maskBody(got))
}

func maskBody(m domain.ReadinessMask) gin.H {
	return gin.H{
		"mask":            uint32(m),
		"new_sample":      m.Has(domain.NewSample),
		"threshold_alert": m.Has(domain.ThresholdAlert),
	}
}

func statusFor(err error) int {
	var perr *domain.ParseError
	switch {
	case errors.As(err, &perr), errors.Is(err, domain.ErrZeroPeriod):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrReadOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, domain.ErrUnknownAttribute):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Server owns the listener for the router. Request contexts derive from a
// base context that Shutdown cancels, so long-polls end with the server.
type Server struct {
	srv        *http.Server
	obs        ports.Observability
	baseCancel context.CancelFunc
}

func NewServer(addr string, router http.Handler, obs ports.Observability) *Server {
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return base },
		},
		obs:        obs,
		baseCancel: cancel,
	}
}

// Start binds the listener and serves in the background. The returned
// address is the bound one, useful when addr ends in :0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && s.obs != nil {
			s.obs.LogError("http_server_failed", err)
		}
	}()
	if s.obs != nil {
		s.obs.LogInfo("http_server_started", ports.Field{Key: "addr", Value: ln.Addr().String()})
	}
	return ln.Addr().String(), nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.baseCancel()
	return s.srv.Shutdown(ctx)
}
