package rpc

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/fhe2048/events"
)

// streamBuffer is how many events a slow websocket subscriber may lag
// behind before events are dropped for it.
const streamBuffer = 64

// Server is a JSON-RPC 2.0 HTTP server. POST / carries calls and GET /ws
// streams ledger events.
type Server struct {
	handler *Handler
	emitter *events.Emitter
	addr    string
	secret  []byte // empty → no auth required
	log     *slog.Logger
	echo    *echo.Echo
	tls     *tls.Config
}

// NewServer creates a Server on addr. If secret is non-empty, every request
// must carry an HS256 bearer token signed with it.
func NewServer(addr string, handler *Handler, emitter *events.Emitter, secret []byte, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{handler: handler, emitter: emitter, addr: addr, secret: secret, log: log}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(s.authenticate)
	e.POST("/", s.serveRPC)
	e.GET("/ws", s.serveEvents)
	s.echo = e
	return s
}

// UseTLS makes Run serve HTTPS with cfg. Call before Run.
func (s *Server) UseTLS(cfg *tls.Config) { s.tls = cfg }

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run binds addr and serves until ctx is cancelled, then shuts down
// gracefully, waiting up to 5 seconds for in-flight requests.
func (s *Server) Run(ctx context.Context, ready func(addr net.Addr)) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	if s.tls != nil {
		ln = tls.NewListener(ln, s.tls)
	}
	s.echo.Listener = ln
	if ready != nil {
		ready(ln.Addr())
	}
	s.log.Info("rpc listening", "addr", ln.Addr().String(), "tls", s.tls != nil)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(s.secret) == 0 {
			return next(c)
		}
		raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok {
			return c.JSON(http.StatusUnauthorized, errResponse(nil, CodeUnauthorized, "unauthorized", ""))
		}
		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			s.log.Debug("rejected token", "error", err)
			return c.JSON(http.StatusUnauthorized, errResponse(nil, CodeUnauthorized, "unauthorized", ""))
		}
		return next(c)
	}
}

func (s *Server) serveRPC(c echo.Context) error {
	var req Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusOK, errResponse(nil, CodeParseError, err.Error(), ""))
	}
	if req.JSONRPC != "2.0" {
		return c.JSON(http.StatusOK, errResponse(req.ID, CodeInvalidRequest, "jsonrpc must be '2.0'", ""))
	}
	return c.JSON(http.StatusOK, s.handler.Dispatch(c.Request().Context(), req))
}

// serveEvents forwards every emitted event to the websocket peer as JSON.
func (s *Server) serveEvents(c echo.Context) error {
	id := uuid.New()
	log := s.log.With("subscriber", id.String())

	// Subscribe before the handshake completes so the peer sees every event
	// emitted after Dial returns.
	ch := make(chan events.Event, streamBuffer)
	unsubscribe := s.emitter.SubscribeAll(func(ev events.Event) {
		select {
		case ch <- ev:
		default:
			log.Warn("subscriber lagging, event dropped", "type", ev.Type)
		}
	})
	defer unsubscribe()

	conn, err := websocket.Accept(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error("failed to accept", "err", err)
		return nil
	}
	log.Debug("event subscriber connected")

	ctx := conn.CloseRead(c.Request().Context())
	for {
		select {
		case <-ctx.Done():
			log.Debug("event subscriber gone")
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case ev := <-ch:
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				log.Debug("event write failed", "err", err)
				return nil
			}
		}
	}
}
