package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	nats "github.com/nats-io/nats.go"
	"github.com/nsyszr/rtdb/config"
	"github.com/nsyszr/rtdb/pkg/api"
	"github.com/nsyszr/rtdb/pkg/auth"
	"github.com/nsyszr/rtdb/pkg/realtime"
	"github.com/nsyszr/rtdb/pkg/realtime/dispatch"
	"github.com/nsyszr/rtdb/pkg/realtime/handlers"
	"github.com/nsyszr/rtdb/pkg/realtime/notify"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	"github.com/nsyszr/rtdb/pkg/storage"
	"github.com/nsyszr/rtdb/pkg/storage/memory"
	"github.com/nsyszr/rtdb/pkg/storage/postgres"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type realtimeServer struct {
	c *config.Config

	quitCh chan bool
	doneCh chan bool

	nc *nats.Conn
	db *sqlx.DB
}

func init() {
	formatter := &logrus.TextFormatter{
		FullTimestamp: true,
	}
	logrus.SetFormatter(formatter)

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	log.SetLevel(log.InfoLevel)
}

func newRealtimeServer(c *config.Config) (*realtimeServer, error) {
	s := &realtimeServer{
		c:      c,
		quitCh: make(chan bool),
		doneCh: make(chan bool),
	}

	// The event bus is optional, without it change events stay local to
	// this process.
	if c.NATSServerURL != "" {
		nc, err := nats.Connect(c.NATSServerURL,
			nats.DrainTimeout(10*time.Second),
			nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
				log.Error("nats error: ", err)
			}))
		if err != nil {
			return nil, err
		}
		s.nc = nc
	}

	return s, nil
}

func (s *realtimeServer) newStore() (storage.Interface, error) {
	if s.c.DatabaseURL == "" {
		log.Warn("no database URL configured, using in-memory storage")
		return memory.NewStore(), nil
	}

	db, err := sqlx.Open("postgres", s.c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s.db = db

	return postgres.NewStore(db), nil
}

func (s *realtimeServer) Serve() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())

	store, err := s.newStore()
	if err != nil {
		log.Error("failed to set up storage: ", err)
		os.Exit(1)
	}

	issuer := auth.NewIssuer(s.c.JWTSecret, s.c.AccessTokenTTL)
	sessions := auth.NewSessionManager(store, auth.NewBcryptVerifier(), issuer,
		s.c.RefreshTokenTTL, s.c.RefreshTokenRotate)

	reg := registry.New()
	notifier := notify.New(reg, s.nc)

	dispatcher := dispatch.New(reg, store, issuer)
	handlers.New(store, sessions, notifier).RegisterAll(dispatcher)

	// Register realtime and API endpoints
	realtime.NewHandler(reg, dispatcher).RegisterRoutes(e)
	api.NewHandler(s.nc, store, reg).RegisterRoutes(e)

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)); err != nil {
			e.Logger.Info("Shutting down the server")
		}
	}()

	// Wait until receiving the quit signal
	<-s.quitCh
	log.Info("Shutdown signal received")

	// Create a 10 second timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the echo web server
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error(err)
	}

	if s.db != nil {
		s.db.Close()
	}

	// We've done!
	s.doneCh <- true
}

func (s *realtimeServer) Shutdown() {
	if s.nc != nil {
		s.nc.Drain()
	}

	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	// Wait up to 10 seconds
	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(10 * time.Second):
		log.Error("Shutdown server failed")
	}
}

// RunServeRealtime returns the cobra run function for the realtime server.
func RunServeRealtime(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newRealtimeServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		go s.Serve()

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt)
		<-quitCh

		// Shutdown the server
		s.Shutdown()
	}
}

// Logger returns a middleware that logs HTTP requests.
func logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			var err error
			if err = next(c); err != nil {
				c.Error(err)
			}
			stop := time.Now()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = res.Header().Get(echo.HeaderXRequestID)
			}
			reqSizeStr := req.Header.Get(echo.HeaderContentLength)
			if reqSizeStr == "" {
				reqSizeStr = "0"
			}
			reqSize, err := strconv.ParseInt(reqSizeStr, 10, 0)
			if err != nil {
				reqSize = -1
			}
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}

			log.WithFields(log.Fields{
				"timestamp":     stop.Format(time.RFC3339),
				"id":            id,
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"method":        req.Method,
				"uri":           req.RequestURI,
				"protocol":      req.Proto,
				"user_agent":    req.UserAgent(),
				"status":        res.Status,
				"status_text":   http.StatusText(res.Status),
				"referer":       req.Referer(),
				"error":         errMsg,
				"bytes_in":      reqSize,
				"bytes_out":     res.Size,
				"latency":       stop.Sub(start).Nanoseconds(),
				"latency_human": stop.Sub(start).String(),
			}).Infof("%s %s %s %d %s", req.Method, req.RequestURI, req.Proto,
				res.Status, strconv.FormatInt(res.Size, 10))

			return err
		}
	}
}
