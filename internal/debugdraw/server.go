package debugdraw

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	Path         = "/debug"
	writeTimeout = 2 * time.Second
)

// Server pushes the recorder's latest frame to every connected viewer at a
// fixed rate. Frames a viewer has already seen are not resent.
type Server struct {
	rec      *Recorder
	interval time.Duration
	upgrader websocket.Upgrader
	log      *logrus.Entry
	viewers  atomic.Int32
}

func NewServer(rec *Recorder, rate int, log *logrus.Logger) *Server {
	if rate <= 0 {
		rate = 30
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		rec:      rec,
		interval: time.Second / time.Duration(rate),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.WithField("component", "debugdraw"),
	}
}

// Viewers reports how many websocket clients are connected.
func (s *Server) Viewers() int {
	return int(s.viewers.Load())
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, s)
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.viewers.Add(1)
	defer s.viewers.Add(-1)
	log := s.log.WithField("remote", r.RemoteAddr)
	log.Info("viewer connected")

	// viewers never send anything; reading detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-closed:
			log.Info("viewer disconnected")
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			f := s.rec.Latest()
			if f == nil || f.Seq == sent {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(f); err != nil {
				log.WithError(err).Warn("write frame failed")
				return
			}
			sent = f.Seq
		}
	}
}

// ListenAndServe serves viewers on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("debug draw server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
