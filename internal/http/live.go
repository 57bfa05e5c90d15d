package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/Clark-Hu/care-map/internal/live"
)

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("live: upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	conn := live.NewConn(ws, live.ConnOptions{
		SendBuffer:   s.cfg.WSSendBuffer,
		WriteTimeout: s.cfg.WSWriteTimeout,
		PingInterval: s.cfg.WSPingInterval,
		PongTimeout:  s.cfg.WSPongTimeout,
		Clock:        s.clock,
		Logger:       s.logger,
	})
	logger := s.logger.With("subscriber_id", conn.ID().String(), "remote_addr", r.RemoteAddr)

	if err := s.coord.Subscribe(r.Context(), conn); err != nil {
		logger.Error("live: subscribe failed", "error", err)
		return
	}
	logger.Info("live: subscriber connected", "subscribers", s.coord.Subscribers())

	err = conn.ReadLoop()
	s.coord.Unsubscribe(conn.ID())
	logger.Info("live: subscriber disconnected", "reason", err)
}

// newCheckOrigin allows requests without an Origin header, any origin when
// the list contains "*", and otherwise exact matches only.
func newCheckOrigin(allowed []string, logger *slog.Logger) func(r *http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		logger.Warn("live: origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}
