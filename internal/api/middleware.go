package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// quietPaths are polled by the editor and logged at debug on success.
var quietPaths = map[string]bool{
	"/api/health":  true,
	"/api/session": true,
	"/api/logs":    true,
}

// requestLogger logs each request once it completes. Requests under
// /api/session carry the open session id so device traffic in the hid,
// serial and network logs can be matched to the HTTP call that caused it.
func (s *Server) requestLogger(logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		method := ctx.Method()
		u := ctx.URL()
		path := u.Path

		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.String("remote_addr", ctx.RemoteAddr()),
		}
		if q := u.Query(); q.Has("auth") {
			q.Set("auth", "redacted")
			attrs = append(attrs, slog.String("query", q.Encode()))
		} else if u.RawQuery != "" {
			attrs = append(attrs, slog.String("query", u.RawQuery))
		}

		next(ctx)

		status := ctx.Status()
		attrs = append(attrs, slog.Int("status", status), slog.Duration("duration", time.Since(start)))
		if strings.HasPrefix(path, "/api/session") && s.orchestrator != nil {
			if sess, err := s.orchestrator.Session(); err == nil {
				attrs = append(attrs, slog.String("session", sess.ID))
			}
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case method == "OPTIONS", method == "GET" && quietPaths[path]:
			level = slog.LevelDebug
		}
		logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
	}
}
