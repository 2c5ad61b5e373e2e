package httpapi

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("FLUTTERWATCH_HTTP_LOG"))

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logRequest records the outcome of a mutating request at lvl.
func logRequest(r *http.Request, lvl LogLevel, status int, dur time.Duration, err error) {
	if lvl == LevelOff || (lvl == LevelError && err == nil) {
		return
	}
	if zlog != nil {
		z := zlog.Info()
		if err != nil {
			z = zlog.Warn().Err(err)
		}
		z = z.Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Dur("dur", dur)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("http request")
		return
	}
	if err != nil {
		log.Printf("%s %s status=%d dur=%s err=%v", r.Method, r.URL.Path, status, dur, err)
		return
	}
	log.Printf("%s %s status=%d dur=%s", r.Method, r.URL.Path, status, dur)
}

func logf(lvl LogLevel, format string, args ...any) {
	if zlog != nil {
		switch {
		case lvl <= LevelError:
			zlog.Error().Msgf(format, args...)
		case lvl == LevelInfo:
			zlog.Info().Msgf(format, args...)
		default:
			zlog.Debug().Msgf(format, args...)
		}
		return
	}
	if lvl <= defaultLogLevel {
		log.Printf(format, args...)
	}
}
