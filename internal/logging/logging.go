package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

type Options struct {
	Level string
	JSON  bool
	Out   io.Writer // nil → os.Stderr
}

var def atomic.Value

func init() {
	def.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

func Configure(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	cfg := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, cfg)
	} else {
		h = slog.NewTextHandler(out, cfg)
	}
	def.Store(slog.New(h))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}

// Component returns the default logger tagged with a component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// Same variables config.Load maps onto log.level / log.json.
const (
	EnvLevel = "ETLDEMO_LOG__LEVEL"
	EnvJSON  = "ETLDEMO_LOG__JSON"
)

// InitFromEnv applies EnvLevel / EnvJSON before the config file is read, so
// errors during config loading are logged at the requested level.
func InitFromEnv() {
	json := false
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvJSON))); err == nil {
		json = b
	}
	Configure(Options{Level: os.Getenv(EnvLevel), JSON: json})
}
