// Package logging provides the framework's structured logging sinks.
//
// Framework packages obtain named loggers with [Logger]; applications tune
// verbosity per subsystem with [SetLevel], which matches logger names by
// prefix ("state" covers "state.cached"). Output goes to stderr as text by
// default and can be redirected with [Configure].
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config controls the shared log output.
type Config struct {
	// Output receives formatted records. Defaults to os.Stderr.
	Output io.Writer

	// Format is "text" or "json". Defaults to "text".
	Format string

	// Level is the default minimum level for loggers without a more
	// specific SetLevel rule.
	Level slog.Level
}

var state = struct {
	sync.RWMutex
	base         slog.Handler
	defaultLevel slog.Level
	levels       map[string]slog.Level
}{
	base:         slog.NewTextHandler(os.Stderr, nil),
	defaultLevel: slog.LevelInfo,
	levels:       map[string]slog.Level{},
}

// Configure replaces the shared output sink. It affects loggers already
// created by Logger.
func Configure(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	state.Lock()
	state.base = h
	state.defaultLevel = cfg.Level
	state.Unlock()
}

// SetLevel sets the minimum level for loggers whose name starts with
// prefix. The longest matching prefix wins; the empty prefix sets the
// default for all loggers.
func SetLevel(prefix string, level slog.Level) {
	state.Lock()
	if prefix == "" {
		state.defaultLevel = level
	} else {
		state.levels[prefix] = level
	}
	state.Unlock()
}

// ResetLevels drops all prefix rules. Intended for tests.
func ResetLevels() {
	state.Lock()
	state.levels = map[string]slog.Level{}
	state.defaultLevel = slog.LevelInfo
	state.Unlock()
}

// Logger returns a named logger backed by the shared sink. Records carry a
// "logger" attribute with the given name.
func Logger(name string) *slog.Logger {
	return slog.New(&namedHandler{name: name}).With(slog.String("logger", name))
}

func levelFor(name string) slog.Level {
	state.RLock()
	defer state.RUnlock()
	best := -1
	level := state.defaultLevel
	for prefix, l := range state.levels {
		if strings.HasPrefix(name, prefix) && len(prefix) > best {
			best = len(prefix)
			level = l
		}
	}
	return level
}

// namedHandler filters by the logger's registered level and forwards to
// the shared base handler, so Configure retargets existing loggers.
type namedHandler struct {
	name   string
	attrs  []slog.Attr
	groups []string
}

func (h *namedHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= levelFor(h.name)
}

func (h *namedHandler) Handle(ctx context.Context, r slog.Record) error {
	if len(h.attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(h.attrs...)
	}
	state.RLock()
	base := state.base
	state.RUnlock()
	return base.Handle(ctx, r)
}

func (h *namedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	qualified := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if p := strings.Join(h.groups, "."); p != "" {
			a.Key = p + "." + a.Key
		}
		qualified = append(qualified, a)
	}
	next := &namedHandler{name: h.name, groups: h.groups}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), qualified...)
	return next
}

func (h *namedHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := &namedHandler{name: h.name, attrs: h.attrs}
	next.groups = append(append([]string{}, h.groups...), name)
	return next
}
