package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// logSink is one destination for log lines. Lines below min are skipped.
type logSink struct {
	w   io.Writer
	min slog.Level
}

// lineHandler writes one tab-separated line per record:
//
//	<timestamp>\t<LEVEL>\t<session>\t<message>[\t<key>=<value>...]
//
// Values holding tabs, newlines, control characters, quotes or invalid UTF-8
// are quoted so a record never spans more than one line. Handlers derived
// with WithAttrs or WithGroup share the sinks and their lock.
type lineHandler struct {
	mu      *sync.Mutex
	sinks   []logSink
	session string
	prefix  string // group path, "" or "a.b."
	pre     []byte // rendered WithAttrs fields
}

func newLineHandler(session string, sinks ...logSink) *lineHandler {
	return &lineHandler{mu: &sync.Mutex{}, sinks: sinks, session: session}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if level >= s.min {
			return true
		}
	}
	return false
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var line bytes.Buffer
	line.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&line, "\t%s\t%s\t%s", r.Level, h.session, quoteField(r.Message))
	line.Write(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&line, h.prefix, a)
		return true
	})
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	var firstErr error
	for _, s := range h.sinks {
		if r.Level < s.min {
			continue
		}
		if _, err := s.w.Write(line.Bytes()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var pre bytes.Buffer
	pre.Write(h.pre)
	for _, a := range attrs {
		appendAttr(&pre, h.prefix, a)
	}
	next := *h
	next.pre = pre.Bytes()
	return &next
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			appendAttr(buf, inner, g)
		}
		return
	}
	fmt.Fprintf(buf, "\t%s%s=%s", prefix, a.Key, quoteField(a.Value.String()))
}

// quoteField leaves plain tokens alone and Go-quotes anything else.
func quoteField(s string) string {
	if s == "" {
		return `""`
	}
	if !utf8.ValidString(s) || strings.IndexFunc(s, func(r rune) bool {
		return r == '"' || r != ' ' && (unicode.IsSpace(r) || unicode.IsControl(r))
	}) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

// newLogger opens logDir/edusphere.log for appending and returns a logger for
// the given session. Everything goes to the file; when stderr is set, Info and
// above are mirrored there too.
func newLogger(logDir, session string, stderr io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "edusphere.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	sinks := []logSink{{w: f, min: slog.LevelDebug}}
	if stderr != nil {
		sinks = append(sinks, logSink{w: stderr, min: slog.LevelInfo})
	}
	return slog.New(newLineHandler(session, sinks...)), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the portal.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
