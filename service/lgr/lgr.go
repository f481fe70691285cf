// Package lgr provides the shared application logger. It wraps slog with a
// JSON handler that duplicates records to stdout and a rotating log file,
// formats go-xerrors stack traces, and stamps OTEL span ids from the context.
// In dev mode a colorized text handler is used instead.
package lgr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"
	"go.opentelemetry.io/otel/trace"
)

var Logger *slog.Logger

func init() {
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		Logger = slog.New(spanHandler{next: newDevHandler(os.Stdout, slog.LevelDebug)})
		return
	}

	fileSink := &lumberjack.Logger{
		Filename:   "fd-go.log",
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     7,    // days
		Compress:   true, // compress old logs
	}

	jsonHandler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, fileSink), &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: replaceAttr,
	})
	Logger = slog.New(spanHandler{next: jsonHandler})
}

// spanHandler attaches the OTEL trace/span ids to every record whose context
// carries a valid span.
type spanHandler struct {
	next slog.Handler
}

func (h spanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h spanHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("traceId", sc.TraceID().String()),
			slog.String("spanId", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h spanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanHandler{next: h.next.WithAttrs(attrs)}
}

func (h spanHandler) WithGroup(name string) slog.Handler {
	return spanHandler{next: h.next.WithGroup(name)}
}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindAny {
		if err, ok := a.Value.Any().(error); ok {
			a.Value = fmtErr(err)
		}
	}
	return a
}

// fmtErr renders an error as a group value with its message and, when the
// error carries a go-xerrors stack trace, the trace frames.
func fmtErr(err error) slog.Value {
	groupValues := []slog.Attr{
		slog.String("msg", err.Error()),
	}

	if frames := marshalStack(err); frames != nil {
		groupValues = append(groupValues, slog.Any("trace", frames))
	}

	return slog.GroupValue(groupValues...)
}

func marshalStack(err error) []stackFrame {
	stack := xerrors.StackTrace(err)
	if len(stack) == 0 {
		return nil
	}

	frames := stack.Frames()
	s := make([]stackFrame, len(frames))
	for i, v := range frames {
		s[i] = stackFrame{
			Func: filepath.Base(v.Function),
			Source: filepath.Join(
				filepath.Base(filepath.Dir(v.File)),
				filepath.Base(v.File),
			),
			Line: v.Line,
		}
	}

	return s
}

// devHandler is a human-oriented text handler for local runs.
type devHandler struct {
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
}

func newDevHandler(out io.Writer, level slog.Level) *devHandler {
	return &devHandler{out: out, level: level}
}

func (h *devHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *devHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Time.Format("15:04:05.000"))
	sb.WriteByte(' ')
	sb.WriteString(levelColor(r.Level).Sprintf("%-5s", r.Level.String()))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)

	for _, a := range h.attrs {
		sb.WriteString(fmt.Sprintf(" %s=%v", a.Key, a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		sb.WriteString(fmt.Sprintf(" %s=%v", a.Key, a.Value))
		return true
	})
	sb.WriteByte('\n')

	_, err := io.WriteString(h.out, sb.String())
	return err
}

func (h *devHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &devHandler{out: h.out, level: h.level, attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)}
}

func (h *devHandler) WithGroup(_ string) slog.Handler {
	return h
}

func levelColor(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return color.New(color.FgRed)
	case l >= slog.LevelWarn:
		return color.New(color.FgYellow)
	case l >= slog.LevelInfo:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgCyan)
	}
}
