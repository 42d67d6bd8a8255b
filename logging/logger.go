// Package logging builds the service logger and carries a per-request
// entry through context.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New builds a logger writing to stdout. format is "json" or "text".
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Discard is a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// WithEntry stores a request-scoped entry in ctx.
func WithEntry(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// FromContext returns the entry stored by the request middleware, or a
// fresh entry on base when there is none.
func FromContext(ctx context.Context, base *logrus.Logger) *logrus.Entry {
	if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && e != nil {
		return e
	}
	return logrus.NewEntry(base)
}
