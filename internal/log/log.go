// Package log configures logrus and carries request scoped entries in
// contexts.
package log

import (
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// Init configures the standard logrus logger. Unknown levels fall back to
// info and any format other than "text" logs JSON.
func Init(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.StandardLogger()
	Configure(logger, level, format, out)
	return logger
}

func Configure(logger *logrus.Logger, level, format string, out io.Writer) {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	if out != nil {
		logger.SetOutput(out)
	}
	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logger.SetFormatter(&logrus.JSONFormatter{})
}

func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the entry stored by ToContext, or one on the standard
// logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && entry != nil {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
