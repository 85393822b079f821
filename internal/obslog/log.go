// Package obslog wraps the standard log package with request/correlation
// id tagging, matching the teacher's plain log.Printf call shape rather
// than introducing a new structured-logging dependency.
package obslog

import (
	"context"
	"log"
	"os"
)

type contextKey int

const correlationIDKey contextKey = iota

var std = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func tag(ctx context.Context) string {
	if id := CorrelationID(ctx); id != "" {
		return "[" + id + "] "
	}
	return ""
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	std.Printf(tag(ctx)+format, args...)
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	std.Printf(tag(ctx)+"WARN "+format, args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	std.Printf(tag(ctx)+"ERROR "+format, args...)
}
