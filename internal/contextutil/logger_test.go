package contextutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestLoggerFromContext(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		ctx  context.Context
		want *slog.Logger
	}{
		{
			name: "no logger falls back to default",
			ctx:  context.Background(),
			want: slog.Default(),
		},
		{
			name: "logger in context",
			ctx:  WithLogger(context.Background(), custom),
			want: custom,
		},
		{
			name: "wrong value type falls back to default",
			ctx:  context.WithValue(context.Background(), loggerKey, "not a logger"),
			want: slog.Default(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LoggerFromContext(tt.ctx); got != tt.want {
				t.Errorf("LoggerFromContext() = %p, want %p", got, tt.want)
			}
		})
	}
}

func TestLoggerOr(t *testing.T) {
	explicit := slog.New(slog.NewTextHandler(io.Discard, nil))
	carried := slog.New(slog.NewJSONHandler(io.Discard, nil))
	withCarried := WithLogger(context.Background(), carried)

	tests := []struct {
		name     string
		ctx      context.Context
		explicit *slog.Logger
		want     *slog.Logger
	}{
		{"request logger wins", withCarried, explicit, carried},
		{"request logger without fallback", withCarried, nil, carried},
		{"fallback when context has none", context.Background(), explicit, explicit},
		{"default when neither is set", context.Background(), nil, slog.Default()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LoggerOr(tt.ctx, tt.explicit); got != tt.want {
				t.Errorf("LoggerOr() = %p, want %p", got, tt.want)
			}
		})
	}
}
