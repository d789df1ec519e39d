package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLevelVarIsLive(t *testing.T) {
	lv := NewLevelVar("info")
	if lv.Level() != slog.LevelInfo {
		t.Fatalf("expected info, got %v", lv.Level())
	}

	lv.Set(slog.LevelDebug)
	if lv.Level() != slog.LevelDebug {
		t.Fatalf("expected Set to mutate the live level, got %v", lv.Level())
	}
}

func TestNewBuildsLoggerRespectingLevelVar(t *testing.T) {
	lv := NewLevelVar("warn")
	logger := New("test-service", lv)
	ctx := context.Background()
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Fatal("expected info records to be filtered out at warn level")
	}

	lv.Set(slog.LevelDebug)
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Fatal("expected lowering the level var to re-enable info records")
	}
}
