package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sqlbadlands/internal/game"
	"sqlbadlands/internal/progress"
	"sqlbadlands/internal/sandbox"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.LogPath = filepath.Join(dir, "test.log")
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := Config{DataDir: "/tmp/sqlbadlands-test"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Isolation != sandbox.IsolationSnapshot {
		t.Fatalf("expected snapshot isolation, got %q", cfg.Isolation)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.QueryTimeout)
	}
	if cfg.LogPath != filepath.Join("/tmp/sqlbadlands-test", "sqlbadlands.log") {
		t.Fatalf("unexpected log path: %q", cfg.LogPath)
	}
	if cfg.Addr == "" || cfg.LogFormat != "json" {
		t.Fatalf("expected addr and log format defaults, got %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []Config{
		{DataDir: "x", Isolation: "docker"},
		{DataDir: "x", LogFormat: "xml"},
		{DataDir: "x", QueryTimeout: -time.Second},
	}
	for _, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(map[string]string{
		"SQLBADLANDS_ISOLATION":       "rollback",
		"SQLBADLANDS_QUERY_TIMEOUT":   "750ms",
		"SQLBADLANDS_RECORD_ATTEMPTS": "false",
		"ISOLATION":                   "ignored",
	})
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Isolation != sandbox.IsolationRollback {
		t.Fatalf("expected rollback, got %q", cfg.Isolation)
	}
	if cfg.QueryTimeout != 750*time.Millisecond {
		t.Fatalf("unexpected timeout %s", cfg.QueryTimeout)
	}
	if cfg.RecordAttempts {
		t.Fatalf("expected record attempts disabled")
	}
	if cfg.Addr != DefaultConfig().Addr {
		t.Fatalf("unset variables must keep defaults, got addr %q", cfg.Addr)
	}
}

func TestPlayPersistsProgressAndAttempts(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	play, err := a.Play(ctx, game.Submission{Query: "SELECT * FROM Characters", Chapter: 1, Mission: 1})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !play.Outcome.Correct || !play.Advanced {
		t.Fatalf("expected correct and advanced, got %+v", play)
	}

	p, err := a.LoadProgress(ctx)
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if !p.IsCompleted(1, 1) || p.Chapter != 1 || p.Mission != 2 {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if len(p.History) != 1 || !p.History[0].Success {
		t.Fatalf("expected one successful history entry, got %+v", p.History)
	}

	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Summary.Attempts != 1 || stats.Summary.Correct != 1 {
		t.Fatalf("unexpected summary: %+v", stats.Summary)
	}
	if stats.Last == nil || stats.Last.MissionID != 1 {
		t.Fatalf("unexpected last attempt: %+v", stats.Last)
	}
	if stats.Settings[settingCurriculumVersion] != a.Curriculum().Version {
		t.Fatalf("expected curriculum version setting, got %+v", stats.Settings)
	}
}

func TestPlayRejectsLockedMission(t *testing.T) {
	a := newTestApp(t)

	_, err := a.Play(context.Background(), game.Submission{Query: "SELECT 1", Chapter: 2, Mission: 1})
	if !errors.Is(err, progress.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	_, err = a.Play(context.Background(), game.Submission{Query: "SELECT 1", Chapter: 9, Mission: 1})
	if err == nil {
		t.Fatalf("expected error for unknown chapter")
	}
}

func TestJumpAndReset(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	if _, err := a.Jump(ctx, 1, 2); !errors.Is(err, progress.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if _, err := a.Play(ctx, game.Submission{Query: "SELECT * FROM Characters", Chapter: 1, Mission: 1}); err != nil {
		t.Fatalf("play: %v", err)
	}
	p, err := a.Jump(ctx, 1, 1)
	if err != nil {
		t.Fatalf("jump back: %v", err)
	}
	if p.Mission != 1 {
		t.Fatalf("expected pointer on mission 1, got %d", p.Mission)
	}

	if err := a.ResetProgress(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	p, err = a.LoadProgress(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.CompletedCount() != 0 || p.Chapter != 1 || p.Mission != 1 {
		t.Fatalf("expected fresh progress, got %+v", p)
	}
}

func TestFullPlaythroughEarnsCertificate(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	if _, err := a.Certificate(ctx); !errors.Is(err, progress.ErrNotComplete) {
		t.Fatalf("expected ErrNotComplete, got %v", err)
	}
	for _, m := range a.Curriculum().Missions() {
		if len(m.ReferenceSolutions) == 0 {
			t.Fatalf("mission %d has no reference solution", m.ID)
		}
		play, err := a.Play(ctx, game.Submission{Query: m.ReferenceSolutions[0], Chapter: m.Chapter, Mission: m.Number})
		if err != nil {
			t.Fatalf("mission %d: %v", m.ID, err)
		}
		if !play.Outcome.Correct {
			t.Fatalf("mission %d: reference solution graded %q: %s", m.ID, play.Outcome.Status, play.Outcome.Message)
		}
	}
	cert, err := a.Certificate(ctx)
	if err != nil {
		t.Fatalf("certificate: %v", err)
	}
	if cert.MissionsCompleted != a.Curriculum().TotalMissions() {
		t.Fatalf("unexpected missions completed: %d", cert.MissionsCompleted)
	}
	if !strings.HasPrefix(cert.Code, "SQL-") || len(cert.Code) != 12 {
		t.Fatalf("unexpected achievement code %q", cert.Code)
	}
}
