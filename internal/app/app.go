// Package app wires configuration, storage, the query engine and the game
// service together for the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"sqlbadlands/internal/curriculum"
	"sqlbadlands/internal/game"
	"sqlbadlands/internal/grading"
	"sqlbadlands/internal/httpapi"
	"sqlbadlands/internal/progress"
	"sqlbadlands/internal/sandbox"
	"sqlbadlands/internal/state"
	"sqlbadlands/internal/telemetry"
)

// Version is the application version curricula are checked against.
const Version = "0.1.0"

const (
	settingCurriculumVersion = "curriculum_version"
	settingAppVersion        = "app_version"
	settingLastOpened        = "last_opened"
)

type App struct {
	cfg Config

	logger     *telemetry.Logger
	store      *state.SQLiteStore
	curriculum *curriculum.Curriculum
	grader     *grading.DefaultGrader
	engine     Engine
	game       *game.Service

	sessionID  string
	engineInfo sandbox.EngineInfo
	clock      func() time.Time
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.LogPath, cfg.LogFormat, cfg.Debug)
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	c, err := curriculum.NewLoader().Load(ctx, cfg.CurriculumPath)
	if err == nil {
		err = c.CheckCompatible(Version)
	}
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	engine := sandbox.NewManager(cfg.Isolation, cfg.QueryTimeout)
	if err := engine.Open(ctx); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, fmt.Errorf("open query engine: %w", err)
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		curriculum: c,
		grader:     grading.NewGrader(c),
		engine:     engine,
		sessionID:  uuid.NewString(),
		clock:      time.Now,
	}
	opts := []game.Option{game.WithLogger(logger)}
	if cfg.RecordAttempts {
		opts = append(opts, game.WithRecorder(store))
	}
	a.game = game.NewService(c, engine, a.grader, opts...)

	info, err := engine.Detect(ctx)
	if err != nil {
		logger.Error("engine.detect_failed", map[string]any{"error": err.Error()})
		info = sandbox.EngineInfo{Name: "unavailable", Isolation: cfg.Isolation}
	}
	a.engineInfo = info
	logger.Info("app.start", map[string]any{
		"session":    a.sessionID,
		"isolation":  cfg.Isolation,
		"engine":     info.Name,
		"version":    info.Version,
		"curriculum": c.CurriculumID,
	})
	a.touchSettings(ctx)
	return a, nil
}

func (a *App) Close() {
	_ = a.engine.Close()
	_ = a.store.Close()
	_ = a.logger.Close()
}

func (a *App) Config() Config                     { return a.cfg }
func (a *App) Game() *game.Service                { return a.game }
func (a *App) Curriculum() *curriculum.Curriculum { return a.curriculum }
func (a *App) Store() state.Store                 { return a.store }
func (a *App) Logger() *telemetry.Logger          { return a.logger }
func (a *App) EngineInfo() sandbox.EngineInfo     { return a.engineInfo }

// Serve runs the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := httpapi.NewServer(a.cfg.Addr, a.game, httpapi.WithLogger(a.logger))
	if err := srv.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http.shutdown_failed", map[string]any{"error": err.Error()})
		return err
	}
	a.logger.Info("http.stopped", nil)
	return nil
}

// LoadProgress returns the stored progress record, or a fresh one.
func (a *App) LoadProgress(ctx context.Context) (*progress.Progress, error) {
	raw, err := a.store.LoadProgress(ctx, progress.StorageKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return progress.New(), nil
	}
	p, err := progress.Decode(raw)
	if err != nil {
		a.logger.Warn("progress.decode_failed", map[string]any{"error": err.Error()})
		return progress.New(), nil
	}
	return p, nil
}

func (a *App) SaveProgress(ctx context.Context, p *progress.Progress) error {
	raw, err := p.Encode()
	if err != nil {
		return err
	}
	return a.store.SaveProgress(ctx, progress.StorageKey, raw)
}

func (a *App) ResetProgress(ctx context.Context) error {
	if err := a.store.DeleteProgress(ctx, progress.StorageKey); err != nil {
		return err
	}
	a.logger.Info("progress.reset", map[string]any{"session": a.sessionID})
	return nil
}

// Play is one turn of the local game: the mission must be unlocked, the
// submission is graded, and the verdict is folded into stored progress.
type Play struct {
	Outcome  game.Outcome
	Progress *progress.Progress
	Advanced bool
}

func (a *App) Play(ctx context.Context, sub game.Submission) (Play, error) {
	p, err := a.LoadProgress(ctx)
	if err != nil {
		return Play{}, err
	}
	if _, err := a.curriculum.MissionID(sub.Chapter, sub.Mission); err != nil {
		return Play{}, err
	}
	if !p.IsUnlocked(a.curriculum, sub.Chapter, sub.Mission) {
		return Play{}, fmt.Errorf("chapter %d mission %d: %w", sub.Chapter, sub.Mission, progress.ErrLocked)
	}
	if sub.Kind == "" {
		m, _ := a.curriculum.MissionAt(sub.Chapter, sub.Mission)
		sub.Kind = game.KindQuery
		if m.IsWrite() {
			sub.Kind = game.KindCommand
		}
	}
	if sub.SessionID == "" {
		sub.SessionID = a.sessionID
	}
	out, err := a.game.Submit(ctx, sub)
	if err != nil {
		return Play{}, err
	}
	advanced := a.game.Apply(p, sub, out)
	if err := a.SaveProgress(ctx, p); err != nil {
		return Play{}, err
	}
	return Play{Outcome: out, Progress: p, Advanced: advanced}, nil
}

// Jump moves the current pointer to an unlocked mission.
func (a *App) Jump(ctx context.Context, chapter, mission int) (*progress.Progress, error) {
	p, err := a.LoadProgress(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.JumpTo(a.curriculum, chapter, mission); err != nil {
		return nil, err
	}
	if err := a.SaveProgress(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *App) Certificate(ctx context.Context) (progress.Certificate, error) {
	p, err := a.LoadProgress(ctx)
	if err != nil {
		return progress.Certificate{}, err
	}
	return p.Certificate(a.curriculum, a.clock())
}

type Stats struct {
	Summary  state.Summary
	Missions map[int]state.MissionProgress
	Last     *state.Attempt
	Settings map[string]string
}

func (a *App) Stats(ctx context.Context) (Stats, error) {
	summary, err := a.store.GetSummary(ctx)
	if err != nil {
		return Stats{}, err
	}
	missions, err := a.store.GetMissionProgressMap(ctx)
	if err != nil {
		return Stats{}, err
	}
	last, err := a.store.GetLastAttempt(ctx)
	if err != nil {
		return Stats{}, err
	}
	settings, err := a.store.LoadSettings(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Summary: summary, Missions: missions, Last: last, Settings: settings}, nil
}

// touchSettings notes the curriculum and app version last used with this
// data directory and warns when the curriculum changed underneath stored
// progress.
func (a *App) touchSettings(ctx context.Context) {
	prev, err := a.store.LoadSettings(ctx)
	if err != nil {
		a.logger.Error("settings.load_failed", map[string]any{"error": err.Error()})
		return
	}
	if v := prev[settingCurriculumVersion]; v != "" && v != a.curriculum.Version {
		a.logger.Warn("curriculum.changed", map[string]any{"previous": v, "current": a.curriculum.Version})
	}
	err = a.store.SaveSettings(ctx, map[string]string{
		settingCurriculumVersion: a.curriculum.Version,
		settingAppVersion:        Version,
		settingLastOpened:        strconv.FormatInt(a.clock().Unix(), 10),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("settings.save_failed", map[string]any{"error": err.Error()})
	}
}
