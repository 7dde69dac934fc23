// Package game runs player submissions end to end: execute against the
// sandbox, grade, record, and fold the verdict into local progress.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sqlbadlands/internal/curriculum"
	"sqlbadlands/internal/dataset"
	"sqlbadlands/internal/grading"
	"sqlbadlands/internal/progress"
	"sqlbadlands/internal/sandbox"
	"sqlbadlands/internal/state"
	"sqlbadlands/internal/telemetry"
)

type Engine interface {
	sandbox.Runner
	sandbox.Cataloger
}

type Recorder interface {
	RecordAttempt(ctx context.Context, attempt state.Attempt) error
}

type Service struct {
	curriculum *curriculum.Curriculum
	engine     Engine
	grader     grading.Grader
	recorder   Recorder
	logger     *telemetry.Logger
	clock      func() time.Time
}

type Option func(*Service)

// WithRecorder stores every graded submission.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithLogger(l *telemetry.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(c *curriculum.Curriculum, engine Engine, grader grading.Grader, opts ...Option) *Service {
	s := &Service{
		curriculum: c,
		engine:     engine,
		grader:     grader,
		logger:     telemetry.Discard(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Curriculum() *curriculum.Curriculum { return s.curriculum }

// Submit executes the query verbatim and grades the result for the given
// chapter and mission. Engine failures are reported in the Outcome, not as
// errors.
func (s *Service) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	query := strings.TrimSpace(sub.Query)
	if query == "" {
		return Outcome{}, ErrEmptyQuery
	}
	kind := sub.Kind
	if kind == "" {
		kind = KindQuery
	}
	missionID, err := s.curriculum.MissionID(sub.Chapter, sub.Mission)
	if err != nil {
		missionID = 0
	}
	out := Outcome{RunID: uuid.NewString(), MissionID: missionID, Kind: kind}

	var res sandbox.QueryResult
	if kind == KindCommand {
		res, err = s.engine.Exec(ctx, sub.Query)
	} else {
		res, err = s.engine.Query(ctx, sub.Query)
	}
	if err != nil {
		var qerr *sandbox.QueryError
		if !errors.As(err, &qerr) {
			return Outcome{}, err
		}
		out.Message = qerr.Message
		out.Hint = qerr.Hint
		out.Status = grading.StatusFailed
		s.logger.Info("query.failed", map[string]any{"run_id": out.RunID, "mission_id": missionID, "kind": string(kind), "error": qerr.Message})
		s.record(ctx, sub, out)
		return out, nil
	}
	out.OK = true
	out.Columns = res.Columns
	out.Rows = res.Rows
	out.AffectedRows = res.AffectedRows
	out.Duration = res.Duration

	verdict, err := s.grader.Grade(ctx, grading.Request{MissionID: missionID, RunID: out.RunID, Result: res})
	if err != nil && !errors.Is(err, grading.ErrUnknownMission) {
		return Outcome{}, err
	}
	out.Correct = verdict.Passed
	out.Status = verdict.Status
	out.Message = verdict.Message
	out.StoryProgression = verdict.Narrative

	s.logger.Info("grade.result", map[string]any{
		"run_id":      out.RunID,
		"mission_id":  missionID,
		"kind":        string(kind),
		"status":      out.Status,
		"duration_ms": out.Duration.Milliseconds(),
	})
	s.record(ctx, sub, out)
	return out, nil
}

func (s *Service) record(ctx context.Context, sub Submission, out Outcome) {
	if s.recorder == nil {
		return
	}
	sessionID := sub.SessionID
	if sessionID == "" {
		sessionID = "anonymous"
	}
	err := s.recorder.RecordAttempt(ctx, state.Attempt{
		SessionID:  sessionID,
		RunID:      out.RunID,
		MissionID:  out.MissionID,
		Kind:       string(out.Kind),
		Query:      sub.Query,
		OK:         out.OK,
		Correct:    out.Correct,
		Status:     out.Status,
		DurationMS: out.Duration.Milliseconds(),
		AttemptTS:  s.clock(),
	})
	if err != nil {
		s.logger.Error("attempt.record_failed", map[string]any{"run_id": out.RunID, "error": err.Error()})
	}
}

func (s *Service) Chapter(number int) (ChapterView, error) {
	ch, err := s.curriculum.Chapter(number)
	if err != nil {
		return ChapterView{}, err
	}
	view := ChapterView{
		Number:       ch.Number,
		Title:        ch.Title,
		Narration:    ch.Narration,
		MissionCount: len(ch.Missions),
		Missions:     make([]MissionView, 0, len(ch.Missions)),
	}
	for _, m := range ch.Missions {
		view.Missions = append(view.Missions, missionView(m))
	}
	return view, nil
}

func (s *Service) Missions() []MissionView {
	missions := s.curriculum.Missions()
	out := make([]MissionView, 0, len(missions))
	for _, m := range missions {
		out = append(out, missionView(m))
	}
	return out
}

func missionView(m curriculum.Mission) MissionView {
	return MissionView{ID: m.ID, Chapter: m.Chapter, Number: m.Number, Text: m.Text, Kind: m.Kind, Hint: m.Hint}
}

func (s *Service) Catalog(ctx context.Context) ([]dataset.Table, error) {
	return s.engine.Catalog(ctx)
}

// Verify runs every reference solution through the engine and grader.
func (s *Service) Verify(ctx context.Context, parallelism int) ([]Verification, error) {
	type job struct {
		mission  curriculum.Mission
		solution string
	}
	jobs := []job{}
	for _, m := range s.curriculum.Missions() {
		for _, sol := range m.ReferenceSolutions {
			jobs = append(jobs, job{mission: m, solution: sol})
		}
	}
	out := make([]Verification, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, j := range jobs {
		g.Go(func() error {
			v := Verification{MissionID: j.mission.ID, Chapter: j.mission.Chapter, Mission: j.mission.Number, Solution: j.solution}
			var (
				res sandbox.QueryResult
				err error
			)
			if j.mission.IsWrite() {
				res, err = s.engine.Exec(gctx, j.solution)
			} else {
				res, err = s.engine.Query(gctx, j.solution)
			}
			if err != nil {
				var qerr *sandbox.QueryError
				if !errors.As(err, &qerr) {
					return fmt.Errorf("mission %d: %w", j.mission.ID, err)
				}
				v.Status = grading.StatusFailed
				v.Error = qerr.Error()
				out[i] = v
				return nil
			}
			verdict, err := s.grader.Grade(gctx, grading.Request{MissionID: j.mission.ID, Result: res})
			if err != nil {
				return fmt.Errorf("mission %d: %w", j.mission.ID, err)
			}
			v.Passed = verdict.Passed
			v.Status = verdict.Status
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply folds a graded submission into the player's progress: the query
// joins the history and a correct answer completes the mission and moves
// the pointer on when it was the current one.
func (s *Service) Apply(p *progress.Progress, sub Submission, out Outcome) (advanced bool) {
	now := s.clock()
	p.Record(progress.Entry{
		Query:         sub.Query,
		Success:       out.OK && out.Correct,
		ExecutionTime: out.Duration.Milliseconds(),
		Timestamp:     now,
		Chapter:       sub.Chapter,
		Mission:       sub.Mission,
	})
	if !out.Correct {
		return false
	}
	p.Complete(s.curriculum, sub.Chapter, sub.Mission, now)
	if p.Chapter == sub.Chapter && p.Mission == sub.Mission {
		return p.Advance(s.curriculum)
	}
	return false
}
