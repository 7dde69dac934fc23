package state

import (
	"context"
	"time"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	RecordAttempt(ctx context.Context, attempt Attempt) error
	GetMissionProgressMap(ctx context.Context) (map[int]MissionProgress, error)
	GetSummary(ctx context.Context) (Summary, error)
	GetLastAttempt(ctx context.Context) (*Attempt, error)
	SaveProgress(ctx context.Context, key string, record []byte) error
	LoadProgress(ctx context.Context, key string) ([]byte, error)
	DeleteProgress(ctx context.Context, key string) error
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	Close() error
}

// Attempt is one graded submission. Kind is "query" or "command".
type Attempt struct {
	SessionID  string
	RunID      string
	MissionID  int
	Kind       string
	Query      string
	OK         bool
	Correct    bool
	Status     string
	DurationMS int64
	AttemptTS  time.Time
}

type Summary struct {
	Sessions int
	Attempts int
	Correct  int
	Errors   int
}

type MissionProgress struct {
	MissionID    int
	Attempts     int
	PassedCount  int
	BestTimeMS   int64
	LastPlayedTS time.Time
	LastPassedTS time.Time
}
