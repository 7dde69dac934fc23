package game

import (
	"errors"
	"time"
)

type Kind string

const (
	KindQuery   Kind = "query"
	KindCommand Kind = "command"
)

var ErrEmptyQuery = errors.New("no query provided")

type Submission struct {
	SessionID string
	Query     string
	Chapter   int
	Mission   int
	Kind      Kind
}

// Outcome is the player-facing answer to a submission. OK is false when the
// engine rejected the statement; Message then carries the engine's text.
type Outcome struct {
	RunID     string
	MissionID int
	Kind      Kind

	OK           bool
	Columns      []string
	Rows         []map[string]any
	AffectedRows int64
	Duration     time.Duration

	Correct          bool
	Status           string
	Message          string
	Hint             string
	StoryProgression string
}

type ChapterView struct {
	Number       int           `json:"number"`
	Title        string        `json:"title"`
	Narration    string        `json:"narration"`
	MissionCount int           `json:"missionCount"`
	Missions     []MissionView `json:"missions"`
}

type MissionView struct {
	ID      int    `json:"id"`
	Chapter int    `json:"chapter"`
	Number  int    `json:"mission"`
	Text    string `json:"text"`
	Kind    string `json:"kind"`
	Hint    string `json:"hint,omitempty"`
}

type Verification struct {
	MissionID int
	Chapter   int
	Mission   int
	Solution  string
	Passed    bool
	Status    string
	Error     string
}
