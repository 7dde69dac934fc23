package grading

import (
	"errors"

	"sqlbadlands/internal/sandbox"
)

const (
	ResultKind    = "grader_result"
	SchemaVersion = 1
)

const (
	StatusPassed         = "passed"
	StatusFailed         = "failed"
	StatusUnknownMission = "unknown_mission"
	StatusMalformed      = "malformed"
)

const (
	MessageCorrect         = "Correct! Mission complete."
	MessageIncorrect       = "Not quite right. Check your query and try again."
	MessageCommandExecuted = "Command executed successfully."
	MessageNoValidation    = "Query executed, but no validation available for this mission."
	MessageMalformed       = "Query error or incorrect result format."
)

var (
	ErrUnknownMission = errors.New("unknown mission")

	errMalformed = errors.New("malformed result")
)

type Request struct {
	MissionID int
	RunID     string
	Result    sandbox.QueryResult
}

type Result struct {
	Kind          string `json:"kind"`
	SchemaVersion int    `json:"schema_version"`

	RunID     string `json:"run_id,omitempty"`
	MissionID int    `json:"mission_id"`
	Chapter   int    `json:"chapter,omitempty"`
	Mission   int    `json:"mission,omitempty"`

	Passed    bool          `json:"passed"`
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	Narrative string        `json:"narrative,omitempty"`
	Checks    []CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Passed  bool   `json:"passed"`
	Summary string `json:"summary,omitempty"`
	Message string `json:"message,omitempty"`
}

type evaluation struct {
	Passed  bool
	Summary string
	Message string
}
