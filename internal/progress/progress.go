// Package progress tracks a player's position, completed missions and query
// history, and derives mission unlock state from them.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// StorageKey namespaces the serialized progress record in local storage.
const StorageKey = "sqlBadlandsProgress"

const HistoryLimit = 50

var (
	ErrLocked      = errors.New("mission is locked")
	ErrOutOfRange  = errors.New("mission out of range")
	ErrNotComplete = errors.New("not every mission is completed")
)

type Status string

const (
	StatusLocked    Status = "locked"
	StatusAvailable Status = "available"
	StatusCurrent   Status = "current"
	StatusCompleted Status = "completed"
)

// Layout describes how many missions each chapter holds, in order.
type Layout interface {
	ChapterSizes() []int
}

type Entry struct {
	Query         string    `json:"query"`
	Success       bool      `json:"success"`
	ExecutionTime int64     `json:"executionTime"`
	Timestamp     time.Time `json:"timestamp"`
	Chapter       int       `json:"chapter"`
	Mission       int       `json:"mission"`
}

type Progress struct {
	Chapter      int           `json:"chapter"`
	Mission      int           `json:"mission"`
	Completed    map[int][]int `json:"completedMissions"`
	History      []Entry       `json:"queryHistory"`
	TotalQueries int           `json:"totalQueries"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

func New() *Progress {
	return &Progress{Chapter: 1, Mission: 1, Completed: map[int][]int{}, History: []Entry{}}
}

// Decode parses a stored record. Missing fields fall back to a fresh start.
func Decode(b []byte) (*Progress, error) {
	p := New()
	if len(b) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if p.Chapter < 1 {
		p.Chapter = 1
	}
	if p.Mission < 1 {
		p.Mission = 1
	}
	if p.Completed == nil {
		p.Completed = map[int][]int{}
	}
	if p.History == nil {
		p.History = []Entry{}
	}
	if len(p.History) > HistoryLimit {
		p.History = p.History[:HistoryLimit]
	}
	return p, nil
}

func (p *Progress) Encode() ([]byte, error) {
	return json.Marshal(p)
}

func (p *Progress) IsCompleted(chapter, mission int) bool {
	for _, m := range p.Completed[chapter] {
		if m == mission {
			return true
		}
	}
	return false
}

// MarkCompleted adds mission to the completed set. It never removes
// anything and reports whether the mission was newly completed.
func (p *Progress) MarkCompleted(chapter, mission int) bool {
	if p.IsCompleted(chapter, mission) {
		return false
	}
	if p.Completed == nil {
		p.Completed = map[int][]int{}
	}
	set := append(p.Completed[chapter], mission)
	sort.Ints(set)
	p.Completed[chapter] = set
	return true
}

// IsUnlocked reports whether mission is the first overall or its
// predecessor is completed.
func (p *Progress) IsUnlocked(l Layout, chapter, mission int) bool {
	sizes := l.ChapterSizes()
	if !inRange(sizes, chapter, mission) {
		return false
	}
	if chapter == 1 && mission == 1 {
		return true
	}
	if mission > 1 {
		return p.IsCompleted(chapter, mission-1)
	}
	return p.IsCompleted(chapter-1, sizes[chapter-2])
}

func (p *Progress) Status(l Layout, chapter, mission int) Status {
	switch {
	case p.IsCompleted(chapter, mission):
		return StatusCompleted
	case chapter == p.Chapter && mission == p.Mission:
		return StatusCurrent
	case p.IsUnlocked(l, chapter, mission):
		return StatusAvailable
	default:
		return StatusLocked
	}
}

// Record prepends a history entry, keeping the newest HistoryLimit.
func (p *Progress) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Chapter == 0 {
		e.Chapter = p.Chapter
	}
	if e.Mission == 0 {
		e.Mission = p.Mission
	}
	p.History = append([]Entry{e}, p.History...)
	if len(p.History) > HistoryLimit {
		p.History = p.History[:HistoryLimit]
	}
	p.TotalQueries++
}

// Advance moves the pointer to the mission after the current one. It
// returns false when the current mission is the last one.
func (p *Progress) Advance(l Layout) bool {
	sizes := l.ChapterSizes()
	if !inRange(sizes, p.Chapter, p.Mission) {
		return false
	}
	if p.Mission < sizes[p.Chapter-1] {
		p.Mission++
		return true
	}
	if p.Chapter < len(sizes) {
		p.Chapter++
		p.Mission = 1
		return true
	}
	return false
}

// JumpTo moves the pointer to any unlocked mission.
func (p *Progress) JumpTo(l Layout, chapter, mission int) error {
	if !inRange(l.ChapterSizes(), chapter, mission) {
		return fmt.Errorf("chapter %d mission %d: %w", chapter, mission, ErrOutOfRange)
	}
	if !p.IsUnlocked(l, chapter, mission) && !p.IsCompleted(chapter, mission) {
		return fmt.Errorf("chapter %d mission %d: %w", chapter, mission, ErrLocked)
	}
	p.Chapter, p.Mission = chapter, mission
	return nil
}

func (p *Progress) CompletedCount() int {
	n := 0
	for _, set := range p.Completed {
		n += len(set)
	}
	return n
}

// ChaptersMastered counts chapters whose missions are all completed.
func (p *Progress) ChaptersMastered(l Layout) int {
	n := 0
	for i, size := range l.ChapterSizes() {
		done := 0
		for m := 1; m <= size; m++ {
			if p.IsCompleted(i+1, m) {
				done++
			}
		}
		if done == size {
			n++
		}
	}
	return n
}

func (p *Progress) AllCompleted(l Layout) bool {
	return p.ChaptersMastered(l) == len(l.ChapterSizes())
}

// Complete records a passed mission and stamps CompletedAt the first time
// every mission is done.
func (p *Progress) Complete(l Layout, chapter, mission int, at time.Time) bool {
	added := p.MarkCompleted(chapter, mission)
	if p.CompletedAt == nil && p.AllCompleted(l) {
		t := at.UTC()
		p.CompletedAt = &t
	}
	return added
}

func inRange(sizes []int, chapter, mission int) bool {
	if chapter < 1 || chapter > len(sizes) {
		return false
	}
	return mission >= 1 && mission <= sizes[chapter-1]
}
