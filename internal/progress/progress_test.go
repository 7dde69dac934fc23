package progress

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sizes []int

func (s sizes) ChapterSizes() []int { return s }

var layout = sizes{3, 4, 4, 3}

func completeAll(p *Progress, l Layout, at time.Time) {
	for ch, n := range l.ChapterSizes() {
		for m := 1; m <= n; m++ {
			p.Complete(l, ch+1, m, at)
		}
	}
}

func TestFreshProgressUnlocksOnlyFirstMission(t *testing.T) {
	p := New()
	assert.True(t, p.IsUnlocked(layout, 1, 1))
	assert.False(t, p.IsUnlocked(layout, 1, 2))
	assert.False(t, p.IsUnlocked(layout, 2, 1))
	assert.Equal(t, StatusCurrent, p.Status(layout, 1, 1))
	assert.Equal(t, StatusLocked, p.Status(layout, 1, 2))
}

func TestCompletingLastMissionOfChapterUnlocksNextChapter(t *testing.T) {
	p := New()
	p.MarkCompleted(1, 1)
	p.MarkCompleted(1, 2)
	assert.False(t, p.IsUnlocked(layout, 2, 1))

	p.MarkCompleted(1, 3)
	assert.True(t, p.IsUnlocked(layout, 2, 1))
	assert.False(t, p.IsUnlocked(layout, 2, 2))
}

func TestUnlockOutOfRange(t *testing.T) {
	p := New()
	assert.False(t, p.IsUnlocked(layout, 0, 1))
	assert.False(t, p.IsUnlocked(layout, 5, 1))
	assert.False(t, p.IsUnlocked(layout, 1, 4))
}

func TestCompletedSetIsMonotonic(t *testing.T) {
	p := New()
	prev := 0
	for ch, n := range layout {
		for m := 1; m <= n; m++ {
			p.MarkCompleted(ch+1, m)
			assert.False(t, p.MarkCompleted(ch+1, m), "second completion must be a no-op")
			require.GreaterOrEqual(t, p.CompletedCount(), prev)
			prev = p.CompletedCount()
			if m > 1 {
				assert.True(t, p.IsCompleted(ch+1, m-1))
			}
		}
	}
	assert.Equal(t, 14, p.CompletedCount())
}

func TestAdvanceWalksChapters(t *testing.T) {
	p := New()
	visited := 1
	for p.Advance(layout) {
		visited++
	}
	assert.Equal(t, 14, visited)
	assert.Equal(t, 4, p.Chapter)
	assert.Equal(t, 3, p.Mission)
}

func TestJumpToRequiresUnlock(t *testing.T) {
	p := New()
	err := p.JumpTo(layout, 2, 1)
	assert.True(t, errors.Is(err, ErrLocked))

	completeAll(p, sizes{3}, time.Now())
	require.NoError(t, p.JumpTo(layout, 2, 1))
	assert.Equal(t, 2, p.Chapter)

	require.NoError(t, p.JumpTo(layout, 1, 2), "completed missions stay revisitable")
	assert.ErrorIs(t, p.JumpTo(layout, 9, 1), ErrOutOfRange)
}

func TestHistoryKeepsNewestFifty(t *testing.T) {
	p := New()
	for i := 0; i < 60; i++ {
		p.Record(Entry{Query: strings.Repeat("x", i+1), Success: i%2 == 0})
	}
	require.Len(t, p.History, HistoryLimit)
	assert.Equal(t, 60, len(p.History[0].Query))
	assert.Equal(t, 11, len(p.History[HistoryLimit-1].Query))
	assert.Equal(t, 60, p.TotalQueries)
	assert.Equal(t, 1, p.History[0].Chapter)
}

func TestEncodeDecodeKeepsState(t *testing.T) {
	p := New()
	p.MarkCompleted(1, 1)
	p.MarkCompleted(2, 3)
	p.Record(Entry{Query: "SELECT 1", Success: true, ExecutionTime: 4, Chapter: 1, Mission: 1})

	b, err := p.Encode()
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted(1, 1))
	assert.True(t, got.IsCompleted(2, 3))
	assert.Equal(t, "SELECT 1", got.History[0].Query)
	assert.Equal(t, 1, got.TotalQueries)
}

func TestDecodeEmptyAndPartialRecords(t *testing.T) {
	p, err := Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Chapter)

	p, err = Decode([]byte(`{"completedMissions":{"1":[1,2]}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Mission)
	assert.True(t, p.IsUnlocked(layout, 1, 3))
	assert.NotNil(t, p.History)

	_, err = Decode([]byte(`{`))
	assert.Error(t, err)
}

func TestCertificateRequiresAllMissions(t *testing.T) {
	p := New()
	_, err := p.Certificate(layout, time.Now())
	assert.ErrorIs(t, err, ErrNotComplete)

	done := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 1234; i++ {
		p.TotalQueries++
	}
	completeAll(p, layout, done)
	require.NotNil(t, p.CompletedAt)

	cert, err := p.Certificate(layout, done.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 14, cert.MissionsCompleted)
	assert.Equal(t, 4, cert.ChaptersMastered)
	assert.Equal(t, done, cert.CompletedAt)

	text := cert.Text("SQL Badlands: The First Cook")
	assert.Contains(t, text, "SQL BADLANDS: THE FIRST COOK")
	assert.Contains(t, text, "Queries Executed: 1,234")
	assert.Contains(t, text, "Completed: March 4, 2026")
	assert.Contains(t, text, "Achievement Code: "+cert.Code)
}

func TestAchievementCodeShape(t *testing.T) {
	at := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	code := AchievementCode(42, at)
	require.Len(t, code, len("SQL-")+8)
	assert.True(t, strings.HasPrefix(code, "SQL-"))
	assert.Equal(t, code, AchievementCode(42, at))
	assert.NotEqual(t, code, AchievementCode(43, at))
	for _, r := range code[4:] {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z'), "unexpected rune %q", r)
	}
}
