package curriculum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinCurriculumLoadsExpectedChapters(t *testing.T) {
	c, err := NewLoader().Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	if c.CurriculumID != "sql-badlands" {
		t.Fatalf("unexpected curriculum id %q", c.CurriculumID)
	}
	got := c.ChapterSizes()
	want := []int{3, 4, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("chapter count mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chapter %d size: got %d want %d", i+1, got[i], want[i])
		}
	}
	if c.TotalMissions() != 14 {
		t.Fatalf("expected 14 missions, got %d", c.TotalMissions())
	}
}

func TestMissionIDIsPrefixSum(t *testing.T) {
	c := Builtin()
	cases := []struct {
		chapter, mission, id int
	}{
		{1, 1, 1},
		{1, 3, 3},
		{2, 1, 4},
		{2, 4, 7},
		{3, 1, 8},
		{4, 1, 12},
		{4, 3, 14},
	}
	for _, tc := range cases {
		id, err := c.MissionID(tc.chapter, tc.mission)
		if err != nil {
			t.Fatalf("MissionID(%d,%d): %v", tc.chapter, tc.mission, err)
		}
		if id != tc.id {
			t.Fatalf("MissionID(%d,%d) = %d, want %d", tc.chapter, tc.mission, id, tc.id)
		}
	}
}

func TestMissionIDAndDecodeAreInverse(t *testing.T) {
	c := Builtin()
	seen := map[int]bool{}
	for ch := 1; ch <= c.ChapterCount(); ch++ {
		chapter, _ := c.Chapter(ch)
		for m := 1; m <= len(chapter.Missions); m++ {
			id, err := c.MissionID(ch, m)
			if err != nil {
				t.Fatalf("MissionID(%d,%d): %v", ch, m, err)
			}
			if seen[id] {
				t.Fatalf("duplicate mission id %d", id)
			}
			seen[id] = true
			gotCh, gotM, err := c.Decode(id)
			if err != nil {
				t.Fatalf("Decode(%d): %v", id, err)
			}
			if gotCh != ch || gotM != m {
				t.Fatalf("Decode(%d) = (%d,%d), want (%d,%d)", id, gotCh, gotM, ch, m)
			}
		}
	}
	if len(seen) != c.TotalMissions() {
		t.Fatalf("expected %d ids, got %d", c.TotalMissions(), len(seen))
	}
}

func TestOutOfRangeLookupsReturnSentinels(t *testing.T) {
	c := Builtin()
	if _, err := c.Chapter(0); !errors.Is(err, ErrChapterNotFound) {
		t.Fatalf("Chapter(0) error = %v", err)
	}
	if _, err := c.Chapter(5); !errors.Is(err, ErrChapterNotFound) {
		t.Fatalf("Chapter(5) error = %v", err)
	}
	if _, err := c.MissionID(2, 5); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("MissionID(2,5) error = %v", err)
	}
	if _, err := c.Mission(15); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("Mission(15) error = %v", err)
	}
	if _, _, err := c.Decode(0); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("Decode(0) error = %v", err)
	}
}

func TestNextAndPreviousWalkCurriculumOrder(t *testing.T) {
	c := Builtin()
	next, ok := c.Next(3)
	if !ok || next.Chapter != 2 || next.Number != 1 {
		t.Fatalf("Next(3) = %+v, %v", next, ok)
	}
	if _, ok := c.Next(14); ok {
		t.Fatalf("expected no mission after the last one")
	}
	prev, ok := c.Previous(4)
	if !ok || prev.ID != 3 {
		t.Fatalf("Previous(4) = %+v, %v", prev, ok)
	}
	if _, ok := c.Previous(1); ok {
		t.Fatalf("expected no mission before the first one")
	}
}

func TestBuiltinDefaultsAreApplied(t *testing.T) {
	c := Builtin()
	m, err := c.MissionAt(4, 1)
	if err != nil {
		t.Fatalf("MissionAt: %v", err)
	}
	if !m.IsWrite() {
		t.Fatalf("expected mission 4.1 to be a write mission")
	}
	if m.Checks[0].ID != "execution_succeeded-1" {
		t.Fatalf("unexpected default check id %q", m.Checks[0].ID)
	}
	last, _ := c.Mission(14)
	if last.IsWrite() {
		t.Fatalf("expected final mission to be graded as a read")
	}
}

func TestLoadFromFileRecordsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mini.yaml")
	doc := `kind: curriculum
schema_version: 1
curriculum_id: mini
title: Mini
version: 0.1.0
chapters:
  - title: Only
    missions:
      - text: Count characters
        checks:
          - type: row_count
            equals: 7
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Path != path {
		t.Fatalf("path not recorded: %q", c.Path)
	}
	m, err := c.Mission(1)
	if err != nil {
		t.Fatalf("mission: %v", err)
	}
	if m.Kind != KindRead {
		t.Fatalf("expected default kind read, got %q", m.Kind)
	}
}

func TestCheckCompatible(t *testing.T) {
	c := Builtin()
	if err := c.CheckCompatible("1.0.0"); err != nil {
		t.Fatalf("expected 1.0.0 to be compatible: %v", err)
	}
	if err := c.CheckCompatible("0.0.1"); err == nil {
		t.Fatalf("expected 0.0.1 to be rejected")
	}
	if err := c.CheckCompatible("not-a-version"); err == nil {
		t.Fatalf("expected invalid version error")
	}
}
