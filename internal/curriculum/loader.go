package curriculum

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	version "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var builtinYAML []byte

var (
	ErrChapterNotFound = errors.New("chapter not found")
	ErrMissionNotFound = errors.New("mission not found")
)

type FSLoader struct{}

func NewLoader() *FSLoader { return &FSLoader{} }

// Load reads the curriculum at path, or the built-in one when path is empty.
func (l *FSLoader) Load(_ context.Context, path string) (*Curriculum, error) {
	if path == "" {
		c, err := Parse(builtinYAML)
		if err != nil {
			return nil, fmt.Errorf("builtin curriculum: %w", err)
		}
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// Builtin returns the embedded curriculum. It panics only if the embedded
// file is broken, which the package tests rule out.
func Builtin() *Curriculum {
	c, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin curriculum: %v", err))
	}
	return c
}

func Parse(b []byte) (*Curriculum, error) {
	var c Curriculum
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	c.index()
	return &c, nil
}

func applyDefaults(c *Curriculum) {
	for i := range c.Chapters {
		ch := &c.Chapters[i]
		ch.Number = i + 1
		for j := range ch.Missions {
			m := &ch.Missions[j]
			m.Chapter = ch.Number
			m.Number = j + 1
			if m.Kind == "" {
				m.Kind = KindRead
			}
			for k := range m.Checks {
				if m.Checks[k].ID == "" {
					m.Checks[k].ID = fmt.Sprintf("%s-%d", m.Checks[k].Type, k+1)
				}
				if m.Checks[k].Type == CheckColumnSorted && m.Checks[k].Order == "" {
					m.Checks[k].Order = "asc"
				}
			}
		}
	}
}

// index assigns flat mission IDs as the prefix sum of prior chapter sizes
// plus the mission's position in its chapter.
func (c *Curriculum) index() {
	c.offsets = make([]int, len(c.Chapters))
	c.missions = c.missions[:0]
	total := 0
	for i := range c.Chapters {
		c.offsets[i] = total
		for j := range c.Chapters[i].Missions {
			m := &c.Chapters[i].Missions[j]
			m.ID = total + j + 1
			c.missions = append(c.missions, *m)
		}
		total += len(c.Chapters[i].Missions)
	}
}

// CheckCompatible reports whether appVersion satisfies the curriculum's
// requires constraint.
func (c *Curriculum) CheckCompatible(appVersion string) error {
	if c.Requires == "" {
		return nil
	}
	v, err := version.NewVersion(appVersion)
	if err != nil {
		return fmt.Errorf("invalid app version %q: %w", appVersion, err)
	}
	constraint, err := version.NewConstraint(c.Requires)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("curriculum %s %s requires app %s, running %s", c.CurriculumID, c.Version, c.Requires, appVersion)
	}
	return nil
}

func (c *Curriculum) ChapterCount() int { return len(c.Chapters) }

func (c *Curriculum) TotalMissions() int { return len(c.missions) }

func (c *Curriculum) ChapterSizes() []int {
	out := make([]int, len(c.Chapters))
	for i, ch := range c.Chapters {
		out[i] = len(ch.Missions)
	}
	return out
}

func (c *Curriculum) Chapter(number int) (Chapter, error) {
	if number < 1 || number > len(c.Chapters) {
		return Chapter{}, fmt.Errorf("chapter %d: %w", number, ErrChapterNotFound)
	}
	return c.Chapters[number-1], nil
}

func (c *Curriculum) MissionID(chapter, mission int) (int, error) {
	ch, err := c.Chapter(chapter)
	if err != nil {
		return 0, err
	}
	if mission < 1 || mission > len(ch.Missions) {
		return 0, fmt.Errorf("chapter %d mission %d: %w", chapter, mission, ErrMissionNotFound)
	}
	return c.offsets[chapter-1] + mission, nil
}

// Decode is the inverse of MissionID.
func (c *Curriculum) Decode(id int) (chapter, mission int, err error) {
	m, err := c.Mission(id)
	if err != nil {
		return 0, 0, err
	}
	return m.Chapter, m.Number, nil
}

func (c *Curriculum) Mission(id int) (Mission, error) {
	if id < 1 || id > len(c.missions) {
		return Mission{}, fmt.Errorf("mission %d: %w", id, ErrMissionNotFound)
	}
	return c.missions[id-1], nil
}

func (c *Curriculum) MissionAt(chapter, mission int) (Mission, error) {
	id, err := c.MissionID(chapter, mission)
	if err != nil {
		return Mission{}, err
	}
	return c.missions[id-1], nil
}

func (c *Curriculum) Missions() []Mission {
	return append([]Mission(nil), c.missions...)
}

// Next returns the mission after id in curriculum order.
func (c *Curriculum) Next(id int) (Mission, bool) {
	if id < 0 || id >= len(c.missions) {
		return Mission{}, false
	}
	return c.missions[id], true
}

// Previous returns the mission before id in curriculum order.
func (c *Curriculum) Previous(id int) (Mission, bool) {
	if id <= 1 || id > len(c.missions) {
		return Mission{}, false
	}
	return c.missions[id-2], true
}
