package curriculum

import (
	"fmt"
	"regexp"

	version "github.com/hashicorp/go-version"
)

const (
	CurriculumKind         = "curriculum"
	SupportedSchemaVersion = 1

	KindRead  = "read"
	KindWrite = "write"
)

const (
	CheckRowCount           = "row_count"
	CheckAllRowsFieldEquals = "all_rows_field_equals"
	CheckColumnSorted       = "column_sorted"
	CheckRowFieldValue      = "row_field_value"
	CheckExecutionSucceeded = "execution_succeeded"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

type Curriculum struct {
	Kind          string    `yaml:"kind"`
	SchemaVersion int       `yaml:"schema_version"`
	CurriculumID  string    `yaml:"curriculum_id"`
	Title         string    `yaml:"title"`
	Version       string    `yaml:"version"`
	Requires      string    `yaml:"requires"`
	Chapters      []Chapter `yaml:"chapters"`

	Path string `yaml:"-"`

	missions []Mission
	offsets  []int
}

type Chapter struct {
	Number    int       `yaml:"-"`
	Title     string    `yaml:"title"`
	Narration string    `yaml:"narration"`
	Missions  []Mission `yaml:"missions"`
}

type Mission struct {
	ID      int `yaml:"-"`
	Chapter int `yaml:"-"`
	Number  int `yaml:"-"`

	Text               string      `yaml:"text"`
	Kind               string      `yaml:"kind"`
	Hint               string      `yaml:"hint"`
	Narrative          string      `yaml:"narrative"`
	Checks             []CheckSpec `yaml:"checks"`
	ReferenceSolutions []string    `yaml:"reference_solutions"`
}

type CheckSpec struct {
	ID            string `yaml:"id"`
	Type          string `yaml:"type"`
	Description   string `yaml:"description"`
	OnFailMessage string `yaml:"on_fail_message"`

	Equals *int `yaml:"equals"`

	Column     string `yaml:"column"`
	Expected   any    `yaml:"expected"`
	Order      string `yaml:"order"`
	IgnoreCase bool   `yaml:"ignore_case"`

	MatchColumn string `yaml:"match_column"`
	MatchValue  any    `yaml:"match_value"`
}

func (m Mission) IsWrite() bool { return m.Kind == KindWrite }

func (c *Curriculum) Validate() error {
	if c.Kind != CurriculumKind {
		return fmt.Errorf("kind must be %q", CurriculumKind)
	}
	if c.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if c.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported curriculum schema_version %d (max supported %d)", c.SchemaVersion, SupportedSchemaVersion)
	}
	if !idPattern.MatchString(c.CurriculumID) {
		return fmt.Errorf("invalid curriculum_id %q", c.CurriculumID)
	}
	if c.Title == "" {
		return fmt.Errorf("title is required")
	}
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := version.NewVersion(c.Version); err != nil {
		return fmt.Errorf("invalid version %q: %w", c.Version, err)
	}
	if c.Requires != "" {
		if _, err := version.NewConstraint(c.Requires); err != nil {
			return fmt.Errorf("invalid requires %q: %w", c.Requires, err)
		}
	}
	if len(c.Chapters) == 0 {
		return fmt.Errorf("chapters must contain at least one chapter")
	}
	for i, ch := range c.Chapters {
		if err := ch.validate(); err != nil {
			return fmt.Errorf("chapter %d: %w", i+1, err)
		}
	}
	return nil
}

func (ch Chapter) validate() error {
	if ch.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(ch.Missions) == 0 {
		return fmt.Errorf("missions must contain at least one mission")
	}
	for i, m := range ch.Missions {
		if err := m.validate(); err != nil {
			return fmt.Errorf("mission %d: %w", i+1, err)
		}
	}
	return nil
}

func (m Mission) validate() error {
	if m.Text == "" {
		return fmt.Errorf("text is required")
	}
	switch m.Kind {
	case "", KindRead, KindWrite:
	default:
		return fmt.Errorf("invalid kind %q", m.Kind)
	}
	if len(m.Checks) == 0 {
		return fmt.Errorf("checks must contain at least one check")
	}
	seen := map[string]struct{}{}
	for _, c := range m.Checks {
		if c.ID != "" {
			if _, ok := seen[c.ID]; ok {
				return fmt.Errorf("duplicate checks id %q", c.ID)
			}
			seen[c.ID] = struct{}{}
		}
		if err := c.validate(m.Kind); err != nil {
			return err
		}
	}
	return nil
}

func (c CheckSpec) validate(kind string) error {
	switch c.Type {
	case CheckRowCount:
		if c.Equals == nil {
			return fmt.Errorf("check %s requires equals", c.Type)
		}
		if *c.Equals < 0 {
			return fmt.Errorf("check %s equals must be >= 0", c.Type)
		}
	case CheckAllRowsFieldEquals:
		if c.Column == "" || c.Expected == nil {
			return fmt.Errorf("check %s requires column and expected", c.Type)
		}
	case CheckColumnSorted:
		if c.Column == "" {
			return fmt.Errorf("check %s requires column", c.Type)
		}
		switch c.Order {
		case "", "asc", "desc":
		default:
			return fmt.Errorf("check %s has invalid order %q", c.Type, c.Order)
		}
	case CheckRowFieldValue:
		if c.MatchColumn == "" || c.MatchValue == nil || c.Column == "" || c.Expected == nil {
			return fmt.Errorf("check %s requires match_column, match_value, column and expected", c.Type)
		}
	case CheckExecutionSucceeded:
		if kind != KindWrite {
			return fmt.Errorf("check %s is only valid for write missions", c.Type)
		}
	default:
		return fmt.Errorf("unknown check type %q", c.Type)
	}
	return nil
}
