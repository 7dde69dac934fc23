package grading

import (
	"context"
	"fmt"
	"math"
	"strings"

	"sqlbadlands/internal/curriculum"
	"sqlbadlands/internal/sandbox"
)

type evaluatorFunc func(context.Context, sandbox.QueryResult, curriculum.CheckSpec) (evaluation, error)

// DefaultGrader interprets each mission's declarative checks against a
// query result. It holds no state between calls.
type DefaultGrader struct {
	curriculum *curriculum.Curriculum
	registry   map[string]evaluatorFunc
}

func NewGrader(c *curriculum.Curriculum) *DefaultGrader {
	g := &DefaultGrader{curriculum: c, registry: map[string]evaluatorFunc{}}
	g.registry[curriculum.CheckRowCount] = g.evalRowCount
	g.registry[curriculum.CheckAllRowsFieldEquals] = g.evalAllRowsFieldEquals
	g.registry[curriculum.CheckColumnSorted] = g.evalColumnSorted
	g.registry[curriculum.CheckRowFieldValue] = g.evalRowFieldValue
	g.registry[curriculum.CheckExecutionSucceeded] = g.evalExecutionSucceeded
	return g
}

func (g *DefaultGrader) Grade(ctx context.Context, req Request) (Result, error) {
	result := Result{
		Kind:          ResultKind,
		SchemaVersion: SchemaVersion,
		RunID:         req.RunID,
		MissionID:     req.MissionID,
	}

	mission, err := g.curriculum.Mission(req.MissionID)
	if err != nil {
		result.Status = StatusUnknownMission
		result.Message = MessageNoValidation
		return result, fmt.Errorf("mission %d: %w", req.MissionID, ErrUnknownMission)
	}
	result.Chapter = mission.Chapter
	result.Mission = mission.Number

	failed := false
	for _, check := range mission.Checks {
		eval, err := g.evaluateCheck(ctx, req.Result, check)
		if err != nil {
			result.Checks = append(result.Checks, CheckResult{
				ID:      check.ID,
				Type:    check.Type,
				Summary: "malformed result",
				Message: err.Error(),
			})
			result.Status = StatusMalformed
			result.Message = MessageMalformed
			return result, nil
		}
		msg := eval.Message
		if !eval.Passed && check.OnFailMessage != "" {
			msg = check.OnFailMessage
		}
		result.Checks = append(result.Checks, CheckResult{
			ID:      check.ID,
			Type:    check.Type,
			Passed:  eval.Passed,
			Summary: eval.Summary,
			Message: msg,
		})
		if !eval.Passed {
			failed = true
		}
	}

	if failed {
		result.Status = StatusFailed
		result.Message = MessageIncorrect
		return result, nil
	}
	result.Passed = true
	result.Status = StatusPassed
	result.Message = MessageCorrect
	if mission.IsWrite() {
		result.Message = MessageCommandExecuted
	}
	result.Narrative = mission.Narrative
	return result, nil
}

// Narrative returns the story text shown when mission id is completed.
func (g *DefaultGrader) Narrative(id int) (string, bool) {
	m, err := g.curriculum.Mission(id)
	if err != nil || m.Narrative == "" {
		return "", false
	}
	return m.Narrative, true
}

func (g *DefaultGrader) evaluateCheck(ctx context.Context, res sandbox.QueryResult, check curriculum.CheckSpec) (eval evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: check %s panicked: %v", errMalformed, check.ID, r)
		}
	}()
	evaluator, ok := g.registry[check.Type]
	if !ok {
		return evaluation{}, fmt.Errorf("%w: unknown check type %s", errMalformed, check.Type)
	}
	return evaluator(ctx, res, check)
}

func (g *DefaultGrader) evalRowCount(_ context.Context, res sandbox.QueryResult, check curriculum.CheckSpec) (evaluation, error) {
	if err := requireRows(res); err != nil {
		return evaluation{}, err
	}
	want := *check.Equals
	if len(res.Rows) == want {
		return evaluation{Passed: true, Summary: "row count matches", Message: "ok"}, nil
	}
	return evaluation{Passed: false, Summary: "row count mismatch", Message: fmt.Sprintf("expected %d rows got %d", want, len(res.Rows))}, nil
}

func (g *DefaultGrader) evalAllRowsFieldEquals(_ context.Context, res sandbox.QueryResult, check curriculum.CheckSpec) (evaluation, error) {
	if err := requireRows(res); err != nil {
		return evaluation{}, err
	}
	if err := requireColumn(res, check.Column); err != nil {
		return evaluation{}, err
	}
	for i, row := range res.Rows {
		v, ok := lookup(row, check.Column)
		if !ok {
			return evaluation{}, fmt.Errorf("%w: row %d has no column %s", errMalformed, i+1, check.Column)
		}
		if !valuesEqual(v, check.Expected, check.IgnoreCase) {
			return evaluation{Passed: false, Summary: "field mismatch", Message: fmt.Sprintf("row %d has %s = %v", i+1, check.Column, v)}, nil
		}
	}
	return evaluation{Passed: true, Summary: "all rows match", Message: "ok"}, nil
}

func (g *DefaultGrader) evalColumnSorted(_ context.Context, res sandbox.QueryResult, check curriculum.CheckSpec) (evaluation, error) {
	if err := requireRows(res); err != nil {
		return evaluation{}, err
	}
	if err := requireColumn(res, check.Column); err != nil {
		return evaluation{}, err
	}
	for i := 1; i < len(res.Rows); i++ {
		prev, ok := lookup(res.Rows[i-1], check.Column)
		if !ok {
			return evaluation{}, fmt.Errorf("%w: row %d has no column %s", errMalformed, i, check.Column)
		}
		curr, ok := lookup(res.Rows[i], check.Column)
		if !ok {
			return evaluation{}, fmt.Errorf("%w: row %d has no column %s", errMalformed, i+1, check.Column)
		}
		cmp := compareValues(prev, curr, check.IgnoreCase)
		if check.Order == "desc" {
			if cmp < 0 {
				return evaluation{Passed: false, Summary: "not sorted descending", Message: fmt.Sprintf("row %d out of order", i+1)}, nil
			}
		} else if cmp > 0 {
			return evaluation{Passed: false, Summary: "not sorted ascending", Message: fmt.Sprintf("row %d out of order", i+1)}, nil
		}
	}
	return evaluation{Passed: true, Summary: "sorted", Message: "ok"}, nil
}

func (g *DefaultGrader) evalRowFieldValue(_ context.Context, res sandbox.QueryResult, check curriculum.CheckSpec) (evaluation, error) {
	if err := requireRows(res); err != nil {
		return evaluation{}, err
	}
	if err := requireColumn(res, check.MatchColumn); err != nil {
		return evaluation{}, err
	}
	if err := requireColumn(res, check.Column); err != nil {
		return evaluation{}, err
	}
	for _, row := range res.Rows {
		key, _ := lookup(row, check.MatchColumn)
		if !valuesEqual(key, check.MatchValue, check.IgnoreCase) {
			continue
		}
		v, ok := lookup(row, check.Column)
		if !ok {
			return evaluation{}, fmt.Errorf("%w: matched row has no column %s", errMalformed, check.Column)
		}
		if valuesEqual(v, check.Expected, false) {
			return evaluation{Passed: true, Summary: "value matches", Message: "ok"}, nil
		}
		return evaluation{Passed: false, Summary: "value mismatch", Message: fmt.Sprintf("%s = %v where %s = %v", check.Column, v, check.MatchColumn, check.MatchValue)}, nil
	}
	return evaluation{Passed: false, Summary: "row missing", Message: fmt.Sprintf("no row with %s = %v", check.MatchColumn, check.MatchValue)}, nil
}

// evalExecutionSucceeded passes whenever the statement reached the grader,
// which only happens after the engine executed it without error.
func (g *DefaultGrader) evalExecutionSucceeded(_ context.Context, res sandbox.QueryResult, _ curriculum.CheckSpec) (evaluation, error) {
	if res.Kind == sandbox.KindAffected {
		return evaluation{Passed: true, Summary: "executed", Message: fmt.Sprintf("%d rows affected", res.AffectedRows)}, nil
	}
	return evaluation{Passed: true, Summary: "executed", Message: "ok"}, nil
}

func requireRows(res sandbox.QueryResult) error {
	if res.Kind != sandbox.KindRows {
		return fmt.Errorf("%w: expected a row set, got %q", errMalformed, res.Kind)
	}
	return nil
}

// requireColumn fails when the result declares its columns and col is not
// among them.
func requireColumn(res sandbox.QueryResult, col string) error {
	if len(res.Columns) == 0 {
		return nil
	}
	for _, c := range res.Columns {
		if strings.EqualFold(c, col) {
			return nil
		}
	}
	return fmt.Errorf("%w: result has no column %s", errMalformed, col)
}

// lookup finds col in row, falling back to a case-insensitive match since
// SQLite echoes column names as the player typed them.
func lookup(row map[string]any, col string) (any, bool) {
	if v, ok := row[col]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, col) {
			return v, true
		}
	}
	return nil, false
}

func valuesEqual(a, b any, ignoreCase bool) bool {
	na, aNum := toNumber(a)
	nb, bNum := toNumber(b)
	if aNum && bNum {
		return na == nb
	}
	if aNum != bNum {
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	if ignoreCase {
		return strings.EqualFold(sa, sb)
	}
	return sa == sb
}

// compareValues orders NULL first, numbers numerically and everything else
// by byte-wise string comparison.
func compareValues(a, b any, ignoreCase bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	na, aNum := toNumber(a)
	nb, bNum := toNumber(b)
	if aNum && bNum {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	if ignoreCase {
		sa, sb = strings.ToLower(sa), strings.ToLower(sb)
	}
	return strings.Compare(sa, sb)
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	default:
		return 0, false
	}
}
