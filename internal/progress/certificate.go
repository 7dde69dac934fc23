package progress

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/hashstructure/v2"
)

type Certificate struct {
	TotalQueries      int       `json:"totalQueries"`
	MissionsCompleted int       `json:"missionsCompleted"`
	ChaptersMastered  int       `json:"chaptersMastered"`
	CompletedAt       time.Time `json:"completedAt"`
	Code              string    `json:"achievementCode"`
}

// AchievementCode derives a cosmetic "SQL-XXXXXXXX" code from the query
// count and a point in time. It is not meant to be verifiable.
func AchievementCode(totalQueries int, at time.Time) string {
	seed := struct {
		Queries int
		Millis  int64
	}{totalQueries, at.UnixMilli()}
	h, err := hashstructure.Hash(seed, hashstructure.FormatV2, nil)
	if err != nil {
		h = uint64(at.UnixMilli()) + uint64(totalQueries)
	}
	s := strings.ToUpper(strconv.FormatUint(h, 36))
	if len(s) < 8 {
		s = strings.Repeat("0", 8-len(s)) + s
	}
	return "SQL-" + s[len(s)-8:]
}

// Certificate is available once every mission is completed.
func (p *Progress) Certificate(l Layout, now time.Time) (Certificate, error) {
	if !p.AllCompleted(l) {
		return Certificate{}, ErrNotComplete
	}
	at := now
	if p.CompletedAt != nil {
		at = *p.CompletedAt
	}
	return Certificate{
		TotalQueries:      p.TotalQueries,
		MissionsCompleted: p.CompletedCount(),
		ChaptersMastered:  p.ChaptersMastered(l),
		CompletedAt:       at,
		Code:              AchievementCode(p.TotalQueries, at),
	}, nil
}

func (c Certificate) Text(title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.ToUpper(title))
	b.WriteString("CERTIFICATE OF COMPLETION\n\n")
	b.WriteString("This certifies that SQL MASTER has successfully completed\n")
	b.WriteString("all missions and demonstrated mastery of SQL fundamentals\n")
	fmt.Fprintf(&b, "through the dangerous journey of %s.\n\n", title)
	fmt.Fprintf(&b, "Queries Executed: %s\n", humanize.Comma(int64(c.TotalQueries)))
	fmt.Fprintf(&b, "Missions Completed: %d\n", c.MissionsCompleted)
	fmt.Fprintf(&b, "Chapters Mastered: %d\n\n", c.ChaptersMastered)
	fmt.Fprintf(&b, "Completed: %s\n", c.CompletedAt.Format("January 2, 2006"))
	fmt.Fprintf(&b, "Achievement Code: %s\n", c.Code)
	return b.String()
}
