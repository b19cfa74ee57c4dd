package eschool

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"eduassist-backend/lib/htmlutil"
	"eduassist-backend/lib/textutil"
)

type ConductLevel string

const (
	LevelCommendation ConductLevel = "commendation"
	LevelMinorMerit   ConductLevel = "minor_merit"
	LevelMajorMerit   ConductLevel = "major_merit"
	LevelWarning      ConductLevel = "warning"
	LevelMinorDemerit ConductLevel = "minor_demerit"
	LevelMajorDemerit ConductLevel = "major_demerit"
)

const (
	rewardsHeading     = "獎勵紀錄"
	punishmentsHeading = "懲罰紀錄"
	// leading columns shared by both tables: approval date, incident
	// date, reason
	conductCountOffset = 3
)

// count columns by position after the three leading columns
var rewardLevels = []ConductLevel{LevelCommendation, LevelMinorMerit, LevelMajorMerit}
var punishmentLevels = []ConductLevel{LevelWarning, LevelMinorDemerit, LevelMajorDemerit}

// ConductEvent is one reward or punishment entry. Every field except
// Count participates in the event's identity, the portal assigns no
// ids of its own.
type ConductEvent struct {
	ApprovalDate time.Time
	IncidentDate time.Time
	Reason       string
	Level        ConductLevel
	Count        int
}

// ParseConduct extracts reward and punishment events from the two
// heading-anchored tables. A data row emits one event per positive
// count column.
func ParseConduct(html string) ([]ConductEvent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, err.Error())
	}

	rewards, ok := htmlutil.FindTableByHeading(doc, rewardsHeading)
	if !ok {
		return nil, fmt.Errorf("%w: %q table not found", ErrParse, rewardsHeading)
	}
	punishments, ok := htmlutil.FindTableByHeading(doc, punishmentsHeading)
	if !ok {
		return nil, fmt.Errorf("%w: %q table not found", ErrParse, punishmentsHeading)
	}

	var events []ConductEvent
	err = collectConduct(rewards, rewardLevels, &events)
	if err != nil {
		return nil, err
	}
	err = collectConduct(punishments, punishmentLevels, &events)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// collectConduct walks the data rows of one conduct table. Row 0 is
// the section heading and row 1 the column header, data begins at 2.
func collectConduct(table htmlutil.Table, levels []ConductLevel, out *[]ConductEvent) error {
	for i := 2; i < table.RowCount(); i++ {
		row := table.Row(i)
		if len(row) < conductCountOffset {
			continue
		}

		approval, err := ParseROCDate(row[0])
		if err != nil {
			return err
		}
		incident, err := ParseROCDate(row[1])
		if err != nil {
			return err
		}
		reason := row[2]

		for j, level := range levels {
			col := conductCountOffset + j
			if col >= len(row) {
				break
			}
			count, ok := textutil.LeadingInt(row[col])
			if !ok || count <= 0 {
				continue
			}
			*out = append(*out, ConductEvent{
				ApprovalDate: approval,
				IncidentDate: incident,
				Reason:       reason,
				Level:        level,
				Count:        count,
			})
		}
	}
	return nil
}
