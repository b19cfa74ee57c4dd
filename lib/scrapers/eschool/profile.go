package eschool

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"eduassist-backend/lib/htmlutil"
	"eduassist-backend/lib/textutil"
)

const (
	// header cell bgcolor fingerprints, the only stable difference
	// between the two profile tables
	summaryHeaderColor = "#6699CC"
	mainHeaderColor    = "#99CCFF"

	profileNameLabel = "姓名"
)

// Profile is the flat label to value mapping extracted from the two
// profile tables, plus the student's chinese name pulled out of the
// mixed-script full name field. Consumed once per fetch cycle.
type Profile struct {
	Fields map[string]string
	Name   string
}

// ParseProfile extracts label/value pairs from the summary and main
// data tables. The first row of each table may hold two pairs side by
// side and later rows hold one or two, so rows are walked in strides
// of two cells.
func ParseProfile(html string) (*Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, err.Error())
	}

	summary, ok := htmlutil.FindTableByHeaderAttr(doc, "bgcolor", summaryHeaderColor)
	if !ok {
		return nil, fmt.Errorf("%w: profile summary table not found", ErrParse)
	}
	main, ok := htmlutil.FindTableByHeaderAttr(doc, "bgcolor", mainHeaderColor)
	if !ok {
		return nil, fmt.Errorf("%w: profile main data table not found", ErrParse)
	}

	fields := map[string]string{}
	collectPairs(summary, fields)
	collectPairs(main, fields)

	full, ok := fields[profileNameLabel]
	if !ok {
		return nil, fmt.Errorf("%w: profile is missing the %q field", ErrParse, profileNameLabel)
	}

	return &Profile{
		Fields: fields,
		Name:   textutil.ExtractCJK(full),
	}, nil
}

func collectPairs(table htmlutil.Table, out map[string]string) {
	for i := 0; i < table.RowCount(); i++ {
		row := table.Row(i)
		for j := 0; j+1 < len(row); j += 2 {
			label := row[j]
			if label == "" {
				continue
			}
			out[label] = row[j+1]
		}
	}
}
