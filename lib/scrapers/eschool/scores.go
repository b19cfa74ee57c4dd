package eschool

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"

	"eduassist-backend/lib/htmlutil"
	"eduassist-backend/lib/textutil"
)

const (
	// first header cell of the one and only score table
	scoreTableAnchor = "科目"
	// a score cell holding this placeholder means the subject was not
	// examined that round
	noScorePlaceholder = "*"
	// a rank cell holding this dash means the rank was not published
	noRankPlaceholder = "–"
	// data columns for one exam: score, class average, rank, rank
	// population
	examColumnWindow = 4
	// subject name column precedes the first exam window
	examColumnOffset = 1
)

// the portal's exam cycle in canonical order. ordering keys are
// derived from position here, not from column order, because the
// portal occasionally reorders columns between semesters.
var examCycle = []string{
	"第一次平時考",
	"第一次段考",
	"第二次平時考",
	"第二次段考",
	"第三次平時考",
	"期末考",
}

// display names the portal uses for members of the exam cycle
var examAliases = map[string]string{
	"一平":   "第一次平時考",
	"一段":   "第一次段考",
	"二平":   "第二次平時考",
	"二段":   "第二次段考",
	"三平":   "第三次平時考",
	"期末":   "期末考",
	"學期總成績": "期末考",
}

// canonical subject names, also the fuzzy-match candidates for
// decorated or abbreviated display names
var subjectAliases = map[string]string{
	"國文":   "國文",
	"國語文":  "國文",
	"英文":   "英文",
	"英語文":  "英文",
	"數學":   "數學",
	"物理":   "物理",
	"化學":   "化學",
	"生物":   "生物",
	"歷史":   "歷史",
	"地理":   "地理",
	"公民與社會": "公民與社會",
	"公民":   "公民與社會",
	"體育":   "體育",
	"音樂":   "音樂",
	"美術":   "美術",
}

// decorations the portal prepends/appends to subject names
var subjectDecorations = []string{"◎", "★", "▲", "※", "(必)", "(選)", "(必修)", "(選修)"}

// summary row labels trailing the subject rows
const (
	totalLabel           = "總分"
	weightedTotalLabel   = "加權總分"
	averageLabel         = "平均"
	weightedAverageLabel = "加權平均"
	classRankLabel       = "班排名"
	streamRankLabel      = "組排名"
)

var semesterRegex = regexp.MustCompile(`\d{2,3}學年度第[12]學期`)

// SubjectScore is one subject's result in one exam. Rank and RankOf
// are 0 when the portal left the cell empty, ranks are 1-based so the
// zero value is unambiguous.
type SubjectScore struct {
	Subject      string
	Score        float64
	ClassAverage float64
	Rank         int
	RankOf       int
}

// Exam groups the subject results of one exam round together with the
// trailing summary figures.
type Exam struct {
	Name  string
	Order int

	Subjects []SubjectScore

	Total           float64
	WeightedTotal   float64
	Average         float64
	WeightedAverage float64
	ClassRank       int
	StreamRank      int
}

type ScoreDocument struct {
	Semester string
	Exams    []Exam
}

// ParseScores extracts the per-exam, per-subject score table. Missing
// structural anchors fail with ErrParse instead of degrading, a page
// that stops matching means the upstream markup changed.
func ParseScores(html string) (*ScoreDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, err.Error())
	}

	semester := semesterRegex.FindString(doc.Text())
	if semester == "" {
		return nil, fmt.Errorf("%w: semester heading not found", ErrParse)
	}

	table, ok := htmlutil.FindTableByFirstHeader(doc, scoreTableAnchor)
	if !ok {
		return nil, fmt.Errorf("%w: score table with %q header not found", ErrParse, scoreTableAnchor)
	}
	if table.RowCount() < 3 {
		return nil, fmt.Errorf("%w: score table has no data rows", ErrParse)
	}

	exams, err := parseExamHeader(table.Row(0))
	if err != nil {
		return nil, err
	}

	// row 0 names the exams, row 1 repeats the per-exam column roles,
	// data begins at row 2
	for i := 2; i < table.RowCount(); i++ {
		row := table.Row(i)
		if len(row) == 0 {
			continue
		}
		if isSummaryLabel(row[0]) {
			err := parseSummaryRow(row, exams)
			if err != nil {
				return nil, err
			}
			continue
		}
		err := parseSubjectRow(row, exams)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Exam, len(exams))
	for i, e := range exams {
		out[i] = *e
	}
	return &ScoreDocument{
		Semester: semester,
		Exams:    out,
	}, nil
}

func parseExamHeader(header []string) ([]*Exam, error) {
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: score table header names no exams", ErrParse)
	}

	var exams []*Exam
	for _, cell := range header[examColumnOffset:] {
		if cell == "" {
			continue
		}
		name, ok := examAliases[cell]
		if !ok {
			name = cell
		}
		order := len(examCycle)
		for i, canonical := range examCycle {
			if canonical == name {
				order = i
				break
			}
		}
		exams = append(exams, &Exam{
			Name:  name,
			Order: order,
		})
	}
	if len(exams) == 0 {
		return nil, fmt.Errorf("%w: score table header names no exams", ErrParse)
	}
	return exams, nil
}

func isSummaryLabel(label string) bool {
	switch label {
	case totalLabel, weightedTotalLabel, averageLabel, weightedAverageLabel, classRankLabel, streamRankLabel:
		return true
	}
	return false
}

func parseSubjectRow(row []string, exams []*Exam) error {
	subject := canonicalizeSubject(row[0])
	if subject == "" {
		return fmt.Errorf("%w: subject row with empty name", ErrParse)
	}

	for i, exam := range exams {
		base := examColumnOffset + i*examColumnWindow
		if base >= len(row) {
			break
		}
		scoreCell := cellAt(row, base)
		if scoreCell == noScorePlaceholder || scoreCell == "" {
			// the subject was not part of this exam round
			continue
		}
		score, err := strconv.ParseFloat(scoreCell, 64)
		if err != nil {
			return fmt.Errorf("%w: malformed score cell %q for %s", ErrParse, scoreCell, subject)
		}

		average := 0.0
		avgCell := cellAt(row, base+1)
		if avgCell != "" && avgCell != noScorePlaceholder {
			average, err = strconv.ParseFloat(avgCell, 64)
			if err != nil {
				return fmt.Errorf("%w: malformed class average cell %q for %s", ErrParse, avgCell, subject)
			}
		}

		rank, _ := textutil.LeadingInt(cellAt(row, base+2))
		rankOf, _ := textutil.LeadingInt(cellAt(row, base+3))

		exam.Subjects = append(exam.Subjects, SubjectScore{
			Subject:      subject,
			Score:        score,
			ClassAverage: average,
			Rank:         rank,
			RankOf:       rankOf,
		})
	}
	return nil
}

func parseSummaryRow(row []string, exams []*Exam) error {
	label := row[0]
	for i, exam := range exams {
		base := examColumnOffset + i*examColumnWindow
		cell := cellAt(row, base)
		if cell == "" || cell == noScorePlaceholder {
			continue
		}

		switch label {
		case classRankLabel, streamRankLabel:
			// rendered as "rank(percentile)", the percentile is
			// dropped at this layer
			if cell == noRankPlaceholder {
				continue
			}
			rank, ok := textutil.LeadingInt(cell)
			if !ok {
				return fmt.Errorf("%w: malformed rank cell %q in %q row", ErrParse, cell, label)
			}
			if label == classRankLabel {
				exam.ClassRank = rank
			} else {
				exam.StreamRank = rank
			}
		default:
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return fmt.Errorf("%w: malformed %q cell %q", ErrParse, label, cell)
			}
			switch label {
			case totalLabel:
				exam.Total = value
			case weightedTotalLabel:
				exam.WeightedTotal = value
			case averageLabel:
				exam.Average = value
			case weightedAverageLabel:
				exam.WeightedAverage = value
			}
		}
	}
	return nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// canonicalizeSubject strips the portal's decorative tokens and maps
// display names onto canonical subject names, falling back to the
// closest fuzzy match for names the alias table does not know.
func canonicalizeSubject(raw string) string {
	name := raw
	for _, d := range subjectDecorations {
		name = strings.ReplaceAll(name, d, "")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if canonical, ok := subjectAliases[name]; ok {
		return canonical
	}

	// aliases are walked in sorted order so ties resolve the same way
	// on every parse
	aliases := make([]string, 0, len(subjectAliases))
	for alias := range subjectAliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	mostSimilar := ""
	var similarity float64
	for _, alias := range aliases {
		sim := matchr.JaroWinkler(name, alias, false)
		if sim > similarity {
			similarity = sim
			mostSimilar = subjectAliases[alias]
		}
	}
	if similarity >= 0.9 {
		return mostSimilar
	}
	return name
}
