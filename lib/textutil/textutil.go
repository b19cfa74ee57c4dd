package textutil

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// CollapseWhitespace replaces every run of whitespace (including the
// line breaks the legacy server embeds inside table cells) with a
// single space and trims the result.
func CollapseWhitespace(s string) string {
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " ")
}

// ExtractCJK returns the longest contiguous run of Han characters in
// the input. Legacy name fields mix scripts, ex. "王小明 WANG, XIAO-MING",
// and only the chinese part is the student's registered name.
func ExtractCJK(s string) string {
	var longest []rune
	var current []rune
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			current = append(current, r)
			continue
		}
		if len(current) > len(longest) {
			longest = current
		}
		current = nil
	}
	if len(current) > len(longest) {
		longest = current
	}
	return string(longest)
}

var leadingIntRegex = regexp.MustCompile(`^\s*(\d+)`)

// LeadingInt parses the integer prefix of a cell such as "36(78.89)".
// Cells holding a dash or nothing report no value.
func LeadingInt(s string) (int, bool) {
	match := leadingIntRegex.FindStringSubmatch(s)
	if len(match) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
