package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractCJK(t *testing.T) {
	testCases := []struct {
		text     string
		expected string
	}{
		{text: "王小明 WANG, XIAO-MING", expected: "王小明"},
		{text: "WANG, XIAO-MING 王小明", expected: "王小明"},
		{text: "歐陽靖 J. OUYANG (exchange)", expected: "歐陽靖"},
		{text: "PLAIN ASCII", expected: ""},
		{text: "", expected: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, ExtractCJK(test.text), test.text)
	}
}

func TestLeadingInt(t *testing.T) {
	testCases := []struct {
		text  string
		value int
		ok    bool
	}{
		{text: "36(78.89)", value: 36, ok: true},
		{text: "1(0.52)", value: 1, ok: true},
		{text: "42", value: 42, ok: true},
		{text: " 7(12.00)", value: 7, ok: true},
		{text: "–", ok: false},
		{text: "", ok: false},
		{text: "(78.89)", ok: false},
	}
	for _, test := range testCases {
		value, ok := LeadingInt(test.text)
		require.Equal(t, test.ok, ok, test.text)
		require.Equal(t, test.value, value, test.text)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(t, "高雄市 前鎮區", CollapseWhitespace("高雄市\n\t前鎮區 "))
	require.Equal(t, "", CollapseWhitespace(" \n "))
}
