package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:      "Federal",
		Headers:    []string{"Bracket", "Tax"},
		Rows:       [][]string{{"$0 - $11,600", "$1,160.00"}, {"$11,600 +", "$5.00"}},
		RightAlign: []int{1},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Contains(t, lines[0], "Federal")
	assert.Contains(t, out, "$0 - $11,600")
	assert.Contains(t, out, "     $5.00")
	// title, top rule, header, separator, two rows, bottom rule
	assert.Len(t, lines, 7)
}

func TestRenderTableEmpty(t *testing.T) {
	assert.Empty(t, RenderTable(Table{}))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "17.40%", Percent(0.174))
	assert.Equal(t, "0.00%", Percent(0))
}
