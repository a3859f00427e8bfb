package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Jurisdiction
	}{
		{"NY", NY},
		{"ny", NY},
		{" ny ", NY},
		{"Calif", CA},
		{"CALIF.", CA},
		{"MASS", MA},
		{"Mass.", MA},
		{"W Va", WV},
		{"W. Va.", WV},
		{"Tex", TX},
		{"new york", NY},
		{"District of Columbia", DC},
		{"D.C.", DC},
		{"Ind", IN},
		{"Wyo", WY},
		{"ZZ", "ZZ"},
		{"atlantis", "ATLANTIS"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestEveryJurisdictionHasAName(t *testing.T) {
	require.Len(t, All, 51, "50 states plus DC")
	for _, j := range All {
		assert.True(t, j.Known(), "%s not known", j)
		assert.NotEqual(t, string(j), j.Name(), "%s has no full name", j)
		assert.Equal(t, j, Normalize(j.Name()), "full name of %s", j)
	}
	assert.False(t, Jurisdiction("ZZ").Known())
}

func TestHasCityTax(t *testing.T) {
	assert.True(t, NY.HasCityTax())
	for _, j := range All {
		if j != NY {
			assert.False(t, j.HasCityTax(), "%s should not have city tax", j)
		}
	}
}
