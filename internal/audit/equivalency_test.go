package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandReflexive(t *testing.T) {
	exp := NewExpander(nil)
	for _, raw := range []string{"CMPSC 121", "math-140", "ENGL 15W"} {
		c := Canon(raw)
		assert.True(t, exp.Expand(CourseCode(raw)).Has(c), raw)
	}
}

func TestExpandAddsVariantsAndEquivalents(t *testing.T) {
	exp := NewExpander(Equivalences{"CMPSC 131": {"CMPSC 121"}})

	got := exp.Expand("CMPSC 131").Sorted()
	assert.Equal(t, []CourseCode{
		"CMPSC 121", "CMPSC 121H", "CMPSC 121W",
		"CMPSC 131", "CMPSC 131H", "CMPSC 131W",
	}, got)
}

func TestExpandSymmetric(t *testing.T) {
	// Listed one way only; the expander still treats the pair symmetrically.
	exp := NewExpander(Equivalences{"cmpsc 132": {"CMPSC-122"}})

	assert.True(t, exp.Expand("CMPSC 132").Has("CMPSC 122"))
	assert.True(t, exp.Expand("CMPSC 122").Has("CMPSC 132"))
	assert.Equal(t, []CourseCode{"CMPSC 122"}, exp.Equivalents("CMPSC 132"))
}

func TestExpandDefaultTableSymmetric(t *testing.T) {
	cfg := DefaultConfig()
	exp := NewExpander(cfg.Equivalences)
	for a, bs := range cfg.Equivalences {
		for _, b := range bs {
			assert.True(t, exp.Expand(CourseCode(a)).Has(Canon(b)), "%s -> %s", a, b)
			assert.True(t, exp.Expand(CourseCode(b)).Has(Canon(a)), "%s -> %s", b, a)
		}
	}
}

func TestExpandFiltersInvalid(t *testing.T) {
	exp := NewExpander(Equivalences{"not a code": {"CMPSC 121"}, "CMPSC 121": {"???"}})
	assert.Empty(t, exp.Equivalents("CMPSC 121"))
	assert.Equal(t, 0, exp.Expand("garbage", InvalidCode).Len())
}
