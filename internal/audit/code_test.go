package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanon(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want CourseCode
	}{
		{name: "already canonical", raw: "CMPSC 121", want: "CMPSC 121"},
		{name: "lowercase", raw: "cmpsc 121", want: "CMPSC 121"},
		{name: "extra whitespace", raw: "  CMPSC \t  121 ", want: "CMPSC 121"},
		{name: "hyphenated", raw: "CMPSC-121", want: "CMPSC 121"},
		{name: "slash separated", raw: "MATH/140", want: "MATH 140"},
		{name: "no space", raw: "ENGL15", want: "ENGL 15"},
		{name: "writing suffix", raw: "cmpsc 431w", want: "CMPSC 431W"},
		{name: "honors suffix", raw: "MATH 140H", want: "MATH 140H"},
		{name: "one letter subject", raw: "C 121", want: InvalidCode},
		{name: "subject too long", raw: "ABCDEFG 121", want: InvalidCode},
		{name: "four digit number", raw: "CMPSC 1210", want: InvalidCode},
		{name: "two letter suffix", raw: "CMPSC 121WH", want: InvalidCode},
		{name: "empty", raw: "", want: InvalidCode},
		{name: "prose", raw: "Total units required", want: InvalidCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canon(tt.raw))
		})
	}
}

func TestCanonIdempotent(t *testing.T) {
	for _, raw := range []string{"cmpsc-121", "MATH  140H", "engl15", "STAT 318", "ds/200"} {
		once := Canon(raw)
		assert.True(t, once.Valid(), raw)
		assert.Equal(t, once, Canon(string(once)), raw)
	}
}

func TestCourseCodeParts(t *testing.T) {
	c := Canon("cmpsc 431w")
	assert.Equal(t, "CMPSC", c.Subject())
	assert.Equal(t, "431", c.Number())
	assert.Equal(t, "W", c.Suffix())
	assert.Equal(t, CourseCode("CMPSC 431"), c.Base())
	assert.False(t, InvalidCode.Valid())
	assert.Equal(t, InvalidCode, InvalidCode.Base())
}

func TestVariantForms(t *testing.T) {
	assert.Equal(t,
		[]CourseCode{"CMPSC 121", "CMPSC 121W", "CMPSC 121H"},
		VariantForms("CMPSC 121"))
	assert.Equal(t, []CourseCode{"CMPSC 431W"}, VariantForms("CMPSC 431W"))
	assert.Nil(t, VariantForms(InvalidCode))
}

func TestCodeSet(t *testing.T) {
	s := NewCodeSet("MATH 141", InvalidCode, "CMPSC 121", "MATH 141")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []CourseCode{"CMPSC 121", "MATH 141"}, s.Sorted())
	assert.True(t, s.Intersects(NewCodeSet("MATH 141", "DS 200")))
	assert.False(t, s.Intersects(NewCodeSet("DS 200")))
	assert.False(t, s.Intersects(NewCodeSet()))
}
