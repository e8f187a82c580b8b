package audit

import (
	"regexp"
	"strconv"
)

// Totals is the report's own required/used/needed statement.
type Totals struct {
	Required float64 `json:"required"`
	Used     float64 `json:"used"`
	Needed   float64 `json:"needed"`
}

const unitNumber = `\b(\d{1,3}(?:\.\d{1,3})?)`

var totalsTripleRe = regexp.MustCompile(`(?i)` + unitNumber + `\s*required\s*,?\s*` +
	unitNumber + `\s*used\s*,?\s*` + unitNumber + `\s*needed`)

// TotalsResolver locates the authoritative totals line.
type TotalsResolver struct {
	anchor *regexp.Regexp
	window int
	lo, hi float64
}

func NewTotalsResolver(anchor string, window int, lo, hi float64) *TotalsResolver {
	return &TotalsResolver{anchor: phraseRe(anchor), window: window, lo: lo, hi: hi}
}

// Resolve returns the first in-bounds triple found within the window after
// an anchor phrase. Failing that, it returns the in-bounds triple with the
// largest required value anywhere in text.
func (r *TotalsResolver) Resolve(text string) (Totals, bool) {
	for _, a := range r.anchor.FindAllStringIndex(text, -1) {
		end := a[1] + r.window
		if end > len(text) {
			end = len(text)
		}
		for _, t := range r.triples(text[a[1]:end]) {
			if r.inBounds(t) {
				return t, true
			}
		}
	}

	var (
		best  Totals
		found bool
	)
	for _, t := range r.triples(text) {
		if r.inBounds(t) && (!found || t.Required > best.Required) {
			best, found = t, true
		}
	}
	return best, found
}

func (r *TotalsResolver) inBounds(t Totals) bool {
	return t.Required >= r.lo && t.Required <= r.hi
}

func (r *TotalsResolver) triples(s string) []Totals {
	var out []Totals
	for _, m := range totalsTripleRe.FindAllStringSubmatch(s, -1) {
		req, err1 := strconv.ParseFloat(m[1], 64)
		used, err2 := strconv.ParseFloat(m[2], 64)
		need, err3 := strconv.ParseFloat(m[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		out = append(out, Totals{Required: req, Used: used, Needed: need})
	}
	return out
}
