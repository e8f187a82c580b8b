package audit

// Equivalences maps a raw course code to the codes that may be substituted
// for it, e.g. an intro course and its accelerated-track counterpart.
type Equivalences map[string][]string

// Expander computes the equivalency closure used for requirement matching.
// It is immutable once built and safe for concurrent use.
type Expander struct {
	direct map[CourseCode][]CourseCode
}

// NewExpander canonicalizes the table and makes every pair symmetric.
// Entries whose codes do not canonicalize are dropped.
func NewExpander(eq Equivalences) *Expander {
	sets := make(map[CourseCode]CodeSet)
	link := func(a, b CourseCode) {
		if sets[a] == nil {
			sets[a] = NewCodeSet()
		}
		sets[a].Add(b)
	}

	for rawKey, rawVals := range eq {
		key := Canon(rawKey)
		if !key.Valid() {
			continue
		}
		for _, rv := range rawVals {
			v := Canon(rv)
			if !v.Valid() || v == key {
				continue
			}
			link(key, v)
			link(v, key)
		}
	}

	direct := make(map[CourseCode][]CourseCode, len(sets))
	for k, s := range sets {
		direct[k] = s.Sorted()
	}
	return &Expander{direct: direct}
}

// Equivalents returns the direct substitutes listed for c.
func (e *Expander) Equivalents(c CourseCode) []CourseCode {
	if e == nil {
		return nil
	}
	return e.direct[c]
}

// Expand returns every code that satisfies the same requirement as any of
// codes: the code itself, its variant forms, and its direct equivalents with
// their variant forms. Raw, non-canonical input is canonicalized first.
func (e *Expander) Expand(codes ...CourseCode) CodeSet {
	out := NewCodeSet()
	for _, raw := range codes {
		c := Canon(string(raw))
		if !c.Valid() {
			continue
		}
		for _, v := range VariantForms(c) {
			out.Add(v)
		}
		for _, eq := range e.Equivalents(c) {
			for _, v := range VariantForms(eq) {
				out.Add(v)
			}
		}
	}
	return out
}

// ExpandSet is Expand over a set.
func (e *Expander) ExpandSet(s CodeSet) CodeSet {
	codes := make([]CourseCode, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	return e.Expand(codes...)
}
