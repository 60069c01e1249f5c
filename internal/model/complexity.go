package model

import (
	"encoding/json"
	"strings"
)

// Rank is the ordinal position of a Big-O class on the fixed scale, 1 (O(1))
// through 8 (O(n!)).
type Rank int

// RankUnknown marks a label outside the scale. It is deliberately not 0 so it
// can never be mistaken for a rank or a zero value that sorts below O(1).
const RankUnknown Rank = -1

const UnknownLabel = "unknown"

type scaleEntry struct {
	label string
	rank  Rank
}

var complexityScale = []scaleEntry{
	{"O(1)", 1},
	{"O(log n)", 2},
	{"O(n)", 3},
	{"O(n log n)", 4},
	{"O(n^2)", 5},
	{"O(n^3)", 6},
	{"O(2^n)", 7},
	{"O(n!)", 8},
}

var scaleByKey = func() map[string]scaleEntry {
	m := make(map[string]scaleEntry, len(complexityScale))
	for _, e := range complexityScale {
		m[NormalizeComplexity(e.label)] = e
	}
	return m
}()

var complexityReplacer = strings.NewReplacer(
	"²", "2",
	"³", "3",
	"ⁿ", "N",
	"^", "",
	"*", "",
	"·", "",
	"`", "",
	" ", "",
	"\t", "",
	"\n", "",
	"\r", "",
)

// NormalizeComplexity canonicalises a Big-O label for lookup: upper case,
// no whitespace, no exponent or multiplication markers, superscripts folded to
// digits, trailing period dropped. It is idempotent.
func NormalizeComplexity(label string) string {
	s := complexityReplacer.Replace(strings.TrimSpace(label))
	return strings.TrimRight(strings.ToUpper(s), ".")
}

// ParseComplexity maps a label to its rank, or RankUnknown.
func ParseComplexity(label string) Rank {
	if e, ok := scaleByKey[NormalizeComplexity(label)]; ok {
		return e.rank
	}
	return RankUnknown
}

func (r Rank) Known() bool {
	return r >= 1 && int(r) <= len(complexityScale)
}

// Label returns the canonical label for r, or "unknown".
func (r Rank) Label() string {
	if !r.Known() {
		return UnknownLabel
	}
	return complexityScale[r-1].label
}

func (r Rank) String() string {
	return r.Label()
}

// MarshalJSON renders unknown ranks as null.
func (r Rank) MarshalJSON() ([]byte, error) {
	if !r.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(int(r))
}

func (r *Rank) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RankUnknown
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Rank(v)
	if !r.Known() {
		*r = RankUnknown
	}
	return nil
}

// Complexity is one classified dimension of a result.
type Complexity struct {
	Raw   string `json:"raw"`
	Label string `json:"label"`
	Rank  Rank   `json:"rank"`
}

func NewComplexity(raw string) *Complexity {
	rank := ParseComplexity(raw)
	return &Complexity{
		Raw:   raw,
		Label: rank.Label(),
		Rank:  rank,
	}
}

// ComplexityLabels lists the scale in rank order.
func ComplexityLabels() []string {
	labels := make([]string, len(complexityScale))
	for i, e := range complexityScale {
		labels[i] = e.label
	}
	return labels
}
