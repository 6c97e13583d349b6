package closebook

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
)

// Candidate is a ranked potential match for an unmatched subledger item.
// Kind names the identifying key field ("invoice_id", "bill_id", "doc_id",
// "txn_id"); Score is in [0,1], higher is more plausible.
type Candidate struct {
	Key    string          `json:"key"`
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Date   Date            `json:"-"`
	DateStr string         `json:"date"`
	Name   string          `json:"name"`
	Score  float64         `json:"score"`
}

// MatchTarget is the item a candidate pool is scored against.
type MatchTarget struct {
	Amount decimal.Decimal
	Date   Date
	Name   string
}

// ScoreCandidates ranks a candidate pool against a target by weighted
// similarity of amount proximity, date proximity and name similarity.
//
// The score maps a normalized weighted distance d to 1/(1+d), so it is
// bounded in (0,1] and monotonically decreasing in distance. Ties break by
// earliest natural key. The result is ordered descending by score and
// truncated to cap.
func ScoreCandidates(target MatchTarget, pool []Candidate, w MatchWeights, cap int) []Candidate {
	scored := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		c.Score = matchScore(target, c, w)
		if c.DateStr == "" && !c.Date.IsZero() {
			c.DateStr = c.Date.String()
		}
		scored = append(scored, c)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Key < scored[j].Key
	})
	if cap > 0 && len(scored) > cap {
		scored = scored[:cap]
	}
	return scored
}

func matchScore(t MatchTarget, c Candidate, w MatchWeights) float64 {
	total := w.Amount + w.Date + w.Name
	if total == 0 {
		return 0
	}
	d := w.Amount*amountDistance(t.Amount, c.Amount) +
		w.Date*dateDistance(t.Date, c.Date) +
		w.Name*(1-NameSimilarity(t.Name, c.Name))
	d /= total
	return 1 / (1 + d)
}

// amountDistance is the absolute amount delta relative to the target
// magnitude (floored at 1 to keep small amounts meaningful).
func amountDistance(a, b decimal.Decimal) float64 {
	delta := a.Sub(b).Abs()
	base := a.Abs()
	if base.LessThan(decimal.NewFromInt(1)) {
		base = decimal.NewFromInt(1)
	}
	return delta.Div(base).InexactFloat64()
}

// dateDistance normalizes the day delta against a 30-day month.
func dateDistance(a, b Date) float64 {
	if a.IsZero() || b.IsZero() {
		return 1
	}
	days := DaysBetween(a, b)
	if days < 0 {
		days = -days
	}
	return float64(days) / 30
}

// NameSimilarity returns a similarity in [0,1] between two counterparty
// names, using fuzzy subsequence matching in both directions. Identical
// names score 1, disjoint names 0.
func NameSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	s := fuzzyRatio(a, b)
	if r := fuzzyRatio(b, a); r > s {
		s = r
	}
	return s
}

// fuzzyRatio scores pattern against target and normalizes by the score the
// pattern achieves against itself, clamped to [0,1].
func fuzzyRatio(pattern, target string) float64 {
	matches := fuzzy.Find(pattern, []string{target})
	if len(matches) == 0 {
		return 0
	}
	self := fuzzy.Find(pattern, []string{pattern})
	if len(self) == 0 || self[0].Score <= 0 {
		return 0
	}
	r := float64(matches[0].Score) / float64(self[0].Score)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
