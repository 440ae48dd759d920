package core

import (
	"fmt"
	"math"
	"sort"
)

type (
	// CategorySpending is a raw per-category total for one period, as
	// aggregated by the data service.
	CategorySpending struct {
		CategoryID int64
		Name       string
		Total      float64
		Count      int64
	}

	// CategoryShare is a category's slice of the period total. The same
	// ordered sequence feeds both the chart and the legend so that
	// index-based color assignment stays aligned.
	CategoryShare struct {
		CategoryID int64
		Name       string
		Total      float64
		Count      int64
		Percentage float64
	}

	// IndentedCategory is one entry of the depth-first projection of the
	// category forest, with its depth for display indentation.
	IndentedCategory struct {
		Category
		Depth int
	}
)

// DefaultPalette is the fixed chart palette. Colors are assigned by
// ordered index modulo palette size.
var DefaultPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// ColorAt assigns a palette color to an ordered index.
func ColorAt(palette []string, index int) string {
	if len(palette) == 0 || index < 0 {
		return ""
	}
	return palette[index%len(palette)]
}

// NormalizeShares computes each category's percentage of the grand total
/// and orders the result for display: descending total, name as tiebreak.
// With a zero grand total every percentage is zero.
func NormalizeShares(raw []CategorySpending) []CategoryShare {
	var grandTotal float64
	for _, r := range raw {
		grandTotal += r.Total
	}

	shares := make([]CategoryShare, 0, len(raw))
	for _, r := range raw {
		pct := 0.0
		if grandTotal > 0 {
			pct = r.Total / grandTotal * 100
		}
		shares = append(shares, CategoryShare{
			CategoryID: r.CategoryID,
			Name:       r.Name,
			Total:      r.Total,
			Count:      r.Count,
			Percentage: pct,
		})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Total != shares[j].Total {
			return shares[i].Total > shares[j].Total
		}
		return shares[i].Name < shares[j].Name
	})

	return shares
}

// VerifyShares checks the percentage-sum invariant: positive totals must
// share out to roughly 100 percent. A violation means upstream
// aggregation is broken and is reported, not tolerated.
func VerifyShares(shares []CategoryShare) error {
	var total, pctSum float64
	for _, s := range shares {
		total += s.Total
		pctSum += s.Percentage
	}
	if total <= 0 {
		return nil
	}
	if math.Abs(pctSum-100) > 0.01 {
		return fmt.Errorf("category percentages sum to %.4f, expected 100", pctSum)
	}
	return nil
}

// FlattenCategories projects the category forest into a depth-first
// ordered list with depth annotations. Roots and siblings are ordered by
// name. Categories whose parent is missing from the input are treated as
// roots rather than dropped.
func FlattenCategories(categories []Category) []IndentedCategory {
	byID := make(map[int64]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	children := make(map[int64][]Category)
	var roots []Category
	for _, c := range categories {
		if c.ParentID != nil {
			if _, ok := byID[*c.ParentID]; ok {
				children[*c.ParentID] = append(children[*c.ParentID], c)
				continue
			}
		}
		roots = append(roots, c)
	}

	byName := func(cs []Category) {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	}
	byName(roots)
	for id := range children {
		byName(children[id])
	}

	out := make([]IndentedCategory, 0, len(categories))
	var walk func(c Category, depth int)
	walk = func(c Category, depth int) {
		out = append(out, IndentedCategory{Category: c, Depth: depth})
		for _, child := range children[c.ID] {
			walk(child, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return out
}
