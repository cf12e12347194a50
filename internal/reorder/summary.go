package reorder

import "sort"

type CategorySummary struct {
	Category         string `json:"category"`
	Products         int    `json:"products"`
	NeedingOrder     int    `json:"needing_order"`
	TotalRecommended int    `json:"total_recommended_qty"`
}

type Summary struct {
	TotalProducts        int               `json:"total_products"`
	Critical             int               `json:"critical"`
	Warning              int               `json:"warning"`
	Good                 int               `json:"good"`
	ProductsNeedingOrder int               `json:"products_needing_order"`
	TotalRecommendedQty  int               `json:"total_recommended_qty"`
	ByCategory           []CategorySummary `json:"by_category"`
}

// Summarize aggregates every evaluated recommendation, actionable or not.
func Summarize(recs []Recommendation) Summary {
	s := Summary{TotalProducts: len(recs)}
	byCategory := map[string]*CategorySummary{}

	for _, r := range recs {
		switch r.UrgencyStatus {
		case UrgencyRed:
			s.Critical++
		case UrgencyYellow:
			s.Warning++
		default:
			s.Good++
		}

		cat, ok := byCategory[r.Category]
		if !ok {
			cat = &CategorySummary{Category: r.Category}
			byCategory[r.Category] = cat
		}
		cat.Products++

		if r.Actionable() {
			s.ProductsNeedingOrder++
			s.TotalRecommendedQty += r.RecommendedOrderQty
			cat.NeedingOrder++
			cat.TotalRecommended += r.RecommendedOrderQty
		}
	}

	s.ByCategory = make([]CategorySummary, 0, len(byCategory))
	for _, cat := range byCategory {
		s.ByCategory = append(s.ByCategory, *cat)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})
	return s
}
