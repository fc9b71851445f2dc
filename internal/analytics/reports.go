package analytics

import (
	"math"
	"sort"

	"hargapanel/backend/internal/domain"
)

// ForecastWindowDays is the projection window used by the demand
// forecast.
const ForecastWindowDays = 30

// UncategorizedLabel groups purchases whose SKU no longer exists in the
// items collection.
const UncategorizedLabel = "Uncategorized"

// ForecastFilters narrows the sales records before grouping. BySKUOnly
// switches from the per-location detail view to the summary view, which
// also exposes the category filter.
type ForecastFilters struct {
	Location  string
	SKU       string
	StartDate string // inclusive, YYYY-MM-DD string compare
	EndDate   string // inclusive
	Category  string
	BySKUOnly bool
}

type ForecastRow struct {
	SKU           string  `json:"sku"`
	Location      string  `json:"location,omitempty"`
	Category      string  `json:"category,omitempty"`
	TotalQty      float64 `json:"totalQty"`
	DaysWithSales int     `json:"daysWithSales"`
	AveragePerDay float64 `json:"averagePerDay"`
	ForecastQty   int     `json:"forecast30Days"`
}

// Forecast groups sales by SKU (summary) or SKU+location (detail) and
// projects demand over the next ForecastWindowDays: average per day over
// the distinct dates that actually had sales, rounded up. Rows sort by
// projected quantity, highest first.
func Forecast(sales []domain.SalesRecord, items []domain.Item, f ForecastFilters) []ForecastRow {
	itemIndex := domain.ItemBySKU(items)

	type group struct {
		sku      string
		location string
		totalQty float64
		dates    map[string]struct{}
	}
	groups := make(map[string]*group)

	for _, rec := range sales {
		if f.Location != "" && rec.Location != f.Location {
			continue
		}
		if f.SKU != "" && rec.SKU != f.SKU {
			continue
		}
		if f.StartDate != "" && rec.Date < f.StartDate {
			continue
		}
		if f.EndDate != "" && rec.Date > f.EndDate {
			continue
		}
		if f.Category != "" && itemIndex[rec.SKU].Category != f.Category {
			continue
		}

		key := rec.SKU
		if !f.BySKUOnly {
			key = rec.SKU + "|" + rec.Location
		}
		g, ok := groups[key]
		if !ok {
			g = &group{sku: rec.SKU, location: rec.Location, dates: make(map[string]struct{})}
			groups[key] = g
		}
		g.totalQty += float64(rec.Qty)
		g.dates[rec.Date] = struct{}{}
	}

	rows := make([]ForecastRow, 0, len(groups))
	for _, g := range groups {
		daysWithSales := len(g.dates)
		averagePerDay := 0.0
		if daysWithSales > 0 {
			averagePerDay = g.totalQty / float64(daysWithSales)
		}

		row := ForecastRow{
			SKU:           g.sku,
			TotalQty:      g.totalQty,
			DaysWithSales: daysWithSales,
			AveragePerDay: averagePerDay,
			ForecastQty:   int(math.Ceil(averagePerDay * ForecastWindowDays)),
		}
		if f.BySKUOnly {
			row.Category = itemIndex[g.sku].Category
			if row.Category == "" {
				row.Category = "-"
			}
		} else {
			row.Location = g.location
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ForecastQty != rows[j].ForecastQty {
			return rows[i].ForecastQty > rows[j].ForecastQty
		}
		if rows[i].SKU != rows[j].SKU {
			return rows[i].SKU < rows[j].SKU
		}
		return rows[i].Location < rows[j].Location
	})
	return rows
}

type PricingFilters struct {
	Location string
	SKU      string
	Grade    string
}

type CompetitorPoint struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Index float64 `json:"index"`
}

type PricingGroup struct {
	SKU         string            `json:"sku"`
	Location    string            `json:"location"`
	Grade       string            `json:"grade"`
	OwnPrice    float64           `json:"ownPrice"`
	Competitors []CompetitorPoint `json:"competitors"`
}

// PricingIndexSummary groups competitor price points by (sku, location,
// grade). Each point carries the index captured when the record was
// saved; nothing is recomputed here. OwnPrice is taken from the first
// point seen for the group, matching how the records were captured.
func PricingIndexSummary(prices []domain.CompetitorPrice, f PricingFilters) []PricingGroup {
	type key struct{ sku, location, grade string }
	groups := make(map[key]*PricingGroup)
	order := make([]key, 0)

	for _, p := range prices {
		if f.Location != "" && p.NearLocation != f.Location {
			continue
		}
		if f.SKU != "" && p.ProductSKU != f.SKU {
			continue
		}
		if f.Grade != "" && p.Grade != f.Grade {
			continue
		}

		k := key{sku: p.ProductSKU, location: p.NearLocation, grade: p.Grade}
		g, ok := groups[k]
		if !ok {
			g = &PricingGroup{
				SKU:      p.ProductSKU,
				Location: p.NearLocation,
				Grade:    p.Grade,
				OwnPrice: float64(p.OwnPrice),
			}
			groups[k] = g
			order = append(order, k)
		}
		g.Competitors = append(g.Competitors, CompetitorPoint{
			Name:  p.CompetitorName,
			Price: float64(p.CompetitorPrice),
			Index: float64(p.PricingIndex),
		})
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].sku != order[j].sku {
			return order[i].sku < order[j].sku
		}
		if order[i].location != order[j].location {
			return order[i].location < order[j].location
		}
		return order[i].grade < order[j].grade
	})

	out := make([]PricingGroup, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out
}

type CategoryStat struct {
	Category string  `json:"category"`
	Qty      float64 `json:"qty"`
	Value    float64 `json:"value"`
}

// CategoryAggregate sums purchase qty and value per item category.
// Purchases whose SKU is unknown fall under UncategorizedLabel. Sorted
// by qty, highest first.
func CategoryAggregate(purchases []domain.Purchase, items []domain.Item) []CategoryStat {
	itemIndex := domain.ItemBySKU(items)
	stats := make(map[string]*CategoryStat)

	for _, p := range purchases {
		category := UncategorizedLabel
		if item, ok := itemIndex[p.SKU]; ok && item.Category != "" {
			category = item.Category
		}
		stat, ok := stats[category]
		if !ok {
			stat = &CategoryStat{Category: category}
			stats[category] = stat
		}
		stat.Qty += float64(p.Qty)
		stat.Value += float64(p.Value)
	}

	out := make([]CategoryStat, 0, len(stats))
	for _, stat := range stats {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Qty != out[j].Qty {
			return out[i].Qty > out[j].Qty
		}
		return out[i].Category < out[j].Category
	})
	return out
}

type LocationTotal struct {
	Location string  `json:"location"`
	Total    float64 `json:"total"`
}

// PurchasesByLocation totals purchase value per known location, in the
// locations' own order. Purchases against deleted locations are simply
// not counted here; they still show in the category aggregate.
func PurchasesByLocation(purchases []domain.Purchase, locations []string) []LocationTotal {
	out := make([]LocationTotal, 0, len(locations))
	for _, loc := range locations {
		total := 0.0
		for _, p := range purchases {
			if p.Location == loc {
				total += float64(p.Value)
			}
		}
		out = append(out, LocationTotal{Location: loc, Total: total})
	}
	return out
}

type SupplierTerm struct {
	Name string `json:"name"`
	Top  int    `json:"top"`
}

// TopSuppliersByTerm lists the n suppliers with the longest payment
// terms.
func TopSuppliersByTerm(suppliers []domain.Supplier, n int) []SupplierTerm {
	sorted := append([]domain.Supplier(nil), suppliers...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Top != sorted[j].Top {
			return sorted[i].Top > sorted[j].Top
		}
		return sorted[i].Name < sorted[j].Name
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]SupplierTerm, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, SupplierTerm{Name: s.Name, Top: int(s.Top)})
	}
	return out
}

type IndexAlert struct {
	Competitor   string  `json:"competitor"`
	Location     string  `json:"location"`
	Product      string  `json:"product"`
	IndexPercent float64 `json:"indexPercent"`
}

// WorstPricingIndexes returns the n price points where the competitor
// undercuts us the hardest (stored index below 1), worst first.
func WorstPricingIndexes(prices []domain.CompetitorPrice, items []domain.Item, n int) []IndexAlert {
	itemIndex := domain.ItemBySKU(items)

	alerts := make([]IndexAlert, 0)
	for _, p := range prices {
		index := float64(p.PricingIndex)
		if index >= 1 {
			continue
		}
		product := p.ProductSKU
		if item, ok := itemIndex[p.ProductSKU]; ok && item.Name != "" {
			product = item.Name
		}
		alerts = append(alerts, IndexAlert{
			Competitor:   p.CompetitorName,
			Location:     p.NearLocation,
			Product:      product,
			IndexPercent: domain.Round2(index * 100),
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].IndexPercent != alerts[j].IndexPercent {
			return alerts[i].IndexPercent < alerts[j].IndexPercent
		}
		return alerts[i].Product < alerts[j].Product
	})
	if n > 0 && len(alerts) > n {
		alerts = alerts[:n]
	}
	return alerts
}
