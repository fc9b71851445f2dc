package analytics

import (
	"math"
	"testing"

	"hargapanel/backend/internal/domain"
)

func TestForecastWorkedExample(t *testing.T) {
	sales := []domain.SalesRecord{
		{Date: "2023-10-01", Location: "Toko Jakarta", SKU: "ITM001", Qty: 10},
		{Date: "2023-10-02", Location: "Toko Jakarta", SKU: "ITM001", Qty: 15},
		{Date: "2023-10-03", Location: "Toko Jakarta", SKU: "ITM001", Qty: 12},
	}

	rows := Forecast(sales, nil, ForecastFilters{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 group, got %d", len(rows))
	}

	row := rows[0]
	if row.DaysWithSales != 3 {
		t.Fatalf("expected 3 days with sales, got %d", row.DaysWithSales)
	}
	if math.Abs(row.AveragePerDay-12.333333) > 0.0001 {
		t.Fatalf("expected average ~12.333, got %v", row.AveragePerDay)
	}
	if row.ForecastQty != 370 {
		t.Fatalf("expected forecast ceil(12.333*30)=370, got %d", row.ForecastQty)
	}
	if row.Location != "Toko Jakarta" {
		t.Fatalf("detail view must carry the location, got %q", row.Location)
	}
}

func TestForecastMultipleSalesSameDayCountOnce(t *testing.T) {
	sales := []domain.SalesRecord{
		{Date: "2023-10-01", Location: "Toko Jakarta", SKU: "ITM001", Qty: 5},
		{Date: "2023-10-01", Location: "Toko Jakarta", SKU: "ITM001", Qty: 7},
	}

	rows := Forecast(sales, nil, ForecastFilters{})
	if rows[0].DaysWithSales != 1 {
		t.Fatalf("two records on one date must count as 1 day, got %d", rows[0].DaysWithSales)
	}
	if rows[0].AveragePerDay != 12 {
		t.Fatalf("expected average 12, got %v", rows[0].AveragePerDay)
	}
}

func TestForecastSummaryGroupsAcrossLocations(t *testing.T) {
	items := []domain.Item{{SKU: "ITM001", Category: "Sembako"}}
	sales := []domain.SalesRecord{
		{Date: "2023-10-01", Location: "Toko Jakarta", SKU: "ITM001", Qty: 10},
		{Date: "2023-10-01", Location: "Toko Bandung", SKU: "ITM001", Qty: 20},
		{Date: "2023-10-02", Location: "Toko Jakarta", SKU: "ITM001", Qty: 6},
	}

	detail := Forecast(sales, items, ForecastFilters{})
	if len(detail) != 2 {
		t.Fatalf("detail view should keep locations apart, got %d rows", len(detail))
	}

	summary := Forecast(sales, items, ForecastFilters{BySKUOnly: true})
	if len(summary) != 1 {
		t.Fatalf("summary view should merge locations, got %d rows", len(summary))
	}
	if summary[0].TotalQty != 36 {
		t.Fatalf("expected total 36, got %v", summary[0].TotalQty)
	}
	if summary[0].DaysWithSales != 2 {
		t.Fatalf("expected 2 distinct dates, got %d", summary[0].DaysWithSales)
	}
	if summary[0].Category != "Sembako" {
		t.Fatalf("summary rows carry the item category, got %q", summary[0].Category)
	}
}

func TestForecastSummaryUnknownItemCategoryDash(t *testing.T) {
	sales := []domain.SalesRecord{{Date: "2023-10-01", SKU: "GONE", Qty: 3}}
	rows := Forecast(sales, nil, ForecastFilters{BySKUOnly: true})
	if rows[0].Category != "-" {
		t.Fatalf("unknown item renders category '-', got %q", rows[0].Category)
	}
}

func TestForecastDateRangeFilter(t *testing.T) {
	sales := []domain.SalesRecord{
		{Date: "2023-09-30", SKU: "ITM001", Qty: 100},
		{Date: "2023-10-01", SKU: "ITM001", Qty: 10},
		{Date: "2023-10-05", SKU: "ITM001", Qty: 10},
		{Date: "2023-11-01", SKU: "ITM001", Qty: 100},
	}

	rows := Forecast(sales, nil, ForecastFilters{BySKUOnly: true, StartDate: "2023-10-01", EndDate: "2023-10-31"})
	if rows[0].TotalQty != 20 {
		t.Fatalf("date filter should keep only October rows, got total %v", rows[0].TotalQty)
	}
}

func TestForecastEmptyGroupAverageIsZero(t *testing.T) {
	rows := Forecast(nil, nil, ForecastFilters{})
	if len(rows) != 0 {
		t.Fatalf("no sales yields no rows, got %d", len(rows))
	}
}

func TestPricingIndexSummaryGroupsAndKeepsStoredIndexes(t *testing.T) {
	prices := []domain.CompetitorPrice{
		{ID: "C1", CompetitorName: "Toko Sebelah", NearLocation: "Toko Jakarta", ProductSKU: "ITM001", Grade: domain.GradeRetail, CompetitorPrice: 59000, OwnPrice: 60000, PricingIndex: 0.9833},
		{ID: "C2", CompetitorName: "Warung Murah", NearLocation: "Toko Jakarta", ProductSKU: "ITM001", Grade: domain.GradeRetail, CompetitorPrice: 61000, OwnPrice: 60000, PricingIndex: 1.0167},
		{ID: "C3", CompetitorName: "Toko Sebelah", NearLocation: "Toko Jakarta", ProductSKU: "ITM001", Grade: domain.GradeReseller, CompetitorPrice: 55000, OwnPrice: 57000, PricingIndex: 0.9649},
	}

	groups := PricingIndexSummary(prices, PricingFilters{})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups (retail, reseller), got %d", len(groups))
	}

	// Deterministic order: reseller sorts before retail.
	retail := groups[1]
	if retail.Grade != domain.GradeRetail {
		t.Fatalf("expected retail group second, got %q", retail.Grade)
	}
	if retail.OwnPrice != 60000 {
		t.Fatalf("expected group own price 60000, got %v", retail.OwnPrice)
	}
	if len(retail.Competitors) != 2 {
		t.Fatalf("expected 2 competitor points, got %d", len(retail.Competitors))
	}
	if retail.Competitors[0].Index != 0.9833 {
		t.Fatalf("stored index must not be recomputed, got %v", retail.Competitors[0].Index)
	}
}

func TestPricingIndexSummaryFilters(t *testing.T) {
	prices := []domain.CompetitorPrice{
		{NearLocation: "Toko Jakarta", ProductSKU: "ITM001", Grade: domain.GradeRetail},
		{NearLocation: "Toko Bandung", ProductSKU: "ITM001", Grade: domain.GradeRetail},
		{NearLocation: "Toko Jakarta", ProductSKU: "ITM002", Grade: domain.GradeReseller},
	}

	groups := PricingIndexSummary(prices, PricingFilters{Location: "Toko Jakarta", Grade: domain.GradeRetail})
	if len(groups) != 1 || groups[0].SKU != "ITM001" {
		t.Fatalf("filters not applied: %+v", groups)
	}
}

func TestCategoryAggregateUnknownSKU(t *testing.T) {
	items := []domain.Item{{SKU: "ITM001", Category: "Sembako"}}
	purchases := []domain.Purchase{
		{SKU: "ITM001", Qty: 10, Value: 520000},
		{SKU: "ITM001", Qty: 5, Value: 260000},
		{SKU: "DELETED-SKU", Qty: 3, Value: 90000},
	}

	stats := CategoryAggregate(purchases, items)
	if len(stats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(stats))
	}
	if stats[0].Category != "Sembako" || stats[0].Qty != 15 || stats[0].Value != 780000 {
		t.Fatalf("unexpected aggregate: %+v", stats[0])
	}
	if stats[1].Category != UncategorizedLabel {
		t.Fatalf("unknown SKU must fall under %q, got %q", UncategorizedLabel, stats[1].Category)
	}
	if stats[1].Qty != 3 || stats[1].Value != 90000 {
		t.Fatalf("unexpected uncategorized aggregate: %+v", stats[1])
	}
}

func TestPurchasesByLocation(t *testing.T) {
	purchases := []domain.Purchase{
		{Location: "Toko Jakarta", Value: 100000},
		{Location: "Toko Jakarta", Value: 50000},
		{Location: "Toko Hilang", Value: 77000},
	}

	totals := PurchasesByLocation(purchases, []string{"Toko Jakarta", "Toko Bandung"})
	if len(totals) != 2 {
		t.Fatalf("expected one row per known location, got %d", len(totals))
	}
	if totals[0].Total != 150000 {
		t.Fatalf("expected Jakarta total 150000, got %v", totals[0].Total)
	}
	if totals[1].Total != 0 {
		t.Fatalf("expected Bandung total 0, got %v", totals[1].Total)
	}
}

func TestTopSuppliersByTerm(t *testing.T) {
	suppliers := []domain.Supplier{
		{Name: "A", Top: 7},
		{Name: "B", Top: 45},
		{Name: "C", Top: 30},
	}

	top := TopSuppliersByTerm(suppliers, 2)
	if len(top) != 2 || top[0].Name != "B" || top[1].Name != "C" {
		t.Fatalf("unexpected top suppliers: %+v", top)
	}
}

func TestWorstPricingIndexes(t *testing.T) {
	items := []domain.Item{{SKU: "ITM001", Name: "Beras Premium 5kg"}}
	prices := []domain.CompetitorPrice{
		{CompetitorName: "Toko Sebelah", NearLocation: "Toko Jakarta", ProductSKU: "ITM001", PricingIndex: 0.9833},
		{CompetitorName: "Warung Murah", NearLocation: "Toko Jakarta", ProductSKU: "ITM001", PricingIndex: 0.91},
		{CompetitorName: "Grosir Mahal", NearLocation: "Toko Jakarta", ProductSKU: "ITM001", PricingIndex: 1.05},
	}

	alerts := WorstPricingIndexes(prices, items, 10)
	if len(alerts) != 2 {
		t.Fatalf("index >= 1 must be excluded, got %d alerts", len(alerts))
	}
	if alerts[0].Competitor != "Warung Murah" {
		t.Fatalf("worst index must come first, got %+v", alerts[0])
	}
	if alerts[0].IndexPercent != 91 {
		t.Fatalf("expected 91%%, got %v", alerts[0].IndexPercent)
	}
	if alerts[1].IndexPercent != 98.33 {
		t.Fatalf("expected 98.33%%, got %v", alerts[1].IndexPercent)
	}
	if alerts[0].Product != "Beras Premium 5kg" {
		t.Fatalf("expected item name lookup, got %q", alerts[0].Product)
	}
}
