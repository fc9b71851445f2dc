package analytics

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hargapanel/backend/internal/cache"
	"hargapanel/backend/internal/domain"
)

// Engine wraps the pure report functions with a shared result cache.
// Keys carry the snapshot version, so a sync or re-fetch naturally
// invalidates every cached report without explicit eviction.
type Engine struct {
	cache    cache.ResultCache
	cacheTTL time.Duration
}

func NewEngine(resultCache cache.ResultCache, cacheTTL time.Duration) *Engine {
	if resultCache == nil {
		resultCache = cache.NoopResultCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &Engine{cache: resultCache, cacheTTL: cacheTTL}
}

func (e *Engine) Forecast(ctx context.Context, version uint64, snap *domain.Snapshot, f ForecastFilters) []ForecastRow {
	key := buildCacheKey("forecast", version,
		f.Location, f.SKU, f.StartDate, f.EndDate, f.Category, fmt.Sprintf("skuonly:%t", f.BySKUOnly))

	if payload, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		var rows []ForecastRow
		if json.Unmarshal(payload, &rows) == nil {
			return rows
		}
	}

	rows := Forecast(snap.SalesData, snap.Items, f)
	e.put(ctx, key, rows)
	return rows
}

func (e *Engine) PricingIndex(ctx context.Context, version uint64, snap *domain.Snapshot, f PricingFilters) []PricingGroup {
	key := buildCacheKey("pricing-index", version, f.Location, f.SKU, f.Grade)

	if payload, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		var groups []PricingGroup
		if json.Unmarshal(payload, &groups) == nil {
			return groups
		}
	}

	groups := PricingIndexSummary(snap.Competitors, f)
	e.put(ctx, key, groups)
	return groups
}

// DashboardReport is the aggregate view rendered on the landing page.
type DashboardReport struct {
	TotalPurchaseValue  float64         `json:"totalPurchaseValue"`
	ActiveSupplierCount int             `json:"activeSupplierCount"`
	PurchasesByLocation []LocationTotal `json:"purchasesByLocation"`
	TopSuppliers        []SupplierTerm  `json:"topSuppliers"`
	CategoryStats       []CategoryStat  `json:"categoryStats"`
	WorstPricingIndexes []IndexAlert    `json:"worstPricingIndexes"`
}

func (e *Engine) Dashboard(ctx context.Context, version uint64, snap *domain.Snapshot) DashboardReport {
	key := buildCacheKey("dashboard", version)

	if payload, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		var report DashboardReport
		if json.Unmarshal(payload, &report) == nil {
			return report
		}
	}

	total := 0.0
	activeSuppliers := make(map[string]struct{})
	for _, p := range snap.Purchases {
		total += float64(p.Value)
		if p.SupplierID != "" {
			activeSuppliers[p.SupplierID] = struct{}{}
		}
	}

	locationNames := make([]string, 0, len(snap.Locations))
	for _, loc := range snap.Locations {
		locationNames = append(locationNames, loc.Name)
	}

	report := DashboardReport{
		TotalPurchaseValue:  total,
		ActiveSupplierCount: len(activeSuppliers),
		PurchasesByLocation: PurchasesByLocation(snap.Purchases, locationNames),
		TopSuppliers:        TopSuppliersByTerm(snap.Suppliers, 5),
		CategoryStats:       CategoryAggregate(snap.Purchases, snap.Items),
		WorstPricingIndexes: WorstPricingIndexes(snap.Competitors, snap.Items, 10),
	}
	e.put(ctx, key, report)
	return report
}

func (e *Engine) put(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = e.cache.Set(ctx, key, payload, e.cacheTTL)
}

func buildCacheKey(report string, version uint64, parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(joined))
	return fmt.Sprintf("harga:%s:v%d:%s", report, version, hex.EncodeToString(hash[:]))
}
