package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"hargapanel/backend/internal/domain"
	"hargapanel/backend/internal/xid"
)

// Backend is the sync cache as seen from the session state: one startup
// snapshot read and a stream of named sync actions.
type Backend interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	ApplySync(ctx context.Context, action string, data json.RawMessage) error
}

var ErrCompetitorNotFound = errors.New("competitor not found")

// Store owns the in-session copy of all seven collections. Every setter
// replaces its whole collection locally first, then dispatches the sync
// action in the background; the UI never waits on the remote store.
type Store struct {
	backend Backend

	mu             sync.RWMutex
	locations      []string
	suppliers      []domain.Supplier
	items          []domain.Item
	purchases      []domain.Purchase
	competitors    []domain.CompetitorPrice
	competitorList []domain.Competitor
	salesData      []domain.SalesRecord

	pending sync.WaitGroup
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// NewSeeded starts with the built-in demo dataset. A first-ever
// deployment against an empty remote store keeps these defaults and can
// push them upstream to seed the sheet.
func NewSeeded(backend Backend) *Store {
	s := New(backend)
	s.locations = []string{"Toko Jakarta", "Toko Bandung"}
	s.suppliers = []domain.Supplier{
		{ID: "SUP001", Name: "PT Sumber Pangan", Phone: "0812-1111-2222", Address: "Jl. Industri 4, Jakarta", Top: 30},
	}
	s.items = []domain.Item{
		{
			SKU:      "ITM001",
			Name:     "Beras Premium 5kg",
			Category: "Sembako",
			HPP:      52000,
			Prices: domain.PriceMap{
				"Toko Jakarta": {Retail: 60000, Reseller: 57000},
				"Toko Bandung": {Retail: 59000, Reseller: 56000},
			},
			Suppliers: domain.SupplierIDs{"SUP001"},
		},
	}
	return s
}

// Load pulls the remote snapshot once at startup. Per collection,
// non-empty remote data replaces the local default; an absent or empty
// collection keeps whatever is already here. That asymmetry is the seed
// protection: an empty remote store never erases local defaults.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.backend.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(snap.Locations) > 0 {
		names := make([]string, 0, len(snap.Locations))
		for _, loc := range snap.Locations {
			names = append(names, loc.Name)
		}
		s.locations = names
	}
	if len(snap.Suppliers) > 0 {
		s.suppliers = snap.Suppliers
	}
	if len(snap.Items) > 0 {
		s.items = snap.Items
	}
	if len(snap.Purchases) > 0 {
		s.purchases = snap.Purchases
	}
	if len(snap.Competitors) > 0 {
		s.competitors = snap.Competitors
	}
	if len(snap.CompetitorList) > 0 {
		s.competitorList = snap.CompetitorList
	}
	if len(snap.SalesData) > 0 {
		s.salesData = snap.SalesData
	}
	return nil
}

func (s *Store) SetLocations(names []string) {
	s.mu.Lock()
	s.locations = append([]string(nil), names...)
	s.mu.Unlock()

	rows := make([]domain.Location, 0, len(names))
	for _, name := range names {
		rows = append(rows, domain.Location{Name: name})
	}
	s.dispatch(domain.ActionSyncLocations, rows)
}

func (s *Store) SetSuppliers(suppliers []domain.Supplier) {
	s.mu.Lock()
	s.suppliers = append([]domain.Supplier(nil), suppliers...)
	s.mu.Unlock()
	s.dispatch(domain.ActionSyncSuppliers, suppliers)
}

func (s *Store) SetItems(items []domain.Item) {
	s.mu.Lock()
	s.items = cloneItems(items)
	s.mu.Unlock()
	s.dispatch(domain.ActionSyncItems, items)
}

func (s *Store) SetPurchases(purchases []domain.Purchase) {
	s.mu.Lock()
	s.purchases = append([]domain.Purchase(nil), purchases...)
	s.mu.Unlock()
	s.dispatch(domain.ActionSyncPurchases, purchases)
}

func (s *Store) SetCompetitors(prices []domain.CompetitorPrice) {
	s.mu.Lock()
	s.competitors = append([]domain.CompetitorPrice(nil), prices...)
	s.mu.Unlock()
	s.dispatch(domain.ActionSyncCompetitors, prices)
}

func (s *Store) SetCompetitorList(competitors []domain.Competitor) {
	s.mu.Lock()
	s.competitorList = append([]domain.Competitor(nil), competitors...)
	s.mu.Unlock()
	s.dispatch(domain.ActionSyncCompetitorList, competitors)
}

func (s *Store) SetSalesData(records []domain.SalesRecord) {
	s.mu.Lock()
	s.salesData = append([]domain.SalesRecord(nil), records...)
	s.mu.Unlock()
	s.dispatch(domain.ActionSyncSalesData, records)
}

// dispatch pushes the action in the background. Failures are logged, not
// surfaced: the local state already changed and stays authoritative for
// the session.
func (s *Store) dispatch(action string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[appstate] encode %s: %v", action, err)
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.backend.ApplySync(ctx, action, raw); err != nil {
			log.Printf("[appstate] sync %s: %v", action, err)
		}
	}()
}

// Flush waits for in-flight sync dispatches; callers use it on shutdown
// and in tests.
func (s *Store) Flush() {
	s.pending.Wait()
}

func (s *Store) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.locations...)
}

func (s *Store) Suppliers() []domain.Supplier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Supplier(nil), s.suppliers...)
}

func (s *Store) Items() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

func (s *Store) Purchases() []domain.Purchase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Purchase(nil), s.purchases...)
}

func (s *Store) Competitors() []domain.CompetitorPrice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CompetitorPrice(nil), s.competitors...)
}

func (s *Store) CompetitorList() []domain.Competitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Competitor(nil), s.competitorList...)
}

func (s *Store) SalesData() []domain.SalesRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SalesRecord(nil), s.salesData...)
}

// BuildPurchase assembles a purchase entry with its derived fields: the
// item name is copied as of now (later renames do not touch history) and
// the unit price is derived from value and qty. Callers append the
// result and SetPurchases.
func (s *Store) BuildPurchase(date string, location string, sku string, qty float64, value float64, supplierID string) domain.Purchase {
	s.mu.RLock()
	itemName := sku
	for _, item := range s.items {
		if item.SKU == sku {
			itemName = item.Name
			break
		}
	}
	s.mu.RUnlock()

	return domain.Purchase{
		ID:          xid.New("PUR"),
		Date:        date,
		Location:    location,
		SKU:         sku,
		ItemName:    itemName,
		Qty:         domain.FlexFloat(qty),
		Value:       domain.FlexFloat(value),
		PricePerQty: domain.FlexFloat(domain.PricePerQty(value, qty)),
		SupplierID:  supplierID,
	}
}

// BuildCompetitorPrice captures a competitor price point. Own price, hpp
// and the pricing index are resolved from the item's current data and
// stored on the record; they are deliberately never refreshed when the
// item changes later. An item with no price entry for the location
// resolves to own price 0 and index 0. existingID keeps the id stable on
// edits; empty means a new record.
func (s *Store) BuildCompetitorPrice(competitorID string, nearLocation string, sku string, grade string, competitorPrice float64, existingID string) (domain.CompetitorPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var competitor *domain.Competitor
	for i := range s.competitorList {
		if s.competitorList[i].ID == competitorID {
			competitor = &s.competitorList[i]
			break
		}
	}
	if competitor == nil {
		return domain.CompetitorPrice{}, fmt.Errorf("%w: %s", ErrCompetitorNotFound, competitorID)
	}

	ownPrice := 0.0
	hpp := 0.0
	for _, item := range s.items {
		if item.SKU == sku {
			ownPrice = item.PriceAt(nearLocation, grade)
			hpp = float64(item.HPP)
			break
		}
	}

	id := existingID
	if id == "" {
		id = xid.New("COMP")
	}

	return domain.CompetitorPrice{
		ID:              id,
		CompetitorID:    competitorID,
		CompetitorName:  competitor.Name,
		NearLocation:    nearLocation,
		ProductSKU:      sku,
		Grade:           grade,
		CompetitorPrice: domain.FlexFloat(competitorPrice),
		OwnPrice:        domain.FlexFloat(ownPrice),
		HPP:             domain.FlexFloat(hpp),
		PricingIndex:    domain.FlexFloat(domain.ComputePricingIndex(competitorPrice, ownPrice)),
	}, nil
}

func cloneItems(items []domain.Item) []domain.Item {
	snap := domain.Snapshot{Items: items}
	return snap.Clone().Items
}
