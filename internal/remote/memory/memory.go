package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"hargapanel/backend/internal/domain"
	"hargapanel/backend/internal/remote"
)

// Store is a map-backed SyncStore. It backs local/dev mode when neither
// GAS_URL nor DATABASE_URL is set and doubles as the injectable fake in
// cache tests: failures, call counts and a fetch gate are all settable.
type Store struct {
	mu         sync.Mutex
	snapshot   *domain.Snapshot
	fetchErr   error
	pushErr    error
	fetchCalls int
	pushed     []PushedAction
	fetchGate  chan struct{}
}

// PushedAction records one PushAction call for assertions.
type PushedAction struct {
	Action string
	Data   json.RawMessage
}

func New() *Store {
	return &Store{snapshot: &domain.Snapshot{}}
}

// NewSeeded returns a store with a small Indonesian demo dataset, the
// same shape a first-ever spreadsheet deployment would be seeded with.
func NewSeeded() *Store {
	return &Store{snapshot: &domain.Snapshot{
		Locations: []domain.Location{
			{Name: "Toko Jakarta"},
			{Name: "Toko Bandung"},
		},
		Suppliers: []domain.Supplier{
			{ID: "SUP001", Name: "PT Sumber Pangan", Phone: "0812-1111-2222", Address: "Jl. Industri 4, Jakarta", Top: 30},
			{ID: "SUP002", Name: "CV Berkah Jaya", Phone: "0813-3333-4444", Address: "Jl. Raya Cimahi 12, Bandung", Top: 14},
		},
		Items: []domain.Item{
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
			{
				SKU:      "ITM002",
				Name:     "Minyak Goreng 2L",
				Category: "Sembako",
				HPP:      30000,
				Prices: domain.PriceMap{
					"Toko Jakarta": {Retail: 36000, Reseller: 34000},
				},
				Suppliers: domain.SupplierIDs{"SUP001", "SUP002"},
			},
		},
	}}
}

func (s *Store) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	gate := s.fetchGate
	s.fetchCalls++
	fetchErr := s.fetchErr
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fetchErr != nil {
		return nil, fetchErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil, &remote.TransportError{Op: "fetch snapshot", Err: fmt.Errorf("no snapshot seeded")}
	}
	return s.snapshot.Clone(), nil
}

func (s *Store) PushAction(ctx context.Context, action string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pushErr != nil {
		return s.pushErr
	}

	s.pushed = append(s.pushed, PushedAction{Action: action, Data: append(json.RawMessage(nil), data...)})

	if s.snapshot == nil {
		s.snapshot = &domain.Snapshot{}
	}
	switch action {
	case domain.ActionSyncLocations:
		return json.Unmarshal(data, &s.snapshot.Locations)
	case domain.ActionSyncSuppliers:
		return json.Unmarshal(data, &s.snapshot.Suppliers)
	case domain.ActionSyncItems:
		return json.Unmarshal(data, &s.snapshot.Items)
	case domain.ActionSyncCompetitorList:
		return json.Unmarshal(data, &s.snapshot.CompetitorList)
	case domain.ActionSyncCompetitors:
		return json.Unmarshal(data, &s.snapshot.Competitors)
	case domain.ActionSyncPurchases:
		return json.Unmarshal(data, &s.snapshot.Purchases)
	case domain.ActionSyncSalesData:
		return json.Unmarshal(data, &s.snapshot.SalesData)
	}
	// Unknown actions are kept in the log only, same as the sheet script.
	return nil
}

// SetSnapshot replaces the stored blob.
func (s *Store) SetSnapshot(snap *domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap.Clone()
}

// SetFetchError makes subsequent fetches fail; nil clears it.
func (s *Store) SetFetchError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// SetPushError makes subsequent pushes fail; nil clears it.
func (s *Store) SetPushError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushErr = err
}

// GateFetches blocks every fetch until the returned channel is closed,
// letting tests pile up concurrent callers behind one in-flight fetch.
func (s *Store) GateFetches() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchGate = make(chan struct{})
	return s.fetchGate
}

// FetchCalls reports how many fetches were started.
func (s *Store) FetchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

// Pushed returns the recorded push log.
func (s *Store) Pushed() []PushedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PushedAction(nil), s.pushed...)
}
