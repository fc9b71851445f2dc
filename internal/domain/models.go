package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sync action names recognized by the cache and forwarded to the remote
// store. Each one replaces a single snapshot collection wholesale.
const (
	ActionSyncLocations      = "syncLocations"
	ActionSyncSuppliers      = "syncSuppliers"
	ActionSyncItems          = "syncItems"
	ActionSyncCompetitorList = "syncCompetitorList"
	ActionSyncCompetitors    = "syncCompetitors"
	ActionSyncPurchases      = "syncPurchases"
	ActionSyncSalesData      = "syncSalesData"
)

const (
	GradeRetail   = "retail"
	GradeReseller = "reseller"
)

// FlexFloat decodes a JSON number that the spreadsheet backend may hand
// back as either a number or a quoted string ("12000"). Empty strings and
// null decode to zero. It marshals as a plain number.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("numeric field %q: %w", s, err)
		}
		*f = FlexFloat(parsed)
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

// FlexInt is FlexFloat for integer fields (supplier payment terms).
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	var f FlexFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = FlexInt(int(f))
	return nil
}

func (i FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(i))
}

// Location rows arrive from the sheet as {"Name": "..."}. The capitalized
// key matches the spreadsheet column header.
type Location struct {
	Name string `json:"Name"`
}

type Supplier struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Top     FlexInt `json:"top"` // term of payment in days
}

type ItemPrice struct {
	Retail   FlexFloat `json:"retail"`
	Reseller FlexFloat `json:"reseller"`
}

// PriceMap maps a location name to its price tier. The sheet stores it as
// a JSON-encoded string inside the cell, so decoding accepts both the
// structured object and the double-encoded form.
type PriceMap map[string]ItemPrice

func (p *PriceMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = nil
		return nil
	}
	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return err
		}
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			*p = PriceMap{}
			return nil
		}
		trimmed = []byte(encoded)
	}
	var m map[string]ItemPrice
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return fmt.Errorf("prices map: %w", err)
	}
	*p = m
	return nil
}

// SupplierIDs is the item-to-supplier link list, also double-encoded by
// the sheet.
type SupplierIDs []string

func (s *SupplierIDs) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}
	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return err
		}
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			*s = SupplierIDs{}
			return nil
		}
		trimmed = []byte(encoded)
	}
	var ids []string
	if err := json.Unmarshal(trimmed, &ids); err != nil {
		return fmt.Errorf("suppliers list: %w", err)
	}
	*s = ids
	return nil
}

type Item struct {
	SKU       string      `json:"sku"`
	Name      string      `json:"name"`
	Category  string      `json:"category"`
	HPP       FlexFloat   `json:"hpp"` // cost of goods
	Prices    PriceMap    `json:"prices"`
	Suppliers SupplierIDs `json:"suppliers"`
}

// PriceAt returns the item's own price for a location and grade. A
// missing price entry reads as zero; consumers rely on that instead of a
// lookup error.
func (i Item) PriceAt(location string, grade string) float64 {
	entry, ok := i.Prices[location]
	if !ok {
		return 0
	}
	if grade == GradeReseller {
		return float64(entry.Reseller)
	}
	return float64(entry.Retail)
}

type Purchase struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Location    string    `json:"location"`
	SKU         string    `json:"sku"`
	ItemName    string    `json:"itemName"` // item name as of purchase entry, never re-synced
	Qty         FlexFloat `json:"qty"`
	Value       FlexFloat `json:"value"`
	PricePerQty FlexFloat `json:"pricePerQty"`
	SupplierID  string    `json:"supplierId"`
}

type Competitor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NearLocation string `json:"nearLocation"`
}

// CompetitorPrice is one observed competitor price point. OwnPrice, HPP
// and PricingIndex are captured from the item at create/edit time and
// kept as-is when the item later changes.
type CompetitorPrice struct {
	ID              string    `json:"id"`
	CompetitorID    string    `json:"competitorId"`
	CompetitorName  string    `json:"competitorName"`
	NearLocation    string    `json:"nearLocation"`
	ProductSKU      string    `json:"productSku"`
	Grade           string    `json:"grade"`
	CompetitorPrice FlexFloat `json:"competitorPrice"`
	OwnPrice        FlexFloat `json:"ownPrice"`
	HPP             FlexFloat `json:"hpp"`
	PricingIndex    FlexFloat `json:"pricingIndex"`
}

type SalesRecord struct {
	Date     string    `json:"date"`
	Location string    `json:"location"`
	SKU      string    `json:"sku"`
	Qty      FlexFloat `json:"qty"`
}

// Snapshot is the full data blob exchanged with the remote store. Field
// names match the top-level keys of the spreadsheet export.
type Snapshot struct {
	Locations      []Location        `json:"locations"`
	Suppliers      []Supplier        `json:"suppliers"`
	Items          []Item            `json:"items"`
	Purchases      []Purchase        `json:"purchases"`
	Competitors    []CompetitorPrice `json:"competitors"`
	CompetitorList []Competitor      `json:"competitorList"`
	SalesData      []SalesRecord     `json:"salesData"`
}

// Clone returns a deep copy so callers can hold a snapshot across
// concurrent cache mutations.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Locations:      append([]Location(nil), s.Locations...),
		Suppliers:      append([]Supplier(nil), s.Suppliers...),
		Items:          make([]Item, len(s.Items)),
		Purchases:      append([]Purchase(nil), s.Purchases...),
		Competitors:    append([]CompetitorPrice(nil), s.Competitors...),
		CompetitorList: append([]Competitor(nil), s.CompetitorList...),
		SalesData:      append([]SalesRecord(nil), s.SalesData...),
	}
	for idx, item := range s.Items {
		out.Items[idx] = item.clone()
	}
	return out
}

func (i Item) clone() Item {
	copied := i
	if i.Prices != nil {
		copied.Prices = make(PriceMap, len(i.Prices))
		for loc, price := range i.Prices {
			copied.Prices[loc] = price
		}
	}
	copied.Suppliers = append(SupplierIDs(nil), i.Suppliers...)
	return copied
}

// ItemBySKU builds a lookup index over the items collection.
func ItemBySKU(items []Item) map[string]Item {
	index := make(map[string]Item, len(items))
	for _, item := range items {
		index[item.SKU] = item
	}
	return index
}

// PricePerQty derives the unit price of a purchase. Zero quantity yields
// zero rather than dividing.
func PricePerQty(value float64, qty float64) float64 {
	if qty <= 0 {
		return 0
	}
	return value / qty
}

// ComputePricingIndex is competitor price over own price. A zero own
// price (item unpriced at that location) yields index zero.
func ComputePricingIndex(competitorPrice float64, ownPrice float64) float64 {
	if ownPrice <= 0 {
		return 0
	}
	return competitorPrice / ownPrice
}

// Round2 keeps two decimals for presentation values such as the pricing
// index percentage.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
