package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"hargapanel/backend/internal/domain"
)

// Store persists the snapshot in Postgres instead of the Apps Script
// endpoint: one row per collection holding the JSON payload, plus an
// append-only log of every sync action for later inspection.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS collections (
			name       text PRIMARY KEY,
			payload    jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS sync_log (
			id         bigserial PRIMARY KEY,
			action     text NOT NULL,
			payload    jsonb,
			applied_at timestamptz NOT NULL DEFAULT now()
		);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// actionCollections maps sync action names to collection rows. Unknown
// actions land in sync_log only.
var actionCollections = map[string]string{
	domain.ActionSyncLocations:      "locations",
	domain.ActionSyncSuppliers:      "suppliers",
	domain.ActionSyncItems:          "items",
	domain.ActionSyncCompetitorList: "competitorList",
	domain.ActionSyncCompetitors:    "competitors",
	domain.ActionSyncPurchases:      "purchases",
	domain.ActionSyncSalesData:      "salesData",
}

func (s *Store) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM collections`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &domain.Snapshot{}
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, err
		}
		if err := decodeCollection(snap, name, payload); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

func decodeCollection(snap *domain.Snapshot, name string, payload []byte) error {
	switch name {
	case "locations":
		return json.Unmarshal(payload, &snap.Locations)
	case "suppliers":
		return json.Unmarshal(payload, &snap.Suppliers)
	case "items":
		return json.Unmarshal(payload, &snap.Items)
	case "purchases":
		return json.Unmarshal(payload, &snap.Purchases)
	case "competitors":
		return json.Unmarshal(payload, &snap.Competitors)
	case "competitorList":
		return json.Unmarshal(payload, &snap.CompetitorList)
	case "salesData":
		return json.Unmarshal(payload, &snap.SalesData)
	}
	// Rows written by a newer deployment are skipped, not fatal.
	return nil
}

func (s *Store) PushAction(ctx context.Context, action string, data json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if collection, ok := actionCollections[action]; ok {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO collections (name, payload, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
		`, collection, []byte(data))
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_log (action, payload) VALUES ($1, $2)
	`, action, []byte(data))
	if err != nil {
		return err
	}

	return tx.Commit()
}
