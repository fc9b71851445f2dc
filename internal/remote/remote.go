package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hargapanel/backend/internal/domain"
)

// ErrNotConfigured is returned when no remote endpoint has been set.
// Reads short-circuit with a descriptive message instead of crashing.
var ErrNotConfigured = errors.New("URL Google Apps Script belum dikonfigurasi (set GAS_URL)")

// SyncStore is the durable backend for the snapshot. Implementations:
// the Apps Script web app (sheets), Postgres, and an in-memory fake.
type SyncStore interface {
	// FetchSnapshot reads the full data blob. No retries; the caller
	// decides when to try again.
	FetchSnapshot(ctx context.Context) (*domain.Snapshot, error)
	// PushAction appends one named sync action with its payload. Success
	// carries no body; duplicate delivery is not guarded against.
	PushAction(ctx context.Context, action string, data json.RawMessage) error
}

// TransportError wraps a network failure or a non-2xx response.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError means the remote answered but the body was not the expected
// JSON blob. For the Apps Script backend this almost always means the
// deployment is not shared publicly, so the message carries that hint.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "Gagal membaca data. Pastikan Google Apps Script di-deploy dengan akses 'Anyone' (Siapa saja)."
}

func (e *ParseError) Unwrap() error { return e.Err }
