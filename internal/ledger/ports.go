// Package ledger declares the ports the services depend on. Storage,
// attachment and credential adapters implement them.
package ledger

import (
	"context"
	"errors"
	"io"

	"suryasakshi/internal/core"
)

var (
	// ErrNotFound is returned when no record has the requested identifier.
	ErrNotFound = errors.New("record not found")
	// ErrMissingID is returned when an update carries no identifier.
	ErrMissingID = errors.New("record identifier required")
)

// Ports for outbound adapters.
type (
	// Repository is the typed store for one record kind.
	Repository[T core.Record] interface {
		// List returns every record, newest date first and then by
		// descending identifier.
		List(ctx context.Context) ([]T, error)
		Get(ctx context.Context, id int64) (T, error)
		// Add stores rec under a new identifier and returns the stored copy.
		Add(ctx context.Context, rec T, entry core.Activity) (T, error)
		// Update replaces the record with rec's identifier.
		Update(ctx context.Context, rec T, entry core.Activity) (T, error)
		Delete(ctx context.Context, id int64, entry core.Activity) error
	}

	// ActivityLog is the append-only audit trail.
	ActivityLog interface {
		Append(ctx context.Context, a core.Activity) error
		// Recent returns at most limit entries, newest first.
		Recent(ctx context.Context, limit int) ([]core.Activity, error)
	}

	AttachmentStore interface {
		Put(ctx context.Context, category core.Category, id int64, name string, r io.Reader) (url string, err error)
		Delete(ctx context.Context, url string) error
		Open(ctx context.Context, url string) (io.ReadCloser, error)
	}

	// CredentialVerifier checks a user/secret pair and returns the canonical
	// user name on success.
	CredentialVerifier interface {
		Verify(ctx context.Context, user, secret string) (canonical string, ok bool, err error)
	}
)
