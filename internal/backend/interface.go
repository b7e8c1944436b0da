package backend

import (
	"context"

	"suryasakshi/internal/amqp"
	"suryasakshi/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the record repositories and the optional AMQP client
// built for one process.
type BackendResult struct {
	Repositories services.Repositories
	// AMQP is nil when AMQP_URL is unset or the broker was unreachable.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the activity publisher, or a nil interface when AMQP is
// disabled.
func (r *BackendResult) Publisher() services.ActivityPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
