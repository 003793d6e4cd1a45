// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/recyclerie/bascule/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Category operations (read model; the pipeline never creates categories)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)

	// Resolution cache operations
	GetMapping(ctx context.Context, sourceName string) (*model.CategoryMapping, error)
	SaveMapping(ctx context.Context, mapping *model.CategoryMapping) error
	GetAllMappings(ctx context.Context) ([]model.CategoryMapping, error)

	// Reception record operations
	FindPostByActorAndDate(ctx context.Context, actor string, date time.Time) (*model.Post, error)
	CreatePost(ctx context.Context, post *model.Post) error
	CreateTicket(ctx context.Context, ticket *model.Ticket) error
	CreateLine(ctx context.Context, line *model.Line) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// Suggestion is one fallback-tier proposal for an unresolved name.
// An empty TargetName means the provider had nothing to offer.
type Suggestion struct {
	SourceName string
	TargetName string
	Confidence float64
}

// Suggester is the external capability that proposes categories for
// names the cache and fuzzy tiers could not resolve. Implementations
// issue one blocking call per batch.
type Suggester interface {
	Suggest(ctx context.Context, batch []string, knownCategories []string) ([]Suggestion, error)
	Provider() string
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
