package service

import "context"

// Fields holds the field/value pairs used to build or mutate an entity.
type Fields map[string]any

// Criteria holds the field/value pairs of an exact-match conjunction filter.
type Criteria map[string]any

// Service is the uniform facade request handling code talks to. It is
// implemented by Base and by decorators such as servicecache.Cached.
//
// A Service instance is not safe for concurrent use: at most one logical
// workflow may use a given instance at a time.
type Service[K comparable, T any] interface {
	// All returns every entity of the bound type in backend order.
	All(ctx context.Context) ([]T, error)
	// Get resolves one entity. The boolean is false when nothing matched,
	// which is not an error.
	Get(ctx context.Context, id K) (T, bool, error)
	// GetOrFail is Get that fails with *NotFoundError on absence.
	GetOrFail(ctx context.Context, id K) (T, error)
	// Find returns the entities matching every criteria pair. Empty criteria
	// match everything.
	Find(ctx context.Context, criteria Criteria) ([]T, error)
	Create(ctx context.Context, fields Fields) (T, error)
	Update(ctx context.Context, entity T, fields Fields) (T, error)
	Delete(ctx context.Context, entity T) error

	// IdentifierOf extracts the identifier of an entity.
	IdentifierOf(entity T) K
	// NormalizeID returns the canonical form of an identifier.
	NormalizeID(id K) K
}

// Accessor is the backend specific capability set a Service is built on.
// Implementations report failures with their own backend signals; the
// adapter Translator maps them onto NotFoundError and ValidationError.
type Accessor[K comparable, T any] interface {
	ListAll(ctx context.Context) ([]T, error)
	FindByID(ctx context.Context, id K) (T, error)
	FindByCriteria(ctx context.Context, criteria Criteria) ([]T, error)
	PersistNew(ctx context.Context, fields Fields) (T, error)
	PersistUpdate(ctx context.Context, entity T, fields Fields) (T, error)
	Remove(ctx context.Context, entity T) error
	IdentifierOf(entity T) K
}

// IDNormalizer is implemented by accessors whose identifiers accept more
// than one spelling.
type IDNormalizer[K comparable] interface {
	NormalizeID(id K) K
}
