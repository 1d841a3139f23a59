package service

import (
	"context"

	"github.com/rs/zerolog"
)

// Interface assertion to ensure Base implements Service
var _ Service[string, any] = (*Base[string, any])(nil)

// Operation names the contract operation a backend failure happened in.
type Operation string

const (
	OpAll    Operation = "all"
	OpGet    Operation = "get"
	OpFind   Operation = "find"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Translator maps a backend specific failure onto the service error
// taxonomy. id is the identifier involved, nil for all/find/create.
type Translator func(op Operation, id any, err error) error

// PassThrough is the Translator used when an adapter does not supply one.
func PassThrough(_ Operation, _ any, err error) error {
	return err
}

// Option configures a Base service.
type Option[K comparable, T any] func(*Base[K, T])

// WithTranslator sets the backend error translation.
func WithTranslator[K comparable, T any](t Translator) Option[K, T] {
	return func(b *Base[K, T]) {
		if t != nil {
			b.translate = t
		}
	}
}

// WithPreprocessor replaces the field preprocessing applied before
// Create and Update.
func WithPreprocessor[K comparable, T any](fn func(Fields) Fields) Option[K, T] {
	return func(b *Base[K, T]) {
		if fn != nil {
			b.preprocess = fn
		}
	}
}

// WithLogger sets the logger used for write operations.
func WithLogger[K comparable, T any](logger zerolog.Logger) Option[K, T] {
	return func(b *Base[K, T]) {
		b.logger = logger
	}
}

// Base is the uncached Service: every call goes to the accessor exactly once.
type Base[K comparable, T any] struct {
	accessor   Accessor[K, T]
	translate  Translator
	preprocess func(Fields) Fields
	logger     zerolog.Logger
}

// NewBase binds a Service to accessor.
func NewBase[K comparable, T any](accessor Accessor[K, T], opts ...Option[K, T]) *Base[K, T] {
	b := &Base[K, T]{
		accessor:   accessor,
		translate:  PassThrough,
		preprocess: PreprocessFields,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Accessor returns the accessor the service is bound to.
func (b *Base[K, T]) Accessor() Accessor[K, T] {
	return b.accessor
}

func (b *Base[K, T]) All(ctx context.Context) ([]T, error) {
	records, err := b.accessor.ListAll(ctx)
	if err != nil {
		return nil, b.translate(OpAll, nil, err)
	}
	return records, nil
}

func (b *Base[K, T]) Get(ctx context.Context, id K) (T, bool, error) {
	var zero T
	record, err := b.accessor.FindByID(ctx, b.NormalizeID(id))
	if err != nil {
		err = b.translate(OpGet, id, err)
		if IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return record, true, nil
}

func (b *Base[K, T]) GetOrFail(ctx context.Context, id K) (T, error) {
	record, found, err := b.Get(ctx, id)
	if err != nil {
		return record, err
	}
	if !found {
		return record, NewNotFoundError(id, nil)
	}
	return record, nil
}

func (b *Base[K, T]) Find(ctx context.Context, criteria Criteria) ([]T, error) {
	records, err := b.accessor.FindByCriteria(ctx, criteria)
	if err != nil {
		return nil, b.translate(OpFind, nil, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func (b *Base[K, T]) Create(ctx context.Context, fields Fields) (T, error) {
	record, err := b.accessor.PersistNew(ctx, b.preprocess(fields))
	if err != nil {
		var zero T
		return zero, b.translate(OpCreate, nil, err)
	}
	b.logger.Debug().Interface("id", b.accessor.IdentifierOf(record)).Msg("entity created")
	return record, nil
}

func (b *Base[K, T]) Update(ctx context.Context, entity T, fields Fields) (T, error) {
	id := b.accessor.IdentifierOf(entity)
	record, err := b.accessor.PersistUpdate(ctx, entity, b.preprocess(fields))
	if err != nil {
		var zero T
		return zero, b.translate(OpUpdate, id, err)
	}
	b.logger.Debug().Interface("id", id).Msg("entity updated")
	return record, nil
}

func (b *Base[K, T]) Delete(ctx context.Context, entity T) error {
	id := b.accessor.IdentifierOf(entity)
	if err := b.accessor.Remove(ctx, entity); err != nil {
		return b.translate(OpDelete, id, err)
	}
	b.logger.Debug().Interface("id", id).Msg("entity deleted")
	return nil
}

func (b *Base[K, T]) IdentifierOf(entity T) K {
	return b.accessor.IdentifierOf(entity)
}

func (b *Base[K, T]) NormalizeID(id K) K {
	if n, ok := b.accessor.(IDNormalizer[K]); ok {
		return n.NormalizeID(id)
	}
	return id
}
