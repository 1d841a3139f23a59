package relational

import (
	"context"
	"database/sql"
	"sort"

	"github.com/goliatone/go-servicelayer/service"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// AccessorOption configures the relational accessors.
type AccessorOption func(*accessorOptions)

type accessorOptions struct {
	idColumn string
	logger   zerolog.Logger
}

// WithIDColumn sets the primary key column. Defaults to DefaultIDColumn.
func WithIDColumn(column string) AccessorOption {
	return func(o *accessorOptions) {
		if column != "" {
			o.idColumn = column
		}
	}
}

// WithLogger sets the logger used to trace queries.
func WithLogger(logger zerolog.Logger) AccessorOption {
	return func(o *accessorOptions) {
		o.logger = logger
	}
}

func newAccessorOptions(opts []AccessorOption) accessorOptions {
	o := accessorOptions{
		idColumn: DefaultIDColumn,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BunAccessor reads and writes bun models of type M directly through a
// bun.IDB, which may be a *bun.DB or a bun.Tx.
type BunAccessor[M any] struct {
	db       bun.IDB
	idColumn string
	logger   zerolog.Logger
}

// NewBunAccessor binds an accessor for model M to db.
func NewBunAccessor[M any](db bun.IDB, opts ...AccessorOption) *BunAccessor[M] {
	o := newAccessorOptions(opts)
	return &BunAccessor[M]{
		db:       db,
		idColumn: o.idColumn,
		logger:   o.logger,
	}
}

// ListAll returns every row ordered by primary key.
func (a *BunAccessor[M]) ListAll(ctx context.Context) ([]*M, error) {
	rows := []*M{}
	err := a.db.NewSelect().
		Model(&rows).
		OrderExpr("? ASC", bun.Ident(a.idColumn)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns sql.ErrNoRows when no row has id.
func (a *BunAccessor[M]) FindByID(ctx context.Context, id int64) (*M, error) {
	row := new(M)
	err := a.db.NewSelect().
		Model(row).
		Where("? = ?", bun.Ident(a.idColumn), id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// FindByCriteria matches every criteria column for equality.
func (a *BunAccessor[M]) FindByCriteria(ctx context.Context, criteria service.Criteria) ([]*M, error) {
	rows := []*M{}
	q := a.db.NewSelect().Model(&rows)
	for _, column := range sortedKeys(criteria) {
		q = q.Where("? = ?", bun.Ident(column), criteria[column])
	}
	err := q.OrderExpr("? ASC", bun.Ident(a.idColumn)).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a *BunAccessor[M]) PersistNew(ctx context.Context, fields service.Fields) (*M, error) {
	row := new(M)
	if err := prepare(fields, row); err != nil {
		return nil, err
	}
	if _, err := a.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, err
	}
	a.logger.Debug().Interface("id", a.IdentifierOf(row)).Msg("row inserted")
	return row, nil
}

// PersistUpdate applies fields to a copy of entity and writes it back. The
// caller's entity only changes once the row was updated.
func (a *BunAccessor[M]) PersistUpdate(ctx context.Context, entity *M, fields service.Fields) (*M, error) {
	updated := *entity
	if err := prepare(fields, &updated); err != nil {
		return nil, err
	}
	res, err := a.db.NewUpdate().Model(&updated).WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	*entity = updated
	return entity, nil
}

func (a *BunAccessor[M]) Remove(ctx context.Context, entity *M) error {
	res, err := a.db.NewDelete().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// IdentifierOf returns the model primary key, or 0 when it cannot be read.
func (a *BunAccessor[M]) IdentifierOf(entity *M) int64 {
	id, err := extractID(entity)
	if err != nil {
		a.logger.Warn().Err(err).Msg("identifier unavailable")
		return 0
	}
	return id
}

// requireAffected turns a write that touched no row into sql.ErrNoRows.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func sortedKeys(criteria service.Criteria) []string {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
