package relational

import (
	"context"
	"database/sql"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// RepositoryAccessor adapts a go-repository-bun repository of *M. Lookups
// are expressed as select criteria so absence always surfaces as
// sql.ErrNoRows, whatever the repository reports for a missing record.
type RepositoryAccessor[M any] struct {
	repo     repository.Repository[*M]
	idColumn string
	logger   zerolog.Logger
}

// NewRepositoryAccessor binds an accessor to repo.
func NewRepositoryAccessor[M any](repo repository.Repository[*M], opts ...AccessorOption) *RepositoryAccessor[M] {
	o := newAccessorOptions(opts)
	return &RepositoryAccessor[M]{
		repo:     repo,
		idColumn: o.idColumn,
		logger:   o.logger,
	}
}

func (a *RepositoryAccessor[M]) ListAll(ctx context.Context) ([]*M, error) {
	records, _, err := a.repo.List(ctx, a.orderByID())
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *RepositoryAccessor[M]) FindByID(ctx context.Context, id int64) (*M, error) {
	records, _, err := a.repo.List(ctx, whereEquals(a.idColumn, id))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sql.ErrNoRows
	}
	return records[0], nil
}

func (a *RepositoryAccessor[M]) FindByCriteria(ctx context.Context, criteria service.Criteria) ([]*M, error) {
	selectors := make([]repository.SelectCriteria, 0, len(criteria)+1)
	for _, column := range sortedKeys(criteria) {
		selectors = append(selectors, whereEquals(column, criteria[column]))
	}
	selectors = append(selectors, a.orderByID())

	records, _, err := a.repo.List(ctx, selectors...)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*M{}
	}
	return records, nil
}

func (a *RepositoryAccessor[M]) PersistNew(ctx context.Context, fields service.Fields) (*M, error) {
	record := new(M)
	if err := prepare(fields, record); err != nil {
		return nil, err
	}
	created, err := a.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Interface("id", a.IdentifierOf(created)).Msg("record created")
	return created, nil
}

func (a *RepositoryAccessor[M]) PersistUpdate(ctx context.Context, entity *M, fields service.Fields) (*M, error) {
	if _, err := a.FindByID(ctx, a.IdentifierOf(entity)); err != nil {
		return nil, err
	}
	updated := *entity
	if err := prepare(fields, &updated); err != nil {
		return nil, err
	}
	record, err := a.repo.Update(ctx, &updated)
	if err != nil {
		return nil, err
	}
	*entity = *record
	return entity, nil
}

func (a *RepositoryAccessor[M]) Remove(ctx context.Context, entity *M) error {
	if _, err := a.FindByID(ctx, a.IdentifierOf(entity)); err != nil {
		return err
	}
	return a.repo.Delete(ctx, entity)
}

func (a *RepositoryAccessor[M]) IdentifierOf(entity *M) int64 {
	id, err := extractID(entity)
	if err != nil {
		a.logger.Warn().Err(err).Msg("identifier unavailable")
		return 0
	}
	return id
}

func (a *RepositoryAccessor[M]) orderByID() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("? ASC", bun.Ident(a.idColumn))
	}
}

func whereEquals(column string, value any) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(column), value)
	}
}
