package relational_test

import (
	"context"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-servicelayer/pkg/testsupport"
	"github.com/goliatone/go-servicelayer/relational"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// bunRepository implements the subset of repository.Repository the accessor
// uses on top of a real database. Other methods panic through the nil
// embedded interface.
type bunRepository struct {
	repository.Repository[*Widget]
	db    *bun.DB
	calls map[string]int
}

func newBunRepository(db *bun.DB) *bunRepository {
	return &bunRepository{db: db, calls: make(map[string]int)}
}

func (r *bunRepository) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*Widget, int, error) {
	r.calls["List"]++
	var records []*Widget
	q := r.db.NewSelect().Model(&records)
	for _, c := range criteria {
		q = c(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, 0, err
	}
	return records, len(records), nil
}

func (r *bunRepository) Create(ctx context.Context, record *Widget, criteria ...repository.InsertCriteria) (*Widget, error) {
	r.calls["Create"]++
	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	return record, err
}

func (r *bunRepository) Update(ctx context.Context, record *Widget, criteria ...repository.UpdateCriteria) (*Widget, error) {
	r.calls["Update"]++
	_, err := r.db.NewUpdate().Model(record).WherePK().Exec(ctx)
	return record, err
}

func (r *bunRepository) Delete(ctx context.Context, record *Widget) error {
	r.calls["Delete"]++
	_, err := r.db.NewDelete().Model(record).WherePK().Exec(ctx)
	return err
}

func TestRepositoryAccessor_DelegatesToRepository(t *testing.T) {
	db := testsupport.NewSQLiteDB(t, (*Widget)(nil))
	repo := newBunRepository(db)
	svc := relational.NewService[Widget](relational.NewRepositoryAccessor[Widget](repo))
	ctx := context.Background()

	w, err := svc.Create(ctx, service.Fields{"name": "A", "color": "red"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls["Create"])

	_, err = svc.Update(ctx, w, service.Fields{"color": "blue"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls["Update"])

	require.NoError(t, svc.Delete(ctx, w))
	assert.Equal(t, 1, repo.calls["Delete"])
}

func TestRepositoryAccessor_MissingRecordSkipsWrite(t *testing.T) {
	db := testsupport.NewSQLiteDB(t, (*Widget)(nil))
	repo := newBunRepository(db)
	svc := relational.NewService[Widget](relational.NewRepositoryAccessor[Widget](repo))
	ctx := context.Background()

	ghost := &Widget{ID: 42, Name: "ghost"}

	err := svc.Delete(ctx, ghost)
	assert.True(t, service.IsNotFound(err))
	assert.Zero(t, repo.calls["Delete"])

	_, err = svc.Update(ctx, ghost, service.Fields{"color": "red"})
	assert.True(t, service.IsNotFound(err))
	assert.Zero(t, repo.calls["Update"])
}
