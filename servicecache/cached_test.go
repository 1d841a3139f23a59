package servicecache_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-servicelayer/cache"
	"github.com/goliatone/go-servicelayer/pkg/testsupport"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/goliatone/go-servicelayer/servicecache"
)

type fixture struct {
	backend *testsupport.MemoryAccessor
	cached  *servicecache.Cached[int64, *testsupport.Record]
}

func newFixture(t *testing.T, opts ...servicecache.Option) fixture {
	t.Helper()
	backend := testsupport.LoadRecords(t, testsupport.FixturePath("records.json"))
	cached, err := servicecache.New[int64, *testsupport.Record](testsupport.NewMemoryService(backend), opts...)
	if err != nil {
		t.Fatalf("failed to create cached service: %v", err)
	}
	return fixture{backend: backend, cached: cached}
}

func sturdycOption(t *testing.T) servicecache.Option {
	t.Helper()
	cfg := cache.DefaultConfig()
	cfg.Backend = cache.BackendSturdyc
	store, err := cache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("failed to create sturdyc store: %v", err)
	}
	return servicecache.WithCacheService(store)
}

// backends runs each test against the default map store and the sturdyc store.
func backends(t *testing.T) map[string][]servicecache.Option {
	return map[string][]servicecache.Option{
		"memory":  nil,
		"sturdyc": {sturdycOption(t)},
	}
}

func assertNames(t *testing.T, records []*testsupport.Record, want ...string) {
	t.Helper()
	got := testsupport.Names(records)
	if len(want) == 0 {
		want = []string{}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected names %v, got %v", want, got)
	}
}

func TestCached_AllReadsBackendOnce(t *testing.T) {
	for name, opts := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)
			ctx := context.Background()

			first, err := f.cached.All(ctx)
			if err != nil {
				t.Fatalf("All() error = %v", err)
			}
			second, err := f.cached.All(ctx)
			if err != nil {
				t.Fatalf("All() error = %v", err)
			}

			assertNames(t, first, "A", "B", "C")
			assertNames(t, second, "A", "B", "C")
			if calls := f.backend.Calls("ListAll"); calls != 1 {
				t.Errorf("expected 1 ListAll call, got %d", calls)
			}
		})
	}
}

func TestCached_AllSeedsGetEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.cached.All(ctx); err != nil {
		t.Fatalf("All() error = %v", err)
	}
	record, found, err := f.cached.Get(ctx, 2)
	if err != nil || !found {
		t.Fatalf("Get(2) = %v, %v, %v", record, found, err)
	}
	if record.Name != "B" {
		t.Errorf("expected B, got %s", record.Name)
	}
	if calls := f.backend.Calls("FindByID"); calls != 0 {
		t.Errorf("expected Get to be served from seeded entries, got %d FindByID calls", calls)
	}
}

func TestCached_GetReadsBackendOncePerID(t *testing.T) {
	for name, opts := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				record, found, err := f.cached.Get(ctx, 1)
				if err != nil || !found || record.Name != "A" {
					t.Fatalf("Get(1) = %v, %v, %v", record, found, err)
				}
			}
			if _, _, err := f.cached.Get(ctx, 3); err != nil {
				t.Fatalf("Get(3) error = %v", err)
			}

			if calls := f.backend.Calls("FindByID"); calls != 2 {
				t.Errorf("expected 2 FindByID calls, got %d", calls)
			}
		})
	}
}

func TestCached_AbsenceIsCached(t *testing.T) {
	for name, opts := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				record, found, err := f.cached.Get(ctx, 42)
				if err != nil {
					t.Fatalf("Get(42) error = %v", err)
				}
				if found || record != nil {
					t.Errorf("expected absence, got %v", record)
				}
			}
			if calls := f.backend.Calls("FindByID"); calls != 1 {
				t.Errorf("expected 1 FindByID call, got %d", calls)
			}

			_, err := f.cached.GetOrFail(ctx, 42)
			if !service.IsNotFound(err) {
				t.Errorf("expected not found error, got %v", err)
			}
			var nf *service.NotFoundError
			if errors.As(err, &nf) && nf.ID != int64(42) {
				t.Errorf("expected error for id 42, got %v", nf.ID)
			}
			if calls := f.backend.Calls("FindByID"); calls != 1 {
				t.Errorf("GetOrFail should be served from cache, got %d FindByID calls", calls)
			}
		})
	}
}

func TestCached_CreateInvalidatesCachedAbsence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, found, _ := f.cached.Get(ctx, 4); found {
		t.Fatal("expected id 4 to be absent before create")
	}
	created, err := f.cached.Create(ctx, service.Fields{"name": "D", "color": "red"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != 4 {
		t.Fatalf("expected created id 4, got %d", created.ID)
	}

	record, found, err := f.cached.Get(ctx, 4)
	if err != nil || !found || record.Name != "D" {
		t.Errorf("Get(4) after create = %v, %v, %v", record, found, err)
	}
}

func TestCached_FindKeyIgnoresCriteriaOrder(t *testing.T) {
	for name, opts := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)
			ctx := context.Background()

			first := service.Criteria{}
			first["color"] = "red"
			first["name"] = "A"
			second := service.Criteria{}
			second["name"] = "A"
			second["color"] = "red"

			a, err := f.cached.Find(ctx, first)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			b, err := f.cached.Find(ctx, second)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}

			assertNames(t, a, "A")
			assertNames(t, b, "A")
			if calls := f.backend.Calls("FindByCriteria"); calls != 1 {
				t.Errorf("expected 1 FindByCriteria call, got %d", calls)
			}

			if _, err := f.cached.Find(ctx, service.Criteria{"color": "blue"}); err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if calls := f.backend.Calls("FindByCriteria"); calls != 2 {
				t.Errorf("expected distinct criteria to miss, got %d calls", calls)
			}
		})
	}
}

func TestCached_FindEmptyResult(t *testing.T) {
	f := newFixture(t)
	records, err := f.cached.Find(context.Background(), service.Criteria{"color": "purple"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", records)
	}
}

func TestCached_WritesInvalidateCollectionAndPredicates(t *testing.T) {
	tests := []struct {
		name  string
		write func(ctx context.Context, c *servicecache.Cached[int64, *testsupport.Record]) error
		all   []string
		red   []string
	}{
		{
			name: "create",
			write: func(ctx context.Context, c *servicecache.Cached[int64, *testsupport.Record]) error {
				_, err := c.Create(ctx, service.Fields{"name": "D", "color": "red"})
				return err
			},
			all: []string{"A", "B", "C", "D"},
			red: []string{"A", "D"},
		},
		{
			name: "update",
			write: func(ctx context.Context, c *servicecache.Cached[int64, *testsupport.Record]) error {
				b, err := c.GetOrFail(ctx, 2)
				if err != nil {
					return err
				}
				_, err = c.Update(ctx, b, service.Fields{"color": "red"})
				return err
			},
			all: []string{"A", "B", "C"},
			red: []string{"A", "B"},
		},
		{
			name: "delete",
			write: func(ctx context.Context, c *servicecache.Cached[int64, *testsupport.Record]) error {
				a, err := c.GetOrFail(ctx, 1)
				if err != nil {
					return err
				}
				return c.Delete(ctx, a)
			},
			all: []string{"B", "C"},
			red: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			if _, err := f.cached.All(ctx); err != nil {
				t.Fatalf("All() error = %v", err)
			}
			if _, err := f.cached.Find(ctx, service.Criteria{"color": "red"}); err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if err := tt.write(ctx, f.cached); err != nil {
				t.Fatalf("write error = %v", err)
			}

			all, err := f.cached.All(ctx)
			if err != nil {
				t.Fatalf("All() error = %v", err)
			}
			red, err := f.cached.Find(ctx, service.Criteria{"color": "red"})
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}

			assertNames(t, all, tt.all...)
			assertNames(t, red, tt.red...)
			if calls := f.backend.Calls("ListAll"); calls != 2 {
				t.Errorf("expected 2 ListAll calls, got %d", calls)
			}
			if calls := f.backend.Calls("FindByCriteria"); calls != 2 {
				t.Errorf("expected 2 FindByCriteria calls, got %d", calls)
			}
		})
	}
}

func TestCached_WriteKeepsUnrelatedIdentifierEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.cached.GetOrFail(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrFail(1) error = %v", err)
	}
	if _, err := f.cached.GetOrFail(ctx, 3); err != nil {
		t.Fatalf("GetOrFail(3) error = %v", err)
	}
	f.backend.ResetCalls()

	if _, err := f.cached.Update(ctx, a, service.Fields{"color": "black"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := f.cached.GetOrFail(ctx, 3); err != nil {
		t.Fatalf("GetOrFail(3) error = %v", err)
	}
	if calls := f.backend.Calls("FindByID"); calls != 0 {
		t.Errorf("expected entry for 3 to survive, got %d FindByID calls", calls)
	}

	updated, err := f.cached.GetOrFail(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrFail(1) error = %v", err)
	}
	if updated.Color != "black" {
		t.Errorf("expected updated color, got %s", updated.Color)
	}
	if calls := f.backend.Calls("FindByID"); calls != 1 {
		t.Errorf("expected entry for 1 to be refetched, got %d FindByID calls", calls)
	}
}

func TestCached_FailedWriteLeavesIndexUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.cached.All(ctx); err != nil {
		t.Fatalf("All() error = %v", err)
	}

	_, err := f.cached.Create(ctx, service.Fields{"color": "red"})
	if !service.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	boom := errors.New("disk on fire")
	f.backend.FailNext("Remove", boom)
	b := &testsupport.Record{ID: 2, Name: "B", Color: "blue"}
	if err := f.cached.Delete(ctx, b); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}

	all, err := f.cached.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	assertNames(t, all, "A", "B", "C")
	if calls := f.backend.Calls("ListAll"); calls != 1 {
		t.Errorf("expected collection entry to survive failed writes, got %d ListAll calls", calls)
	}
}

func TestCached_ReadErrorsAreNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	boom := errors.New("connection reset")
	f.backend.FailNext("ListAll", boom)
	if _, err := f.cached.All(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}

	all, err := f.cached.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	assertNames(t, all, "A", "B", "C")
	if calls := f.backend.Calls("ListAll"); calls != 2 {
		t.Errorf("expected 2 ListAll calls, got %d", calls)
	}
}

func TestCached_DeleteThenReadScenario(t *testing.T) {
	for name, opts := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)
			ctx := context.Background()

			all, err := f.cached.All(ctx)
			if err != nil {
				t.Fatalf("All() error = %v", err)
			}
			assertNames(t, all, "A", "B", "C")

			if err := f.cached.Delete(ctx, all[1]); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}

			all, err = f.cached.All(ctx)
			if err != nil {
				t.Fatalf("All() error = %v", err)
			}
			assertNames(t, all, "A", "C")

			record, found, err := f.cached.Get(ctx, 2)
			if err != nil {
				t.Fatalf("Get(2) error = %v", err)
			}
			if found {
				t.Errorf("expected B to be absent, got %v", record)
			}
		})
	}
}

func TestCached_FindThenCreateScenario(t *testing.T) {
	for name, opts := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)
			ctx := context.Background()

			red, err := f.cached.Find(ctx, service.Criteria{"color": "red"})
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			assertNames(t, red, "A")

			if _, err := f.cached.Create(ctx, service.Fields{"name": "D", "color": "red"}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			red, err = f.cached.Find(ctx, service.Criteria{"color": "red"})
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			assertNames(t, red, "A", "D")
		})
	}
}

func TestCached_OutOfBandWritesNeedInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.cached.All(ctx); err != nil {
		t.Fatalf("All() error = %v", err)
	}
	f.backend.RemoveDirect(3)

	stale, err := f.cached.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	assertNames(t, stale, "A", "B", "C")

	if err := f.cached.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	fresh, err := f.cached.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	assertNames(t, fresh, "A", "B")
}

func TestCached_InstancesDoNotShareIndex(t *testing.T) {
	backend := testsupport.LoadRecords(t, testsupport.FixturePath("records.json"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		cached, err := servicecache.New[int64, *testsupport.Record](testsupport.NewMemoryService(backend))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := cached.All(ctx); err != nil {
			t.Fatalf("All() error = %v", err)
		}
	}
	if calls := backend.Calls("ListAll"); calls != 2 {
		t.Errorf("expected each instance to read once, got %d ListAll calls", calls)
	}
}

func TestNewFromConfig(t *testing.T) {
	backend := testsupport.NewMemoryAccessor()
	inner := testsupport.NewMemoryService(backend)

	if _, err := servicecache.NewFromConfig[int64, *testsupport.Record](inner, cache.Config{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg := cache.DefaultConfig()
	cfg.Backend = cache.BackendSturdyc
	cached, err := servicecache.NewFromConfig[int64, *testsupport.Record](inner, cfg)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if cached.Inner() != inner {
		t.Error("expected Inner to return the wrapped service")
	}
}

func TestCached_DistinctCriteriaDoNotShareEntries(t *testing.T) {
	tests := []struct {
		name        string
		first, then service.Criteria
		want        []string
	}{
		{
			name:  "separators inside values",
			first: service.Criteria{"color": "1,name=2", "name": "3"},
			then:  service.Criteria{"color": "1", "name": "2,name=3"},
			want:  []string{"2,name=3"},
		},
		{
			name:  "string spelling a typed scalar",
			first: service.Criteria{"name": 5},
			then:  service.Criteria{"name": "int:5"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testsupport.NewMemoryAccessor(
				testsupport.Record{Name: "3", Color: "1,name=2"},
				testsupport.Record{Name: "2,name=3", Color: "1"},
				testsupport.Record{Name: "5"},
			)
			cached, err := servicecache.New[int64, *testsupport.Record](testsupport.NewMemoryService(backend))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			ctx := context.Background()

			if _, err := cached.Find(ctx, tt.first); err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			got, err := cached.Find(ctx, tt.then)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			assertNames(t, got, tt.want...)
			if calls := backend.Calls("FindByCriteria"); calls != 2 {
				t.Errorf("expected each criteria to reach the backend, got %d calls", calls)
			}
		})
	}
}

func TestCached_HashedPredicateKeysAreInvalidated(t *testing.T) {
	serializer := cache.NewDefaultKeySerializer(cache.WithMaxKeyLength(16))
	f := newFixture(t, servicecache.WithKeySerializer(serializer))
	ctx := context.Background()

	red := service.Criteria{"color": "red"}
	for i := 0; i < 2; i++ {
		if _, err := f.cached.Find(ctx, red); err != nil {
			t.Fatalf("Find() error = %v", err)
		}
	}
	if calls := f.backend.Calls("FindByCriteria"); calls != 1 {
		t.Fatalf("expected hashed key to be served from the index, got %d calls", calls)
	}

	if _, err := f.cached.Create(ctx, service.Fields{"name": "D", "color": "red"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := f.cached.Find(ctx, red)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	assertNames(t, got, "A", "D")
	if calls := f.backend.Calls("FindByCriteria"); calls != 2 {
		t.Errorf("expected the write to drop the hashed entry, got %d calls", calls)
	}
}

func TestCached_PageItemsDoNotAliasIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := service.Paginate[int64, *testsupport.Record](ctx, f.cached, service.PageRequest[*testsupport.Record]{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	assertNames(t, page.Items, "A", "B")

	_ = append(page.Items, &testsupport.Record{Name: "X"})
	page.Items[0] = &testsupport.Record{Name: "Y"}

	all, err := f.cached.Find(ctx, service.Criteria{})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	assertNames(t, all, "A", "B", "C")
	if calls := f.backend.Calls("FindByCriteria"); calls != 1 {
		t.Errorf("expected the page and the Find to share one index entry, got %d calls", calls)
	}
}
