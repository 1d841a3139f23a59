package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-servicelayer/service"
)

// Backend signals raised by MemoryAccessor. Translate maps them onto the
// service error taxonomy the same way real adapters do.
var (
	ErrNoRecord      = errors.New("memory: no record")
	ErrInvalidRecord = errors.New("memory: invalid record")
)

// Record is the entity stored by MemoryAccessor.
type Record struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

var _ service.Accessor[int64, *Record] = (*MemoryAccessor)(nil)

// MemoryAccessor is an ordered in-memory Accessor that counts every call,
// so tests can assert how often a backend was reached.
type MemoryAccessor struct {
	mu      sync.Mutex
	records []*Record
	nextID  int64
	calls   map[string]int
	fail    map[string]error
}

// NewMemoryAccessor seeds the accessor. Records without an ID get one.
func NewMemoryAccessor(records ...Record) *MemoryAccessor {
	m := &MemoryAccessor{
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
	for _, r := range records {
		r := r
		if r.ID == 0 {
			m.nextID++
			r.ID = m.nextID
		} else if r.ID > m.nextID {
			m.nextID = r.ID
		}
		m.records = append(m.records, &r)
	}
	return m
}

// FailNext makes the next call to method return err.
func (m *MemoryAccessor) FailNext(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[method] = err
}

// Calls returns how many times method was invoked.
func (m *MemoryAccessor) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across every method.
func (m *MemoryAccessor) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// ResetCalls clears the call counters.
func (m *MemoryAccessor) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

// RemoveDirect deletes a record behind the service's back, simulating a write
// performed by another unit of work.
func (m *MemoryAccessor) RemoveDirect(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(id); i >= 0 {
		m.records = append(m.records[:i], m.records[i+1:]...)
	}
}

func (m *MemoryAccessor) enter(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	if err, ok := m.fail[method]; ok {
		delete(m.fail, method)
		return err
	}
	return nil
}

func (m *MemoryAccessor) indexOf(id int64) int {
	for i, r := range m.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryAccessor) ListAll(ctx context.Context) ([]*Record, error) {
	if err := m.enter("ListAll"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Record(nil), m.records...), nil
}

func (m *MemoryAccessor) FindByID(ctx context.Context, id int64) (*Record, error) {
	if err := m.enter("FindByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(id); i >= 0 {
		return m.records[i], nil
	}
	return nil, ErrNoRecord
}

func (m *MemoryAccessor) FindByCriteria(ctx context.Context, criteria service.Criteria) ([]*Record, error) {
	if err := m.enter("FindByCriteria"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Record
	for _, r := range m.records {
		ok, err := matches(r, criteria)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryAccessor) PersistNew(ctx context.Context, fields service.Fields) (*Record, error) {
	if err := m.enter("PersistNew"); err != nil {
		return nil, err
	}
	r := &Record{}
	if err := apply(r, fields); err != nil {
		return nil, err
	}
	if r.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.records = append(m.records, r)
	return r, nil
}

func (m *MemoryAccessor) PersistUpdate(ctx context.Context, entity *Record, fields service.Fields) (*Record, error) {
	if err := m.enter("PersistUpdate"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(entity.ID)
	if i < 0 {
		return nil, ErrNoRecord
	}
	updated := *m.records[i]
	if err := apply(&updated, fields); err != nil {
		return nil, err
	}
	if updated.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	*m.records[i] = updated
	*entity = updated
	return m.records[i], nil
}

func (m *MemoryAccessor) Remove(ctx context.Context, entity *Record) error {
	if err := m.enter("Remove"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(entity.ID)
	if i < 0 {
		return ErrNoRecord
	}
	m.records = append(m.records[:i], m.records[i+1:]...)
	return nil
}

func (m *MemoryAccessor) IdentifierOf(entity *Record) int64 {
	if entity == nil {
		return 0
	}
	return entity.ID
}

// Translate is the Translator pairing MemoryAccessor with service.Base.
func Translate(op service.Operation, id any, err error) error {
	switch {
	case errors.Is(err, ErrNoRecord):
		return service.NewNotFoundError(id, err)
	case errors.Is(err, ErrInvalidRecord):
		return service.NewValidationError(nil, err)
	}
	return err
}

// NewMemoryService binds a Base service to accessor with Translate.
func NewMemoryService(accessor *MemoryAccessor) *service.Base[int64, *Record] {
	return service.NewBase[int64, *Record](accessor,
		service.WithTranslator[int64, *Record](Translate),
	)
}

// Names returns the record names in order, handy for comparisons.
func Names(records []*Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names
}

func field(r *Record, name string) (string, bool) {
	switch strings.ToLower(name) {
	case "name":
		return r.Name, true
	case "color":
		return r.Color, true
	}
	return "", false
}

func matches(r *Record, criteria service.Criteria) (bool, error) {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, ok := field(r, k)
		if !ok {
			return false, fmt.Errorf("memory: unknown field %q", k)
		}
		if fmt.Sprint(criteria[k]) != v {
			return false, nil
		}
	}
	return true, nil
}

func apply(r *Record, fields service.Fields) error {
	for k, v := range fields {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: field %q must be a string", ErrInvalidRecord, k)
		}
		switch strings.ToLower(k) {
		case "name":
			r.Name = s
		case "color":
			r.Color = s
		default:
			return fmt.Errorf("%w: unknown field %q", ErrInvalidRecord, k)
		}
	}
	return nil
}
