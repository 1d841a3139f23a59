package service

import "context"

// GetAll resolves every identifier in order. It fails with *NotFoundError on
// the first identifier that does not resolve.
func GetAll[K comparable, T any](ctx context.Context, s Service[K, T], ids ...K) ([]T, error) {
	records := make([]T, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetOrFail(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// First returns the first entity matching criteria, or ErrNoResult.
func First[K comparable, T any](ctx context.Context, s Service[K, T], criteria Criteria) (T, error) {
	var zero T
	records, err := s.Find(ctx, criteria)
	if err != nil {
		return zero, err
	}
	if len(records) == 0 {
		return zero, ErrNoResult
	}
	return records[0], nil
}

// One returns the only entity matching criteria. It fails with ErrNoResult
// or ErrMultipleResults otherwise.
func One[K comparable, T any](ctx context.Context, s Service[K, T], criteria Criteria) (T, error) {
	var zero T
	records, err := s.Find(ctx, criteria)
	if err != nil {
		return zero, err
	}
	switch len(records) {
	case 0:
		return zero, ErrNoResult
	case 1:
		return records[0], nil
	default:
		return zero, ErrMultipleResults
	}
}
