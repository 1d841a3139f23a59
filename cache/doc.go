// Package cache provides the storage contract and key serialization behind a
// cached service index.
//
// A CacheService is a read-through store: GetOrFetch returns the stored value
// or runs the fetch function and keeps its result. Failed fetches are never
// stored. Delete and DeleteByPrefix drop entries after writes.
//
// NewCacheService builds a store from Config. BackendMemory is a plain map
// owned by one service instance; BackendSturdyc is a bounded sturdyc client
// with a TTL. Every call returns a new store, so indexes are never shared.
//
// # Usage
//
//	store, err := cache.NewCacheService(cache.DefaultConfig())
//	serializer := cache.NewKeySerializer(cache.DefaultConfig())
//
//	key := "widget::" + serializer.SerializeKey("find", map[string]any{"color": "red"})
//	widgets, err := cache.GetOrFetch(ctx, store, key, func(ctx context.Context) ([]*Widget, error) {
//		return svc.Find(ctx, service.Criteria{"color": "red"})
//	})
//
// # Keys
//
// SerializeKey joins the method and its arguments with "::". Arguments are
// rendered so that equal criteria always give equal keys:
//
//   - scalars are prefixed with their kind ("int64:1", "bool:true"); strings are
//     tagged and quoted (`string:"red"`) so separators inside them cannot merge keys
//   - maps are rendered with sorted keys, so {"a":1,"b":2} and {"b":2,"a":1} match
//   - slices and arrays are rendered element by element
//   - structs use encoding.TextMarshaler when available, else exported fields
//   - functions render as their address, stable within one process only
//   - anything else falls back to JSON, then to its type name
//
// With a maximum key length, the argument part of an overlong key is replaced
// by an xxhash digest. The method segment is kept so that prefix invalidation
// on "find" still matches.
package cache
