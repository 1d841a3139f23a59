// Package servicecache provides a caching decorator for service.Service.
//
// # Overview
//
// Cached wraps any service.Service[K, T] and memoizes All, Get and Find in an
// index owned by the instance. Writes go to the wrapped service first; once
// they succeed the index drops the collection entry, every predicate entry
// and the entry of the identifier that was written. Other identifier entries
// survive. Failed writes and failed reads leave the index untouched.
//
// # Basic Usage
//
//	base := relational.NewService[models.User](relational.NewBunAccessor[models.User](db))
//	users, err := servicecache.New[int64, *models.User](base)
//	if err != nil {
//		return err
//	}
//
//	all, err := users.All(ctx)           // backend
//	all, err = users.All(ctx)            // index
//	u, ok, err := users.Get(ctx, 7)      // seeded by All, no backend call
//	red, err := users.Find(ctx, service.Criteria{"color": "red"})
//
// # Index Keys
//
// Keys have the form namespace::method::args. The namespace is derived from
// the entity type (*models.User becomes models_user) and can be replaced with
// WithNamespace. Find criteria are serialized with sorted keys and typed
// values, so {a:1, b:2} and {b:2, a:1} share an entry while 1 and "1" do not.
// Long criteria are hashed with xxhash, see cache.WithMaxKeyLength.
//
// # Absence
//
// A Get that finds nothing is stored like a hit. A later Create invalidates
// the created identifier, so the new entity becomes visible immediately.
//
// # Lifetime and Concurrency
//
// A Cached instance is meant to live for one unit of work, typically one
// inbound request, and is not safe for concurrent use. Writes made through
// another instance or directly against the backend are not observed; call
// Invalidate when that happens. For longer lived instances use the sturdyc
// backend (cache.BackendSturdyc) so entries expire after cache.Config.TTL.
//
// # See Also
//
// For stores and key serialization, see the cache package.
// For container wiring, see the pkg/di package.
package servicecache
