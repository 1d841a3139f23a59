// Package service defines the uniform service contract that sits between
// request handling code and a storage backend.
//
// # Overview
//
// A Service is bound to one Accessor, the backend specific object that knows
// how to list, find, persist and remove one entity type. Request handlers
// only ever see the Service contract:
//
//	svc := relational.NewService[Widget](accessor)
//	widget, err := svc.GetOrFail(ctx, 42)
//	if service.IsNotFound(err) {
//		// render a "resource missing" response
//	}
//
// # Absence vs. Failure
//
// Get, Find and All report "nothing found" as absence (a false flag or an
// empty slice). GetOrFail, Update and Delete report a missing entity as a
// *NotFoundError. Backend rejections of field values surface as a
// *ValidationError. Backend adapters translate their own failure signals into
// these types through a Translator; anything they do not recognize is
// propagated unchanged.
//
// # Derived Helpers
//
// GetAll, First, One and Paginate are written against the Service interface,
// so wrapping a service with servicecache.Cached makes them cached as well.
//
// # Concurrency
//
// Services are synchronous and carry no locks. Construct one per unit of work
// (typically one inbound request) and do not share it between goroutines.
package service
