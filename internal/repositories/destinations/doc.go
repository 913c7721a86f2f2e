// Package destinations persists the route stops.
//
// Rows are keyed by destination id and written with replace-on-conflict.
// Times are stored as unix milliseconds; the optional detail blocks
// (weather, street views, photo) are stored as JSON text and are NULL when
// absent. All scans are ordered by departure, which is the orderable value
// the tracker searches on.
//
// Typical usage:
//
//	repo := destinations.NewSQLRepository(db, dbx.DialectFor(driver))
//	_ = repo.InsertAll(ctx, itinerary.Destinations)
//	list, _ := repo.All(ctx)
//	first, _ := repo.First(ctx)
package destinations
