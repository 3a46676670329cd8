// Package manifest records rendering runs in SQLite.
//
// Each `tbattrs plan` invocation becomes a Run (UUID, scenario name,
// environment, seed, start and finish times) with one Entity row per planned
// asset or device, holding its resolved attributes as JSON and the
// resolution error if there was one. Failed entities are stored too, so a
// run's manifest is a complete account of what was attempted.
//
// Usage:
//
//	repo := manifest.NewSQLiteRepository(db.DB)
//	run := &manifest.Run{Environment: "prod", Seed: 42}
//	if err := manifest.Record(ctx, repo, run, plan); err != nil {
//	    return err
//	}
package manifest
