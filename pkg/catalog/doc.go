// Package catalog manages the global module catalog and the per-product module toggles.
//
// Modules ("Product Backlog", "Quarterly Roadmap", ...) are global capability types. Every
// product gets one ProductModule row per active module when it is created; the row carries the
// enabled flag and a completion percentage.
//
// The list of active modules is read on every product creation and admin page load, so it is
// kept in an expiring LRU cache. The catalog can be seeded from a YAML file and, optionally,
// reloaded whenever that file changes:
//
//	store := catalog.NewStore(db, 5*time.Minute, metrics)
//	if err := catalog.SeedFromFile(ctx, store, "configs/modules.yaml"); err != nil {
//		return err
//	}
//	watcher, err := catalog.NewWatcher("configs/modules.yaml", store, logger)
//	go watcher.Run(ctx)
package catalog
