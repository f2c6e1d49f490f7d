// Package watcher reruns an analysis when its input files change.
//
// The Watcher subscribes to filesystem events (fsnotify) on the data
// directory and any explicitly named map files. Events on matching files
// (by default *.csv and *.gii) are collected until the inputs have been
// quiet for the debounce period, then the change hook runs once with every
// changed path.
//
// Key features:
//   - Recursive directory watching, including directories created later
//   - Debounced reruns (one hook call per burst of writes)
//   - Daemon mode support with PID file management
//   - Graceful shutdown with SIGTERM/SIGINT handling
//
// Example usage:
//
//	w, err := watcher.New(watcher.Options{
//		Paths:    []string{dataDir},
//		Debounce: 2 * time.Second,
//		OnChange: func(ctx context.Context, changed []string) error {
//			_, err := a.Hubs(ctx, req)
//			return err
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := w.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
package watcher
