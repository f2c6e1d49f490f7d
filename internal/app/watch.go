package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blackwell-systems/enigma/internal/analyzer"
	"github.com/blackwell-systems/enigma/internal/config"
	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/log"
	"github.com/blackwell-systems/enigma/internal/output"
	"github.com/blackwell-systems/enigma/internal/store"
	"github.com/blackwell-systems/enigma/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool
	watchAnalysis    string
	watchKind        string
	watchParc        string
	watchDebounce    time.Duration
	watchMap         mapFlags

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Rerun an analysis whenever its input files change",
		Long: `Watches the data directory (and the --map file, if any) and reruns a
hub or epicenter analysis after input files change. Changes are debounced:
a burst of writes triggers a single rerun once the files have been quiet for
the debounce period.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a background process logging to a file
  • Stop: Stop a running daemon

Unset flags fall back to the watch section of the config file.`,
		Example: `  # Rerun hubs for 22q whenever the data changes
  enigma watch --disorder 22q

  # Epicenters from an edited map file, as a daemon
  enigma watch --analysis epicenter --map effects.csv --daemon

  # Stop the daemon
  enigma watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, watcher.DaemonChildFlag[2:], false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.enigma/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.enigma/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().StringVar(&watchAnalysis, "analysis", "", "analysis to rerun: hubs or epicenter")
	watchCmd.Flags().StringVar(&watchKind, "kind", "", "connectivity: sc or fc")
	watchCmd.Flags().StringVar(&watchParc, "parcellation", "", "parcellation of the connectivity matrices")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before a rerun (default from config: 2s)")
	watchMap.register(watchCmd)

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden(watcher.DaemonChildFlag[2:])

	RootCmd.AddCommand(watchCmd)
}

// statePath returns a file under ~/.enigma, creating the directory.
func statePath(name string) (string, error) {
	dir, err := config.StateDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// watchJob is the analysis rerun on every change.
type watchJob struct {
	analysis string
	kind     datasets.Kind
	parc     string
	src      analyzer.MapSource
}

// resolveWatchJob merges the watch flags over the config file.
func resolveWatchJob(cmd *cobra.Command) (*watchJob, error) {
	wc := cfg.Watch
	job := &watchJob{analysis: wc.Analysis, parc: wc.Parcellation}
	if watchAnalysis != "" {
		job.analysis = watchAnalysis
	}
	if job.analysis != "hubs" && job.analysis != "epicenter" {
		return nil, fmt.Errorf("invalid analysis %q (want hubs or epicenter)", job.analysis)
	}
	if watchParc != "" {
		job.parc = watchParc
	}

	kind := wc.Kind
	if watchKind != "" {
		kind = watchKind
	}
	k, err := datasets.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	job.kind = k

	job.src = analyzer.MapSource{Disorder: wc.Disorder, Measure: wc.Measure, Column: wc.Column, Path: wc.MapPath}
	if cmd.Flags().Changed("disorder") {
		job.src.Disorder = watchMap.disorder
	}
	if cmd.Flags().Changed("measure") {
		job.src.Measure = watchMap.measure
	}
	if cmd.Flags().Changed("column") {
		job.src.Column = watchMap.column
	}
	if cmd.Flags().Changed("map") {
		job.src.Path = watchMap.path
	}
	if job.src.Disorder == "" && job.src.Path == "" {
		return nil, fmt.Errorf("a disease map is required: pass --disorder or --map, or set watch.disorder in the config file")
	}
	return job, nil
}

// run executes the job once and prints a one-line summary.
func (j *watchJob) run(ctx context.Context, st *store.Store, cmd *cobra.Command) error {
	a, err := newAnalyzer(st, analyzer.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	var rep *analyzer.Report
	if j.analysis == "epicenter" {
		rep, err = a.Epicenters(ctx, analyzer.EpicenterRequest{Kind: j.kind, Parcellation: j.parc, Map: j.src, Scope: analyzer.Cortex})
	} else {
		rep, err = a.Hubs(ctx, analyzer.HubRequest{Kind: j.kind, Parcellation: j.parc, Map: j.src, Scope: analyzer.Cortex})
	}
	if err != nil {
		return err
	}

	line := fmt.Sprintf("%s %s run %s", time.Now().Format("15:04:05"), rep.Run.Kind, rep.Run.ID)
	if j.analysis == "epicenter" {
		line += fmt.Sprintf(": %d significant seeds", len(rep.Significant(cfg.Alpha)))
	} else {
		line += fmt.Sprintf(": r = %.3f, p = %.3f", rep.Run.R, rep.Run.P)
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := statePath("watch.pid")
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}
	if watchLogFile == "" {
		defaultLog, err := statePath("watch.log")
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon(cmd)
	}

	job, err := resolveWatchJob(cmd)
	if err != nil {
		return err
	}

	if watchDaemon {
		return startWatchDaemon(cmd)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	paths := []string{cfg.DataDir}
	if job.src.Path != "" {
		paths = append(paths, job.src.Path)
	}
	debounce := cfg.Watch.Debounce
	if watchDebounce > 0 {
		debounce = watchDebounce
	}

	w, err := watcher.New(watcher.Options{
		Paths:    paths,
		Debounce: debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			return job.run(ctx, st, cmd)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if watchDaemonChild {
		// Output is redirected to the log file by the parent.
		return w.RunDaemon(cmd.Context(), watchPIDFile)
	}
	return runWatchForeground(cmd, w, job, st)
}

// daemonArgs forwards every flag the user set, except the mode flags.
func daemonArgs(cmd *cobra.Command) []string {
	var out []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "daemon", "stop", watcher.DaemonChildFlag[2:]:
			return
		}
		out = append(out, "--"+f.Name+"="+f.Value.String())
	})
	return out
}

func stopWatchDaemon(cmd *cobra.Command) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")
	return nil
}

func startWatchDaemon(cmd *cobra.Command) error {
	spinner := output.NewSpinner("Starting daemon...")
	if err := watcher.StartDaemon(watchPIDFile, watchLogFile, daemonArgs(cmd)); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nWatch daemon started\n")
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintf(out, "\nTo stop: enigma watch --stop\n")
	return nil
}

func runWatchForeground(cmd *cobra.Command, w *watcher.Watcher, job *watchJob, st *store.Store) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s for changes (press Ctrl+C to stop)...\n\n", cfg.DataDir)

	// Initial run so the first result does not wait for a change.
	if err := job.run(cmd.Context(), st, cmd); err != nil {
		log.Errorf("initial run failed: %v", err)
		fmt.Fprint(cmd.ErrOrStderr(), output.RenderError(err.Error()))
	}

	if err := w.RunDaemon(cmd.Context(), ""); err != nil {
		return err
	}
	fmt.Fprintln(out, "Watcher stopped")
	return nil
}
