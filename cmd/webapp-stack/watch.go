package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// newWatchCmd creates the "watch" subcommand for re-checking on file changes.
func newWatchCmd(a *app) *cobra.Command {
	var (
		debounce time.Duration
		lint     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check the stack when settings or the build context change",
		Long: `Watch monitors the config file and the build context and re-declares the
stack on every change.

The watch command:
- Reloads settings from the config file and environment
- Re-digests the build context, reporting when the image would be rebuilt
- Runs the stack checks (and cfn-lint with --lint)
- Debounces rapid changes to avoid excessive runs

Examples:
    webapp-stack watch
    webapp-stack watch --lint --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, a, cmd, watchOptions{debounce: debounce, lint: lint})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().BoolVar(&lint, "lint", false, "Also run cfn-lint on each change")

	return cmd
}

type watchOptions struct {
	debounce time.Duration
	lint     bool
}

func runWatch(ctx context.Context, a *app, cmd *cobra.Command, opts watchOptions) error {
	out := cmd.OutOrStdout()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	dirs, err := watchDirs(a.configPath, a.settings.Webapp.BuildContext)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := addDirRecursive(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		fmt.Fprintf(out, "Watching: %s\n", dir)
	}

	fmt.Fprintln(out, "Running initial check...")
	lastDigest := runWatchCheck(ctx, a, cmd, opts, "")

	var debounceTimer *time.Timer
	recheck := make(chan struct{}, 1)

	fmt.Fprintln(out, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			// New directories inside the build context are watched too.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addDirRecursive(watcher, event.Name)
				}
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case recheck <- struct{}{}:
				default:
				}
			})

		case <-recheck:
			fmt.Fprintf(out, "\n[%s] Change detected, re-checking...\n", time.Now().Format("15:04:05"))
			lastDigest = runWatchCheck(ctx, a, cmd, opts, lastDigest)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watch error: %v\n", err)

		case <-ctx.Done():
			fmt.Fprintln(out, "\nStopping watch...")
			return nil
		}
	}
}

// watchDirs returns the directories holding the config file and the build
// context, deduplicated.
func watchDirs(configPath, buildContext string) ([]string, error) {
	configDir := "."
	if configPath != "" {
		configDir = filepath.Dir(configPath)
	}

	var dirs []string
	seen := make(map[string]bool)
	for _, dir := range []string{configDir, buildContext} {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(absPath); err != nil {
			continue
		}
		if !seen[absPath] {
			seen[absPath] = true
			dirs = append(dirs, absPath)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("nothing to watch: %s does not exist", buildContext)
	}
	return dirs, nil
}

// relevant reports whether event can change the declared stack.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	// Editor swap and backup files.
	if strings.HasPrefix(base, ".") && base != ".dockerignore" {
		return false
	}
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	return true
}

// addDirRecursive adds a directory and all subdirectories to the watcher.
func addDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			if filepath.Base(path) == "node_modules" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

// runWatchCheck reloads settings, declares the stack and checks it. It returns
// the build context digest seen, so the next run can report image changes.
func runWatchCheck(ctx context.Context, a *app, cmd *cobra.Command, opts watchOptions, lastDigest string) string {
	out := cmd.OutOrStdout()

	if err := a.setup(cmd); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Config error: %v\n", err)
		return lastDigest
	}
	s, cfg, err := a.stack(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return lastDigest
	}

	digest, err := a.contextDigest(cfg.BuildContext)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return lastDigest
	}
	if lastDigest != "" && digest != lastDigest {
		fmt.Fprintf(out, "Build context changed (%s), deploy will rebuild the image\n", shortDigest(digest))
	}

	result, err := runValidate(s, cfg.Layout(), opts.lint)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return digest
	}
	printWatchResult(out, result.Success, result.Resources, result.Errors, cfg.Domain.FQDN())
	return digest
}

func printWatchResult(w io.Writer, ok bool, resources int, errs []string, fqdn string) {
	if ok {
		fmt.Fprintf(w, "Stack OK: %d resources serving %s\n", resources, fqdn)
		return
	}
	fmt.Fprintln(w, "Stack has issues:")
	for _, e := range errs {
		fmt.Fprintf(w, "  ERROR: %s\n", e)
	}
}

func shortDigest(d string) string {
	if d == "" {
		return "unreadable"
	}
	if i := strings.IndexByte(d, ':'); i >= 0 && len(d) > i+13 {
		return d[:i+13]
	}
	return d
}
