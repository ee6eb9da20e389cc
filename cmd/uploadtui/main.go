package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/logging"
	"github.com/JonMunkholm/uploader/internal/storage"
	_ "github.com/JonMunkholm/uploader/internal/storage/backends" // Register all backends
	"github.com/JonMunkholm/uploader/internal/tui"
	"github.com/JonMunkholm/uploader/internal/uploader"
)

type flags struct {
	backend  string
	widget   string
	maxFiles int
	types    []string
	logFile  string
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:   "uploadtui [files...]",
		Short: "Upload files from the terminal",
		Long: `uploadtui tracks a set of files through upload, retry and delete
against the configured storage backend. Files named on the command line are
added on start; more can be added from inside the interface.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	root.Flags().StringVarP(&f.backend, "backend", "b", "", "storage backend (overrides STORAGE_BACKEND)")
	root.Flags().StringVarP(&f.widget, "widget", "w", "", "TOML widget config file (overrides WIDGET_CONFIG)")
	root.Flags().IntVarP(&f.maxFiles, "max-files", "n", 0, "maximum number of files (overrides WIDGET_MAX_FILES)")
	root.Flags().StringSliceVarP(&f.types, "types", "t", nil, "allowed MIME types, e.g. image/*,application/pdf")
	root.Flags().StringVar(&f.logFile, "log-file", "uploadtui.log", "file receiving logs while the interface runs")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, f flags, args []string) error {
	_ = godotenv.Load()

	if cmd.Flags().Changed("backend") {
		os.Setenv("STORAGE_BACKEND", f.backend)
	}
	if cmd.Flags().Changed("widget") {
		os.Setenv("WIDGET_CONFIG", f.widget)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-files") {
		cfg.Widget.MaxFiles = f.maxFiles
	}
	if cmd.Flags().Changed("types") {
		cfg.Widget.FileTypes = f.types
	}

	// The terminal belongs to the interface; logs go to a file.
	logOut, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logOut.Close()
	slog.SetDefault(logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	coord := uploader.New(cfg.Widget.Options(), backend, backend).
		WithLogger(slog.Default().With("component", "uploader"))

	if len(args) > 0 {
		if err := addInitial(coord, args); err != nil {
			return err
		}
	}

	_, runErr := tea.NewProgram(tui.New(coord), tea.WithAltScreen()).Run()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := coord.Close(closeCtx); err != nil {
		slog.Warn("uploads did not stop in time", "error", err)
	}
	return runErr
}

func addInitial(coord *uploader.Coordinator, paths []string) error {
	files := make([]uploader.File, 0, len(paths))
	for _, p := range paths {
		f, err := uploader.NewDiskFile(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	res, err := coord.AddFiles(files...)
	if err != nil {
		return err
	}
	if res.CapacityExceeded {
		return fmt.Errorf("%d files given: %w", len(files), uploader.ErrCapacityExceeded)
	}
	return nil
}
