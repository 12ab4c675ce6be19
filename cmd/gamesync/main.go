// Package main is the entry point for the gamesync application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/gamesync/internal/capacity"
	"github.com/joe/gamesync/internal/config"
	"github.com/joe/gamesync/internal/logging"
	"github.com/joe/gamesync/internal/menu"
	"github.com/joe/gamesync/internal/metrics"
	"github.com/joe/gamesync/internal/syncengine"
	"github.com/joe/gamesync/internal/tui"
	"github.com/joe/gamesync/pkg/errors"
	"github.com/joe/gamesync/pkg/remote"
	"github.com/joe/gamesync/pkg/transport"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)

	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config) int {
	interactive := !cfg.Plain && term.IsTerminal(int(os.Stdout.Fd()))

	logCfg := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputPath: cfg.LogFile}
	if interactive && cfg.LogFile == "" {
		// the terminal belongs to the UI
		logCfg.Disabled = true
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	defer func() { _ = logger.Sync() }()

	ctx, log := logging.WithRun(ctx, logger)

	if cfg.SavePassword {
		if err := cfg.SaveSecrets(); err != nil {
			log.Warn("failed to save passwords", zap.Error(err))
		}
	}

	if err := cfg.ResolveSecrets(); err != nil {
		log.Warn("keyring lookup failed, continuing without stored passwords", zap.Error(err))
	}

	engine, protect, closeTarget, err := setup(cfg, log)
	if err != nil {
		report(err)
		return 1
	}

	defer func() {
		if err := closeTarget(); err != nil {
			log.Warn("failed to close device connection", zap.Error(err))
		}
	}()

	recorder := metrics.NewRecorder(clockwork.NewRealClock())

	var result *syncengine.SyncResult

	if interactive {
		result, err = tui.Run(ctx, engine, tui.Options{
			Target:   cfg.Target,
			Emitters: []syncengine.EventEmitter{recorder},
		})
	} else {
		engine.SetEventEmitter(syncengine.Multi(recorder, tui.NewPlainReporter(os.Stdout)))
		result, err = engine.Run(ctx)
	}

	if cfg.DryRun && err == nil {
		tui.PrintPlan(os.Stdout, engine.Plan(), protect)
	}

	if cfg.MetricsFile != "" {
		if werr := recorder.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Warn("failed to write metrics", zap.Error(werr))
		}
	}

	if err != nil {
		// the plain reporter and the UI already showed the failure
		if interactive {
			return 1
		}

		report(err)

		return 1
	}

	if result != nil && result.RelinkErr != nil {
		log.Warn("sync finished but relinking failed", zap.Error(result.RelinkErr))
	}

	return 0
}

// setup builds the menu tree and the target. The returned close function
// releases the device connection.
func setup(cfg *config.Config, log *zap.Logger) (*syncengine.Engine, *syncengine.ProtectFilter, func() error, error) {
	osFs := afero.NewOsFs()

	manifest, err := menu.LoadManifest(osFs, cfg.Manifest)
	if err != nil {
		return nil, nil, nil, err //nolint:wrapcheck // already names the manifest
	}

	tree, err := manifest.Build(osFs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building menu tree: %w", err)
	}

	protect, err := syncengine.NewProtectFilter(cfg.Protect...)
	if err != nil {
		return nil, nil, nil, err //nolint:wrapcheck // validation error with value
	}

	trashName := cfg.TrashName
	if trashName == config.DefaultTrashName {
		trashName = manifest.TrashName
	}

	var (
		target      syncengine.Target
		closeTarget = func() error { return nil }
	)

	if cfg.Location.IsRemote {
		device, conn, err := connect(cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}

		closeTarget = conn.Close
		target = syncengine.NewDeviceTarget(device, syncengine.DeviceOptions{
			SyncRoot:        cfg.Location.Path,
			CleanStorage:    cfg.CleanStorage,
			SeparateStorage: cfg.SeparateStorage,
			Transport: transport.Options{
				ForceArchive: cfg.ForceArchive,
				FTP:          cfg.FTPOptions(),
				Log:          log,
			},
			Log: log,
		})
	} else {
		target = syncengine.NewLocalTarget(osFs, cfg.Location.LocalPath, capacity.NewLocalProbe(),
			transport.Options{Log: log})
	}

	engine := syncengine.NewEngine(tree, target, syncengine.Options{
		TrashName:    trashName,
		Linked:       cfg.Storage == config.Linked,
		DryRun:       cfg.DryRun,
		Protect:      protect,
		DeviceConfig: cfg.DeviceConfig,
		Log:          log,
	})

	return engine, protect, closeTarget, nil
}

func connect(cfg *config.Config, log *zap.Logger) (*remote.Device, *remote.SSHConnection, error) {
	loc := cfg.Location

	port := loc.Port
	if port == 0 {
		port = remote.DefaultSSHPort
	}

	address := loc.Host + ":" + strconv.Itoa(port)

	conn, err := remote.Dial(address, remote.DialOptions{
		User:           loc.User,
		Password:       cfg.Password,
		KnownHostsFile: cfg.KnownHosts,
	})
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // already names the address
	}

	log.Info("connected", zap.String("address", address), zap.String("console", string(cfg.Console)))

	return remote.NewDevice(conn, cfg.Console, log), conn, nil
}

func report(err error) {
	enriched := errors.NewEnricher().Enrich(err, "")

	fmt.Fprintf(os.Stderr, "Error: %v\n", multierr.Errors(err)[0])

	for _, e := range multierr.Errors(err)[1:] {
		fmt.Fprintf(os.Stderr, "       %v\n", e)
	}

	if suggestions := errors.FormatSuggestions(enriched); suggestions != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", suggestions)
	}
}
