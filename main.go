package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"codeberg.org/miketth/kbindicator/pkg/groupstore/json"
	"codeberg.org/miketth/kbindicator/pkg/groupstore/sqlite"
	"codeberg.org/miketth/kbindicator/pkg/hyprland"
	"codeberg.org/miketth/kbindicator/pkg/icon"
	"codeberg.org/miketth/kbindicator/pkg/indicator"
	"codeberg.org/miketth/kbindicator/pkg/sni"
	"codeberg.org/miketth/kbindicator/pkg/xkb"
	"codeberg.org/miketth/kbindicator/pkg/xkblayouts"
	"github.com/adrg/xdg"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appID = "kbindicator"

func main() {
	err := run(os.Args[1:])
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, diagnostic(filepath.Base(os.Args[0]), err))
	}
	os.Exit(exitCode(err))
}

// diagnostic formats the one-line message printed before a failed exit.
func diagnostic(prog string, err error) string {
	switch {
	case errors.Is(err, xkb.ErrNoDisplay):
		return fmt.Sprintf("%s: Error getting default DISPLAY", prog)
	case errors.Is(err, xkb.ErrNoExtension):
		return fmt.Sprintf("%s: XKB extension is not present", prog)
	}
	return fmt.Sprintf("%s: error: %+v", prog, err)
}

func exitCode(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 1
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := loadRegistry(cfg.evdevXMLPath, log)

	backend, keyboardName, err := connectBackend(cfg, registry, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer bus.Close()

	tray, err := sni.Export(bus, appID, "Keyboard layout", log)
	if err != nil {
		return fmt.Errorf("export tray item: %w", err)
	}
	defer tray.Close()

	renderer, err := icon.NewRenderer(cfg.icon)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer renderer.Close()

	errChan := make(chan error, 4)
	var wg sync.WaitGroup

	store, closeStore, err := openStore(ctx, cfg, &wg, errChan, log)
	if err != nil {
		return fmt.Errorf("open group store: %w", err)
	}
	defer closeStore()

	applet := indicator.NewApplet(keyboardName, backend, tray, renderer, store, labelFunc(cfg.label, registry, log), log)

	if err := applet.Restore(ctx); err != nil {
		log.Warnw("restore group", "error", err)
	}

	log.Infow("started kbindicator", "backend", cfg.backend, "keyboard", keyboardName)

	wg.Add(2)

	go func() {
		defer wg.Done()
		err := applet.Run(ctx)
		if err != nil {
			errChan <- fmt.Errorf("applet: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		err := systemdNotifyLoop(ctx)
		if err != nil {
			errChan <- fmt.Errorf("systemd notify: %w", err)
		}
	}()

	err = <-errChan
	switch {
	case errors.Is(err, context.Canceled):
		log.Info("shutting down")
		wg.Wait()
		return nil
	case err != nil:
		return err
	}

	return nil
}

type keyboardBackend interface {
	indicator.Keyboard
	Close() error
}

func connectBackend(cfg config, registry *xkblayouts.Registry, log *zap.SugaredLogger) (keyboardBackend, string, error) {
	switch cfg.resolveBackend() {
	case backendHyprland:
		var describer hyprland.Describer
		if registry != nil {
			describer = registry
		}
		kb, err := hyprland.NewKeyboard(describer, log)
		if err != nil {
			return nil, "", fmt.Errorf("connect hyprland: %w", err)
		}
		return kb, "hyprland", nil

	default:
		conn, err := xkb.Connect(cfg.display, log)
		if err != nil {
			return nil, "", fmt.Errorf("connect X11: %w", err)
		}
		return conn, "x11:core", nil
	}
}

func loadRegistry(path string, log *zap.SugaredLogger) *xkblayouts.Registry {
	if path == "" {
		found, err := xkblayouts.Find()
		if err != nil {
			log.Debugw("no layout registry", "error", err)
			return nil
		}
		path = found
	}

	registry, err := xkblayouts.Load(path)
	if err != nil {
		log.Warnw("load layout registry", "path", path, "error", err)
		return nil
	}

	return registry
}

func labelFunc(mode string, registry *xkblayouts.Registry, log *zap.SugaredLogger) indicator.LabelFunc {
	firstTwo := indicator.FirstRunes(2)
	if mode != labelCode {
		return firstTwo
	}
	if registry == nil {
		log.Warn("layout registry unavailable, labelling icons by group name")
		return firstTwo
	}
	return func(name string) string {
		return firstTwo(registry.Label(name))
	}
}

// openStore returns no store unless -restore is set. The file extension
// picks the store: .json files use the JSON store, anything else sqlite.
func openStore(ctx context.Context, cfg config, wg *sync.WaitGroup, errChan chan<- error, log *zap.SugaredLogger) (indicator.GroupStore, func(), error) {
	if !cfg.restore {
		return nil, func() {}, nil
	}

	path := cfg.stateDB
	if filepath.Ext(path) == ".json" {
		store, err := json.NewGroupStore(path)
		if err != nil {
			return nil, nil, err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.SaveLooper(ctx)
			if err != nil {
				errChan <- fmt.Errorf("save groups: %w", err)
			}
		}()

		return store, func() {}, nil
	}

	store, err := sqlite.NewGroupStore(path, log)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func systemdNotifyLoop(ctx context.Context) error {
	// tell systemd that we're ready
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("notify systemd: %w", err)
	}
	if !supported {
		return nil
	}

	_, _ = daemon.SdNotify(false, "STATUS=Showing the keyboard layout")

	t, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return fmt.Errorf("check watchdog: %w", err)
	}
	// if watchdog is not enabled, we don't need to notify it
	if t == 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			return ctx.Err()

		case <-time.After(t / 2):
			_, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			if err != nil {
				return fmt.Errorf("notify watchdog: %w", err)
			}
		}
	}
}

func defaultStateDB() string {
	return filepath.Join(xdg.StateHome, appID, "groups.db")
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	loggerConfig := zap.NewDevelopmentConfig()

	loggerConfig.OutputPaths = []string{"stdout"}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !debug {
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.Sugar(), nil
}
