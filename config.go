package main

import (
	"flag"
	"fmt"

	"codeberg.org/miketth/kbindicator/pkg/hyprland"
	"codeberg.org/miketth/kbindicator/pkg/icon"
)

const (
	backendAuto     = "auto"
	backendX11      = "x11"
	backendHyprland = "hyprland"

	labelName = "name"
	labelCode = "code"
)

type config struct {
	debug        bool
	backend      string
	display      string
	evdevXMLPath string
	label        string
	restore      bool
	stateDB      string
	icon         icon.Options
}

func parseConfig(args []string) (config, error) {
	var (
		cfg   config
		color string
	)

	fs := flag.NewFlagSet(appID, flag.ContinueOnError)
	fs.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	fs.StringVar(&cfg.backend, "backend", backendAuto, "keyboard backend: auto, x11 or hyprland")
	fs.StringVar(&cfg.display, "display", "", "X display to connect to, defaults to $DISPLAY")
	fs.StringVar(&cfg.evdevXMLPath, "evdev-xml-path", "", "path to evdev.xml, searched in XDG data dirs if empty")
	fs.StringVar(&cfg.label, "label", labelName, "icon text: name (first letters of the group name) or code (layout code)")
	fs.BoolVar(&cfg.restore, "restore", false, "remember the active group and restore it on start")
	fs.StringVar(&cfg.stateDB, "state-db", defaultStateDB(), "where -restore keeps the last group (.json for a JSON file, sqlite otherwise)")

	cfg.icon = icon.DefaultOptions()
	fs.IntVar(&cfg.icon.Size, "icon-size", icon.DefaultSize, "icon size in pixels")
	fs.Float64Var(&cfg.icon.FontSize, "font-size", icon.DefaultFontSize, "font size in points")
	fs.StringVar(&color, "color", "DFDFDF", "text color as hex RGB")
	fs.IntVar(&cfg.icon.X, "x", icon.DefaultX, "text offset from the left edge")
	fs.IntVar(&cfg.icon.Y, "y", icon.DefaultY, "text offset from the top edge")
	fs.BoolVar(&cfg.icon.Center, "center", false, "center the text, ignoring -x and -y")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	switch cfg.backend {
	case backendAuto, backendX11, backendHyprland:
	default:
		return config{}, fmt.Errorf("unknown backend %q", cfg.backend)
	}

	switch cfg.label {
	case labelName, labelCode:
	default:
		return config{}, fmt.Errorf("unknown label mode %q", cfg.label)
	}

	c, err := icon.ParseColor(color)
	if err != nil {
		return config{}, err
	}
	cfg.icon.Color = c

	return cfg, nil
}

func (c config) resolveBackend() string {
	if c.backend != backendAuto {
		return c.backend
	}
	if hyprland.Running() {
		return backendHyprland
	}
	return backendX11
}
