package hyprland

import (
	"errors"
	"fmt"
	"io"
	"net"

	"codeberg.org/miketth/kbindicator/pkg/indicator"
	"go.uber.org/zap"
)

const EventActiveLayout = "activelayout"

var (
	ErrNoKeyboard = errors.New("no keyboard found")
	// ErrNoRegistry is returned by NewKeyboard without a Describer: hyprctl
	// reports the active layout only by its description.
	ErrNoRegistry    = errors.New("layout registry required to match the active keymap")
	ErrUnknownKeymap = errors.New("active keymap matches no configured layout")
)

// Describer maps layout and variant codes to group names.
type Describer interface {
	Description(layout, variant string) string
}

type deviceLister interface {
	GetDevices() ([]Device, error)
	SwitchToLayout(keyboard string, idx int) error
}

type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

// Keyboard exposes the main Hyprland keyboard as a layout group backend.
type Keyboard struct {
	ctl       deviceLister
	events    lineReader
	describer Describer

	notifications chan indicator.Notification

	log *zap.SugaredLogger
}

func NewKeyboard(describer Describer, log *zap.SugaredLogger) (*Keyboard, error) {
	if describer == nil {
		return nil, ErrNoRegistry
	}

	ctl, err := NewHyprctl()
	if err != nil {
		return nil, fmt.Errorf("connect hyprctl: %w", err)
	}

	events, err := Connect()
	if err != nil {
		return nil, fmt.Errorf("connect event socket: %w", err)
	}

	return newKeyboard(ctl, events, describer, log), nil
}

func newKeyboard(ctl deviceLister, events lineReader, describer Describer, log *zap.SugaredLogger) *Keyboard {
	k := &Keyboard{
		ctl:           ctl,
		events:        events,
		describer:     describer,
		notifications: make(chan indicator.Notification, 16),
		log:           log,
	}

	go k.processLines()

	return k
}

func (k *Keyboard) device() (Device, error) {
	devs, err := k.ctl.GetDevices()
	if err != nil {
		return Device{}, fmt.Errorf("get devices: %w", err)
	}

	dev, found := mainDevice(devs)
	if !found {
		return Device{}, ErrNoKeyboard
	}
	return dev, nil
}

func (k *Keyboard) State() (indicator.State, error) {
	dev, err := k.device()
	if err != nil {
		return indicator.State{}, err
	}

	state := indicator.State{Names: make([]string, len(dev.Layouts))}
	for i := range dev.Layouts {
		state.Names[i] = k.describe(dev.Layouts[i], dev.Variants[i])
	}
	state.Group = state.Index(dev.ActiveKeymap)
	if state.Group < 0 {
		return indicator.State{}, fmt.Errorf("%w: %q on %s", ErrUnknownKeymap, dev.ActiveKeymap, dev.Name)
	}

	return state, nil
}

func (k *Keyboard) describe(layout, variant string) string {
	if k.describer != nil {
		if name := k.describer.Description(layout, variant); name != "" {
			return name
		}
	}
	if variant != "" {
		return fmt.Sprintf("%s (%s)", layout, variant)
	}
	return layout
}

func (k *Keyboard) LockGroup(group int) error {
	dev, err := k.device()
	if err != nil {
		return err
	}
	if group < 0 || group >= len(dev.Layouts) {
		return fmt.Errorf("group %d out of range for %q", group, dev.Name)
	}

	if err := k.ctl.SwitchToLayout(dev.Name, group); err != nil {
		return fmt.Errorf("switch layout: %w", err)
	}
	return nil
}

func (k *Keyboard) Notifications() <-chan indicator.Notification {
	return k.notifications
}

func (k *Keyboard) Close() error {
	return k.events.Close()
}

func (k *Keyboard) processLines() {
	defer close(k.notifications)

	for {
		line, err := k.events.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				k.log.Errorw("read hyprland event", "error", err)
			}
			return
		}

		n, err := classify(line)
		if err != nil {
			k.log.Debugw("skipping event", "error", err)
			continue
		}
		k.notifications <- n
	}
}

func classify(line string) (indicator.Notification, error) {
	ev, err := ParseEvent(line)
	if err != nil {
		return indicator.Notification{}, err
	}

	n := indicator.Notification{Kind: indicator.NotificationOther, Raw: line}
	if ev.Type == EventActiveLayout {
		if _, _, err := ev.ActiveLayout(); err != nil {
			return indicator.Notification{}, err
		}
		n.Kind = indicator.NotificationStateChanged
	}
	return n, nil
}
