package indicator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrBackendClosed = errors.New("keyboard backend closed")
	ErrTrayClosed    = errors.New("tray closed")
)

type Applet struct {
	keyboardName string

	keyboard Keyboard
	tray     Tray
	renderer Renderer
	store    GroupStore
	label    LabelFunc

	log *zap.SugaredLogger
}

func NewApplet(
	keyboardName string,
	keyboard Keyboard,
	tray Tray,
	renderer Renderer,
	store GroupStore,
	label LabelFunc,
	log *zap.SugaredLogger,
) *Applet {
	if label == nil {
		label = FirstRunes(2)
	}
	return &Applet{
		keyboardName: keyboardName,
		keyboard:     keyboard,
		tray:         tray,
		renderer:     renderer,
		store:        store,
		label:        label,
		log:          log,
	}
}

// Run renders the icon and then serves notifications and tray actions until
// ctx is done or one of the input channels closes.
func (a *Applet) Run(ctx context.Context) error {
	if err := a.Render(ctx); err != nil {
		return fmt.Errorf("initial render: %w", err)
	}

	notifications := a.keyboard.Notifications()
	actions := a.tray.Actions()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-notifications:
			if !ok {
				return ErrBackendClosed
			}
			a.HandleNotification(ctx, n)

		case action, ok := <-actions:
			if !ok {
				return ErrTrayClosed
			}
			if err := a.HandleAction(action); err != nil {
				a.log.Errorw("handle tray action", "action", action, "error", err)
			}
		}
	}
}

// HandleNotification re-renders on a layout state change and reports whether
// the notification was consumed. Other notifications leave the icon as is.
func (a *Applet) HandleNotification(ctx context.Context, n Notification) bool {
	if n.Kind != NotificationStateChanged {
		return false
	}

	a.log.Debugw("layout state changed", "event", n.Raw)
	if err := a.Render(ctx); err != nil {
		a.log.Errorw("render", "error", err)
	}
	return true
}

func (a *Applet) HandleAction(action Action) error {
	switch action {
	case ActionActivate, ActionScrollForward:
		return a.Cycle()
	case ActionScrollBack:
		return a.CycleBack()
	}

	// secondary activation has no binding
	return nil
}

// Cycle locks the next defined group, wrapping to group 0.
func (a *Applet) Cycle() error {
	state, err := a.keyboard.State()
	if err != nil {
		return fmt.Errorf("get state: %w", err)
	}

	return a.lock(state.Next())
}

func (a *Applet) CycleBack() error {
	state, err := a.keyboard.State()
	if err != nil {
		return fmt.Errorf("get state: %w", err)
	}

	return a.lock(state.Prev())
}

func (a *Applet) lock(group int) error {
	a.log.Debugw("locking group", "group", group)
	if err := a.keyboard.LockGroup(group); err != nil {
		return fmt.Errorf("lock group %d: %w", group, err)
	}
	return nil
}

// Render draws the active group onto the tray icon and sets the tooltip to
// the group name.
func (a *Applet) Render(ctx context.Context) error {
	state, err := a.keyboard.State()
	if err != nil {
		return fmt.Errorf("get state: %w", err)
	}

	name := state.Name()

	img, err := a.renderer.Render(a.label(name))
	if err != nil {
		return fmt.Errorf("render icon: %w", err)
	}

	if err := a.tray.SetIcon(img); err != nil {
		return fmt.Errorf("set icon: %w", err)
	}

	if err := a.tray.SetTooltip(name); err != nil {
		return fmt.Errorf("set tooltip: %w", err)
	}

	if a.store != nil && name != "" {
		if err := a.store.SetLastGroup(ctx, a.keyboardName, name); err != nil {
			a.log.Warnw("remember group", "group", name, "error", err)
		}
	}

	return nil
}

// Restore locks the group remembered by the store if it is still configured.
func (a *Applet) Restore(ctx context.Context) error {
	if a.store == nil {
		return nil
	}

	name, found, err := a.store.LastGroup(ctx, a.keyboardName)
	if err != nil {
		return fmt.Errorf("get last group: %w", err)
	}
	if !found {
		return nil
	}

	state, err := a.keyboard.State()
	if err != nil {
		return fmt.Errorf("get state: %w", err)
	}

	idx := state.Index(name)
	switch {
	case idx < 0:
		a.log.Infow("remembered group is no longer configured", "group", name)
		return nil
	case idx == state.Group:
		return nil
	}

	a.log.Infow("restoring group", "group", name, "index", idx)
	return a.lock(idx)
}
