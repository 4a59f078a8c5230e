package indicator

import (
	"context"
	"image"
)

type Keyboard interface {
	State() (State, error)
	LockGroup(group int) error
	Notifications() <-chan Notification
}

type Tray interface {
	SetIcon(img image.Image) error
	SetTooltip(text string) error
	Actions() <-chan Action
}

type Renderer interface {
	Render(label string) (image.Image, error)
}

// GroupStore remembers the last active group name per keyboard.
type GroupStore interface {
	LastGroup(ctx context.Context, keyboard string) (string, bool, error)
	SetLastGroup(ctx context.Context, keyboard string, name string) error
}

// LabelFunc maps a group name to the text drawn on the icon.
type LabelFunc func(name string) string

type NotificationKind int

const (
	NotificationOther NotificationKind = iota
	NotificationStateChanged
)

type Notification struct {
	Kind NotificationKind
	// Raw is a short description of the source event, used for debug logging.
	Raw string
}

type Action int

const (
	ActionActivate Action = iota
	ActionSecondaryActivate
	ActionScrollForward
	ActionScrollBack
)

func (a Action) String() string {
	switch a {
	case ActionActivate:
		return "activate"
	case ActionSecondaryActivate:
		return "secondary-activate"
	case ActionScrollForward:
		return "scroll-forward"
	case ActionScrollBack:
		return "scroll-back"
	}
	return "unknown"
}
