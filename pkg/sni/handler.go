package sni

import (
	"codeberg.org/miketth/kbindicator/pkg/indicator"
	"github.com/godbus/dbus/v5"
)

// handler carries the org.kde.StatusNotifierItem methods. It is a separate
// type so only these methods end up exported on the bus.
type handler struct {
	item *Item
}

// Activate is sent on primary click.
func (h handler) Activate(x, y int32) *dbus.Error {
	h.item.deliver(indicator.ActionActivate)
	return nil
}

// SecondaryActivate is sent on middle click.
func (h handler) SecondaryActivate(x, y int32) *dbus.Error {
	h.item.deliver(indicator.ActionSecondaryActivate)
	return nil
}

// ContextMenu is sent on right click. There is no menu to show.
func (h handler) ContextMenu(x, y int32) *dbus.Error {
	h.item.log.Debugw("context menu requested", "x", x, "y", y)
	return nil
}

func (h handler) Scroll(delta int32, orientation string) *dbus.Error {
	if action, ok := scrollAction(delta, orientation); ok {
		h.item.deliver(action)
	}
	return nil
}

func scrollAction(delta int32, orientation string) (indicator.Action, bool) {
	if orientation != "vertical" || delta == 0 {
		return 0, false
	}
	if delta > 0 {
		return indicator.ActionScrollForward, true
	}
	return indicator.ActionScrollBack, true
}
