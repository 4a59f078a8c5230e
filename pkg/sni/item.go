// Package sni exports a tray icon as a StatusNotifierItem on the D-Bus
// session bus.
package sni

import (
	"fmt"
	"image"
	"os"
	"sync"

	"codeberg.org/miketth/kbindicator/pkg/indicator"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"go.uber.org/zap"
)

const (
	ItemInterface = "org.kde.StatusNotifierItem"
	ItemPath      = dbus.ObjectPath("/StatusNotifierItem")

	WatcherInterface = "org.kde.StatusNotifierWatcher"
	WatcherPath      = dbus.ObjectPath("/StatusNotifierWatcher")

	// noMenu is the conventional Menu value of items without a dbusmenu.
	noMenu = dbus.ObjectPath("/NO_DBUSMENU")
)

type Item struct {
	conn    *dbus.Conn
	props   *prop.Properties
	name    string
	actions chan indicator.Action
	signals chan *dbus.Signal

	mu     sync.Mutex
	closed bool

	log *zap.SugaredLogger
}

// Export claims a StatusNotifierItem name on conn, exports the item object
// and registers it with the watcher. A missing watcher is not an error: the
// item registers as soon as one appears.
func Export(conn *dbus.Conn, id string, title string, log *zap.SugaredLogger) (*Item, error) {
	item := &Item{
		conn:    conn,
		name:    fmt.Sprintf("%s-%d-1", ItemInterface, os.Getpid()),
		actions: make(chan indicator.Action, 16),
		signals: make(chan *dbus.Signal, 16),
		log:     log,
	}

	reply, err := conn.RequestName(item.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name %s: %w", item.name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("name %s already taken", item.name)
	}

	if err := conn.Export(handler{item: item}, ItemPath, ItemInterface); err != nil {
		return nil, fmt.Errorf("export %s: %w", ItemInterface, err)
	}

	item.props, err = prop.Export(conn, ItemPath, item.properties(id, title))
	if err != nil {
		return nil, fmt.Errorf("export properties: %w", err)
	}

	node := &introspect.Node{
		Name: string(ItemPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       ItemInterface,
				Methods:    introspect.Methods(handler{}),
				Properties: item.props.Introspection(ItemInterface),
				Signals: []introspect.Signal{
					{Name: "NewIcon"},
					{Name: "NewToolTip"},
					{Name: "NewTitle"},
					{Name: "NewStatus", Args: []introspect.Arg{{Name: "status", Type: "s"}}},
				},
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ItemPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	if err := item.watchWatcher(); err != nil {
		return nil, err
	}

	if err := item.register(); err != nil {
		log.Warnw("StatusNotifierWatcher not available, waiting for it", "error", err)
	}

	return item, nil
}

func (item *Item) properties(id string, title string) prop.Map {
	return prop.Map{
		ItemInterface: {
			"Category":            {Value: "Hardware", Emit: prop.EmitFalse},
			"Id":                  {Value: id, Emit: prop.EmitFalse},
			"Title":               {Value: title, Emit: prop.EmitFalse},
			"Status":              {Value: "Active", Emit: prop.EmitFalse},
			"WindowId":            {Value: uint32(0), Emit: prop.EmitFalse},
			"IconName":            {Value: "", Emit: prop.EmitFalse},
			"IconPixmap":          {Value: []Pixmap{}, Emit: prop.EmitFalse},
			"OverlayIconName":     {Value: "", Emit: prop.EmitFalse},
			"OverlayIconPixmap":   {Value: []Pixmap{}, Emit: prop.EmitFalse},
			"AttentionIconName":   {Value: "", Emit: prop.EmitFalse},
			"AttentionIconPixmap": {Value: []Pixmap{}, Emit: prop.EmitFalse},
			"AttentionMovieName":  {Value: "", Emit: prop.EmitFalse},
			"ToolTip":             {Value: ToolTip{IconPixmap: []Pixmap{}, Title: title}, Emit: prop.EmitFalse},
			"ItemIsMenu":          {Value: false, Emit: prop.EmitFalse},
			"Menu":                {Value: noMenu, Emit: prop.EmitFalse},
		},
	}
}

// Name returns the bus name the item was exported under.
func (item *Item) Name() string {
	return item.name
}

func (item *Item) Actions() <-chan indicator.Action {
	return item.actions
}

func (item *Item) SetIcon(img image.Image) error {
	item.props.SetMust(ItemInterface, "IconPixmap", []Pixmap{NewPixmap(img)})
	return item.emit("NewIcon")
}

// SetTooltip sets the tooltip title. Hosts that show no tooltip body get the
// same text through the item title.
func (item *Item) SetTooltip(text string) error {
	item.props.SetMust(ItemInterface, "ToolTip", ToolTip{IconPixmap: []Pixmap{}, Title: text})
	item.props.SetMust(ItemInterface, "Title", text)
	if err := item.emit("NewTitle"); err != nil {
		return err
	}
	return item.emit("NewToolTip")
}

func (item *Item) emit(signal string) error {
	if err := item.conn.Emit(ItemPath, ItemInterface+"."+signal); err != nil {
		return fmt.Errorf("emit %s: %w", signal, err)
	}
	return nil
}

func (item *Item) register() error {
	call := item.conn.Object(WatcherInterface, WatcherPath).Call(
		WatcherInterface+".RegisterStatusNotifierItem", 0, item.name,
	)
	if call.Err != nil {
		return fmt.Errorf("register item: %w", call.Err)
	}

	item.log.Infow("registered tray item", "name", item.name)
	return nil
}

// watchWatcher registers the item again whenever a StatusNotifierWatcher
// takes its bus name, e.g. after the panel restarts.
func (item *Item) watchWatcher() error {
	if err := item.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, WatcherInterface),
	); err != nil {
		return fmt.Errorf("watch %s: %w", WatcherInterface, err)
	}

	item.conn.Signal(item.signals)

	go func() {
		for signal := range item.signals {
			if !watcherAppeared(signal) {
				continue
			}
			if err := item.register(); err != nil {
				item.log.Warnw("re-register tray item", "error", err)
			}
		}
	}()

	return nil
}

func watcherAppeared(signal *dbus.Signal) bool {
	if signal.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(signal.Body) < 3 {
		return false
	}

	name, ok := signal.Body[0].(string)
	if !ok || name != WatcherInterface {
		return false
	}

	newOwner, ok := signal.Body[2].(string)
	return ok && newOwner != ""
}

// deliver hands an action to the applet without blocking the D-Bus
// dispatcher.
func (item *Item) deliver(action indicator.Action) {
	item.mu.Lock()
	defer item.mu.Unlock()

	if item.closed {
		return
	}

	select {
	case item.actions <- action:
	default:
		item.log.Warnw("dropping tray action, applet is busy", "action", action)
	}
}

// Close releases the bus name and stops delivering actions.
func (item *Item) Close() error {
	item.mu.Lock()
	defer item.mu.Unlock()

	if item.closed {
		return nil
	}
	item.closed = true

	item.conn.RemoveSignal(item.signals)
	close(item.signals)
	close(item.actions)

	_ = item.conn.RemoveMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, WatcherInterface),
	)

	if _, err := item.conn.ReleaseName(item.name); err != nil {
		return fmt.Errorf("release name %s: %w", item.name, err)
	}
	return nil
}
