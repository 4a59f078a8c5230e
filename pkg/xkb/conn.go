package xkb

import (
	"errors"
	"fmt"
	"sync"

	"codeberg.org/miketth/kbindicator/pkg/indicator"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

var (
	ErrNoDisplay   = errors.New("cannot open display")
	ErrNoExtension = errors.New("XKB extension is not present")
)

// Conn is an X11 connection with the keyboard extension initialised and
// StateNotify events selected for the core keyboard.
type Conn struct {
	conn       *xgb.Conn
	opcode     byte
	firstEvent byte
	device     uint16

	notifications chan indicator.Notification
	done          chan struct{}
	closeOnce     sync.Once

	log *zap.SugaredLogger
}

// Connect opens display (or $DISPLAY when empty) and prepares the keyboard
// extension.
func Connect(display string, log *zap.SugaredLogger) (*Conn, error) {
	xconn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDisplay, err)
	}

	c, err := setup(xconn, log)
	if err != nil {
		xconn.Close()
		return nil, err
	}

	go c.pump()

	return c, nil
}

func setup(xconn *xgb.Conn, log *zap.SugaredLogger) (*Conn, error) {
	ext, err := xproto.QueryExtension(xconn, uint16(len(ExtensionName)), ExtensionName).Reply()
	if err != nil {
		return nil, fmt.Errorf("query extension: %w", err)
	}
	if !ext.Present {
		return nil, ErrNoExtension
	}

	c := &Conn{
		conn:          xconn,
		opcode:        ext.MajorOpcode,
		firstEvent:    ext.FirstEvent,
		device:        UseCoreKbd,
		notifications: make(chan indicator.Notification, 16),
		done:          make(chan struct{}),
		log:           log,
	}

	registerConstructors(ext.FirstEvent, ext.FirstError)

	buf, err := c.request(useExtensionRequest(c.opcode))
	if err != nil {
		return nil, fmt.Errorf("use extension: %w", err)
	}
	use, err := parseUseExtensionReply(buf)
	if err != nil {
		return nil, fmt.Errorf("use extension: %w", err)
	}
	if !use.Supported {
		return nil, fmt.Errorf("%w: server version %d.%d", ErrNoExtension, use.ServerMajor, use.ServerMinor)
	}

	log.Debugw("XKB extension ready",
		"opcode", c.opcode,
		"firstEvent", c.firstEvent,
		"serverVersion", fmt.Sprintf("%d.%d", use.ServerMajor, use.ServerMinor),
	)

	if err := c.send(selectStateEventsRequest(c.opcode, c.device, groupStateMask)); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	return c, nil
}

// registerConstructors lets xgb decode the extension's events and its
// Keyboard error, so failed requests surface through Check and Reply.
func registerConstructors(firstEvent, firstError byte) {
	xgb.NewEventFuncs[int(firstEvent)] = newEvent
	xgb.NewErrorFuncs[int(firstError)] = newKeyboardError
}

func (c *Conn) request(buf []byte) ([]byte, error) {
	cookie := c.conn.NewCookie(true, true)
	c.conn.NewRequest(buf, cookie)
	return cookie.Reply()
}

func (c *Conn) send(buf []byte) error {
	cookie := c.conn.NewCookie(true, false)
	c.conn.NewRequest(buf, cookie)
	return cookie.Check()
}

func (c *Conn) State() (indicator.State, error) {
	buf, err := c.request(getStateRequest(c.opcode, c.device))
	if err != nil {
		return indicator.State{}, fmt.Errorf("get state: %w", err)
	}
	state, err := parseStateReply(buf)
	if err != nil {
		return indicator.State{}, err
	}

	names, err := c.groupNames()
	if err != nil {
		return indicator.State{}, err
	}

	return indicator.State{Group: int(state.Group), Names: names}, nil
}

func (c *Conn) groupNames() ([]string, error) {
	buf, err := c.request(getNamesRequest(c.opcode, c.device, nameDetailGroupNames))
	if err != nil {
		return nil, fmt.Errorf("get names: %w", err)
	}
	atoms, err := parseGroupNamesReply(buf)
	if err != nil {
		return nil, err
	}

	names := make([]string, NumGroups)
	for i, atom := range atoms {
		if atom == xproto.AtomNone {
			continue
		}
		reply, err := xproto.GetAtomName(c.conn, atom).Reply()
		if err != nil {
			return nil, fmt.Errorf("get atom name %d: %w", atom, err)
		}
		names[i] = reply.Name
	}

	return names, nil
}

func (c *Conn) LockGroup(group int) error {
	if group < 0 || group >= NumGroups {
		return fmt.Errorf("group %d out of range", group)
	}
	if err := c.send(latchLockStateRequest(c.opcode, c.device, uint8(group))); err != nil {
		return fmt.Errorf("latch lock state: %w", err)
	}
	return nil
}

func (c *Conn) Notifications() <-chan indicator.Notification {
	return c.notifications
}

// Close drops the event selection and closes the display connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.send(selectStateEventsRequest(c.opcode, c.device, 0))
		c.conn.Close()
	})
	return err
}

func (c *Conn) pump() {
	defer close(c.notifications)

	for {
		ev, xerr := c.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			c.log.Debug("X connection closed")
			return
		}
		if xerr != nil {
			c.log.Warnw("X error", "error", xerr)
			continue
		}

		if !c.deliver(classify(ev, c.firstEvent)) {
			return
		}
	}
}

// deliver queues n for the applet and reports false once Close was called.
func (c *Conn) deliver(n indicator.Notification) bool {
	select {
	case c.notifications <- n:
		return true
	case <-c.done:
		return false
	}
}

// classify reports an event as a state change only if it is an XKB event
// from the subscribed extension with xkbType StateNotify.
func classify(ev xgb.Event, firstEvent byte) indicator.Notification {
	n := indicator.Notification{Kind: indicator.NotificationOther, Raw: ev.String()}

	xev, ok := ev.(Event)
	if !ok {
		return n
	}
	if xev.Code == firstEvent && xev.XkbType == StateNotify {
		n.Kind = indicator.NotificationStateChanged
	}
	return n
}
