package xkb

import (
	"fmt"

	"github.com/jezek/xgb"
)

// Event is any event sent by the XKEYBOARD extension. All of them share the
// extension's first event code and are told apart by XkbType.
type Event struct {
	Code     byte
	XkbType  byte
	Sequence uint16
	Time     uint32
	DeviceID byte

	// Fields below are only meaningful for StateNotify.
	Group       uint8
	LockedGroup uint8
	Changed     uint16

	raw []byte
}

func newEvent(buf []byte) xgb.Event {
	ev := Event{raw: append([]byte(nil), buf...)}
	if len(buf) < 32 {
		return ev
	}

	ev.Code = buf[0] & 0x7f
	ev.XkbType = buf[1]
	ev.Sequence = xgb.Get16(buf[2:])
	ev.Time = xgb.Get32(buf[4:])
	ev.DeviceID = buf[8]
	if ev.XkbType == StateNotify {
		ev.Group = buf[13]
		ev.LockedGroup = buf[18]
		ev.Changed = xgb.Get16(buf[26:])
	}
	return ev
}

func (e Event) Bytes() []byte {
	return e.raw
}

func (e Event) String() string {
	if e.XkbType == StateNotify {
		return fmt.Sprintf("XkbStateNotify {Device: %d, Group: %d, LockedGroup: %d, Changed: %#x}",
			e.DeviceID, e.Group, e.LockedGroup, e.Changed)
	}
	return fmt.Sprintf("XkbEvent {Code: %d, XkbType: %d, Device: %d}", e.Code, e.XkbType, e.DeviceID)
}

// KeyboardError is the XKEYBOARD extension's Keyboard error, sent when a
// request names a device or field the server does not know.
type KeyboardError struct {
	Sequence    uint16
	Value       uint32
	MinorOpcode uint16
	MajorOpcode byte
}

func newKeyboardError(buf []byte) xgb.Error {
	var e KeyboardError
	if len(buf) < 11 {
		return e
	}

	e.Sequence = xgb.Get16(buf[2:])
	e.Value = xgb.Get32(buf[4:])
	e.MinorOpcode = xgb.Get16(buf[8:])
	e.MajorOpcode = buf[10]
	return e
}

func (e KeyboardError) SequenceId() uint16 {
	return e.Sequence
}

func (e KeyboardError) BadId() uint32 {
	return e.Value
}

func (e KeyboardError) Error() string {
	return fmt.Sprintf("XkbKeyboard {Sequence: %d, Value: %#x, Request: %d.%d}",
		e.Sequence, e.Value, e.MajorOpcode, e.MinorOpcode)
}
