package xkb

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// The XKEYBOARD subset needed to read, lock and watch the layout group.
// xgb has no generated binding for this extension, so requests are encoded
// here following the X Keyboard Extension protocol document.

const ExtensionName = "XKEYBOARD"

const (
	majorVersion = 1
	minorVersion = 0
)

// Minor opcodes.
const (
	opUseExtension   = 0
	opSelectEvents   = 1
	opGetState       = 4
	opLatchLockState = 5
	opGetNames       = 17
)

const (
	// UseCoreKbd is the device spec of the core keyboard.
	UseCoreKbd uint16 = 0x0100

	// NumGroups is the number of group slots XKB keeps per keyboard.
	NumGroups = 4

	// StateNotify is the xkbType of a keyboard state change event.
	StateNotify = 2

	eventMaskStateNotify   uint16 = 1 << StateNotify
	allStateComponentsMask uint16 = 0x3fff
	groupStateMask         uint16 = 1 << 4

	nameDetailGroupNames uint32 = 1 << 12
)

func useExtensionRequest(opcode byte) []byte {
	buf := make([]byte, 8)
	buf[0] = opcode
	buf[1] = opUseExtension
	xgb.Put16(buf[2:], uint16(len(buf)/4))
	xgb.Put16(buf[4:], majorVersion)
	xgb.Put16(buf[6:], minorVersion)
	return buf
}

type useExtensionReply struct {
	Supported   bool
	ServerMajor uint16
	ServerMinor uint16
}

func parseUseExtensionReply(buf []byte) (useExtensionReply, error) {
	if len(buf) < 12 {
		return useExtensionReply{}, fmt.Errorf("short UseExtension reply: %d bytes", len(buf))
	}
	return useExtensionReply{
		Supported:   buf[1] != 0,
		ServerMajor: xgb.Get16(buf[8:]),
		ServerMinor: xgb.Get16(buf[10:]),
	}, nil
}

// selectStateEventsRequest selects StateNotify events for device, limited to
// the components in details. A zero details mask clears the selection.
func selectStateEventsRequest(opcode byte, device uint16, details uint16) []byte {
	buf := make([]byte, 20)
	buf[0] = opcode
	buf[1] = opSelectEvents
	xgb.Put16(buf[2:], uint16(len(buf)/4))
	xgb.Put16(buf[4:], device)
	xgb.Put16(buf[6:], eventMaskStateNotify) // affectWhich
	xgb.Put16(buf[8:], 0)                    // clear
	xgb.Put16(buf[10:], 0)                   // selectAll
	xgb.Put16(buf[12:], 0)                   // affectMap
	xgb.Put16(buf[14:], 0)                   // map
	xgb.Put16(buf[16:], allStateComponentsMask)
	xgb.Put16(buf[18:], details)
	return buf
}

func getStateRequest(opcode byte, device uint16) []byte {
	buf := make([]byte, 8)
	buf[0] = opcode
	buf[1] = opGetState
	xgb.Put16(buf[2:], uint16(len(buf)/4))
	xgb.Put16(buf[4:], device)
	return buf
}

type stateReply struct {
	DeviceID    byte
	Group       uint8
	LockedGroup uint8
	BaseGroup   int16
}

func parseStateReply(buf []byte) (stateReply, error) {
	if len(buf) < 32 {
		return stateReply{}, fmt.Errorf("short GetState reply: %d bytes", len(buf))
	}
	return stateReply{
		DeviceID:    buf[1],
		Group:       buf[12],
		LockedGroup: buf[13],
		BaseGroup:   int16(xgb.Get16(buf[14:])),
	}, nil
}

func latchLockStateRequest(opcode byte, device uint16, group uint8) []byte {
	buf := make([]byte, 16)
	buf[0] = opcode
	buf[1] = opLatchLockState
	xgb.Put16(buf[2:], uint16(len(buf)/4))
	xgb.Put16(buf[4:], device)
	buf[6] = 0 // affectModLocks
	buf[7] = 0 // modLocks
	buf[8] = 1 // lockGroup
	buf[9] = group
	buf[10] = 0 // affectModLatches
	buf[13] = 0 // latchGroup
	xgb.Put16(buf[14:], 0)
	return buf
}

func getNamesRequest(opcode byte, device uint16, which uint32) []byte {
	buf := make([]byte, 12)
	buf[0] = opcode
	buf[1] = opGetNames
	xgb.Put16(buf[2:], uint16(len(buf)/4))
	xgb.Put16(buf[4:], device)
	xgb.Put32(buf[8:], which)
	return buf
}

// parseGroupNamesReply extracts the group name atoms from a GetNames reply
// requested with only the GroupNames detail. Slots without a name are zero.
func parseGroupNamesReply(buf []byte) ([NumGroups]xproto.Atom, error) {
	var groups [NumGroups]xproto.Atom

	if len(buf) < 32 {
		return groups, fmt.Errorf("short GetNames reply: %d bytes", len(buf))
	}

	which := xgb.Get32(buf[8:])
	if which&nameDetailGroupNames == 0 {
		return groups, nil
	}

	mask := buf[15]
	offset := 32
	for i := 0; i < NumGroups; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		if offset+4 > len(buf) {
			return groups, fmt.Errorf("GetNames reply truncated at group %d", i)
		}
		groups[i] = xproto.Atom(xgb.Get32(buf[offset:]))
		offset += 4
	}

	return groups, nil
}
