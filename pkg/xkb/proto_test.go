package xkb

import (
	"testing"

	"codeberg.org/miketth/kbindicator/pkg/indicator"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOpcode = 135

func TestUseExtensionRequest(t *testing.T) {
	assert.Equal(t,
		[]byte{testOpcode, 0, 2, 0, 1, 0, 0, 0},
		useExtensionRequest(testOpcode),
	)
}

func TestParseUseExtensionReply(t *testing.T) {
	buf := make([]byte, 32)
	buf[0] = 1
	buf[1] = 1
	buf[8] = 1
	buf[10] = 0

	reply, err := parseUseExtensionReply(buf)
	require.NoError(t, err)
	assert.True(t, reply.Supported)
	assert.Equal(t, uint16(1), reply.ServerMajor)

	_, err = parseUseExtensionReply(buf[:4])
	assert.Error(t, err)
}

func TestSelectStateEventsRequest(t *testing.T) {
	assert.Equal(t,
		[]byte{
			testOpcode, 1, 5, 0,
			0x00, 0x01, // device
			0x04, 0x00, // affectWhich
			0, 0, // clear
			0, 0, // selectAll
			0, 0, // affectMap
			0, 0, // map
			0xff, 0x3f, // affectState
			0x10, 0x00, // stateDetails
		},
		selectStateEventsRequest(testOpcode, UseCoreKbd, groupStateMask),
	)
}

func TestGetStateRequest(t *testing.T) {
	assert.Equal(t,
		[]byte{testOpcode, 4, 2, 0, 0x00, 0x01, 0, 0},
		getStateRequest(testOpcode, UseCoreKbd),
	)
}

func TestParseStateReply(t *testing.T) {
	buf := make([]byte, 32)
	buf[0] = 1
	buf[1] = 3
	buf[12] = 2
	buf[13] = 2

	reply, err := parseStateReply(buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), reply.Group)
	assert.Equal(t, uint8(2), reply.LockedGroup)
	assert.Equal(t, byte(3), reply.DeviceID)

	_, err = parseStateReply(buf[:16])
	assert.Error(t, err)
}

func TestLatchLockStateRequest(t *testing.T) {
	assert.Equal(t,
		[]byte{testOpcode, 5, 4, 0, 0x00, 0x01, 0, 0, 1, 3, 0, 0, 0, 0, 0, 0},
		latchLockStateRequest(testOpcode, UseCoreKbd, 3),
	)
}

func TestGetNamesRequest(t *testing.T) {
	assert.Equal(t,
		[]byte{testOpcode, 17, 3, 0, 0x00, 0x01, 0, 0, 0x00, 0x10, 0, 0},
		getNamesRequest(testOpcode, UseCoreKbd, nameDetailGroupNames),
	)
}

func namesReply(mask byte, atoms ...uint32) []byte {
	buf := make([]byte, 32+4*len(atoms))
	buf[0] = 1
	xgb.Put32(buf[4:], uint32(len(atoms)))
	xgb.Put32(buf[8:], nameDetailGroupNames)
	buf[15] = mask
	for i, atom := range atoms {
		xgb.Put32(buf[32+4*i:], atom)
	}
	return buf
}

func TestParseGroupNamesReply(t *testing.T) {
	t.Run("contiguous", func(t *testing.T) {
		groups, err := parseGroupNamesReply(namesReply(0b0011, 301, 302))
		require.NoError(t, err)
		assert.Equal(t, [NumGroups]xproto.Atom{301, 302, 0, 0}, groups)
	})

	t.Run("sparse mask", func(t *testing.T) {
		groups, err := parseGroupNamesReply(namesReply(0b1010, 401, 402))
		require.NoError(t, err)
		assert.Equal(t, [NumGroups]xproto.Atom{0, 401, 0, 402}, groups)
	})

	t.Run("truncated", func(t *testing.T) {
		buf := namesReply(0b0111, 1, 2, 3)
		_, err := parseGroupNamesReply(buf[:36])
		assert.Error(t, err)
	})

	t.Run("no group names detail", func(t *testing.T) {
		buf := namesReply(0b0001, 1)
		xgb.Put32(buf[8:], 0)
		groups, err := parseGroupNamesReply(buf)
		require.NoError(t, err)
		assert.Equal(t, [NumGroups]xproto.Atom{}, groups)
	})
}

func stateNotifyBytes(code byte, xkbType byte, group byte) []byte {
	buf := make([]byte, 32)
	buf[0] = code
	buf[1] = xkbType
	buf[8] = 3
	buf[13] = group
	buf[18] = group
	xgb.Put16(buf[26:], groupStateMask)
	return buf
}

func TestNewEvent(t *testing.T) {
	ev := newEvent(stateNotifyBytes(85, StateNotify, 1)).(Event)
	assert.Equal(t, byte(85), ev.Code)
	assert.Equal(t, byte(StateNotify), ev.XkbType)
	assert.Equal(t, uint8(1), ev.Group)
	assert.Equal(t, groupStateMask, ev.Changed)
	assert.Len(t, ev.Bytes(), 32)
	assert.Contains(t, ev.String(), "XkbStateNotify")
}

func TestClassify(t *testing.T) {
	const firstEvent = 85

	n := classify(newEvent(stateNotifyBytes(firstEvent, StateNotify, 1)), firstEvent)
	assert.Equal(t, indicator.NotificationStateChanged, n.Kind)

	// another XKB event type, e.g. NewKeyboardNotify
	n = classify(newEvent(stateNotifyBytes(firstEvent, 0, 1)), firstEvent)
	assert.Equal(t, indicator.NotificationOther, n.Kind)

	// event code of a different extension
	n = classify(newEvent(stateNotifyBytes(firstEvent+1, StateNotify, 1)), firstEvent)
	assert.Equal(t, indicator.NotificationOther, n.Kind)

	// core protocol event
	n = classify(xproto.KeyPressEvent{}, firstEvent)
	assert.Equal(t, indicator.NotificationOther, n.Kind)
}
