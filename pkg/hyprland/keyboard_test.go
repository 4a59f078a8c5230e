package hyprland

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/miketth/kbindicator/pkg/indicator"
	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const devicesJSON = `{
	"mice": [],
	"keyboards": [
		{
			"address": "0x1",
			"name": "power-button",
			"layout": "us",
			"variant": "",
			"active_keymap": "English (US)",
			"main": false
		},
		{
			"address": "0x2",
			"name": "at-translated-set-2-keyboard",
			"layout": "us,ru,us",
			"variant": ",phonetic",
			"options": "grp:alt_shift_toggle",
			"active_keymap": "Russian (phonetic)",
			"main": true
		}
	]
}`

type staticDescriber map[string]string

func (d staticDescriber) Description(layout, variant string) string {
	return d[layout+":"+variant]
}

var testDescriber = staticDescriber{
	"us:":         "English (US)",
	"ru:phonetic": "Russian (phonetic)",
}

type fakeCtl struct {
	devices  []Device
	switched []string
	err      error
}

func (c *fakeCtl) GetDevices() ([]Device, error) { return c.devices, c.err }

func (c *fakeCtl) SwitchToLayout(keyboard string, idx int) error {
	c.switched = append(c.switched, keyboard+"#"+string(rune('0'+idx)))
	return nil
}

type fakeLines struct {
	lines []string
}

func (f *fakeLines) ReadLine() (string, error) {
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *fakeLines) Close() error { return nil }

func testDevices(t *testing.T) []Device {
	t.Helper()
	devs, err := decodeDevices(strings.NewReader(devicesJSON))
	require.NoError(t, err)
	return devs
}

func TestDecodeDevices(t *testing.T) {
	devs := testDevices(t)
	require.Len(t, devs, 2)

	kb := devs[1]
	assert.Equal(t, "at-translated-set-2-keyboard", kb.Name)
	assert.Equal(t, []string{"us", "ru", "us"}, kb.Layouts)
	assert.Equal(t, []string{"", "phonetic", ""}, kb.Variants)
	assert.True(t, kb.Main)

	_, err := decodeDevices(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestMainDevice(t *testing.T) {
	devs := testDevices(t)

	dev, found := mainDevice(devs)
	require.True(t, found)
	assert.Equal(t, "at-translated-set-2-keyboard", dev.Name)

	dev, found = mainDevice(devs[:1])
	require.True(t, found)
	assert.Equal(t, "power-button", dev.Name)

	_, found = mainDevice(nil)
	assert.False(t, found)
}

func TestKeyboardState(t *testing.T) {
	ctl := &fakeCtl{devices: testDevices(t)}
	k := newKeyboard(ctl, &fakeLines{}, testDescriber, zap.NewNop().Sugar())

	state, err := k.State()
	require.NoError(t, err)
	assert.Equal(t, []string{"English (US)", "Russian (phonetic)", "English (US)"}, state.Names)
	assert.Equal(t, 1, state.Group)
	assert.Equal(t, "Russian (phonetic)", state.Name())
}

func TestKeyboardStateWithoutRegistry(t *testing.T) {
	ctl := &fakeCtl{devices: []Device{{
		Name:         "kb",
		Layouts:      []string{"us", "ru", "de"},
		Variants:     []string{"", "", ""},
		ActiveKeymap: "Russian",
		Main:         true,
	}}}
	k := newKeyboard(ctl, &fakeLines{}, nil, zap.NewNop().Sugar())

	// codes never match the described active keymap, so no group is guessed
	_, err := k.State()
	assert.ErrorIs(t, err, ErrUnknownKeymap)

	_, err = NewKeyboard(nil, zap.NewNop().Sugar())
	assert.ErrorIs(t, err, ErrNoRegistry)
}

func TestKeyboardStateFallbackNames(t *testing.T) {
	ctl := &fakeCtl{devices: []Device{{
		Name:         "kb",
		Layouts:      []string{"us", "ru"},
		Variants:     []string{"", "phonetic"},
		ActiveKeymap: "Russian (phonetic)",
		Main:         true,
	}}}
	k := newKeyboard(ctl, &fakeLines{}, staticDescriber{"ru:phonetic": "Russian (phonetic)"}, zap.NewNop().Sugar())

	state, err := k.State()
	require.NoError(t, err)
	assert.Equal(t, []string{"us", "Russian (phonetic)"}, state.Names)
	assert.Equal(t, 1, state.Group)
}

func TestKeyboardStateErrors(t *testing.T) {
	k := newKeyboard(&fakeCtl{}, &fakeLines{}, nil, zap.NewNop().Sugar())
	_, err := k.State()
	assert.ErrorIs(t, err, ErrNoKeyboard)

	boom := errors.New("boom")
	k = newKeyboard(&fakeCtl{err: boom}, &fakeLines{}, nil, zap.NewNop().Sugar())
	_, err = k.State()
	assert.ErrorIs(t, err, boom)
}

func TestKeyboardLockGroup(t *testing.T) {
	ctl := &fakeCtl{devices: testDevices(t)}
	k := newKeyboard(ctl, &fakeLines{}, testDescriber, zap.NewNop().Sugar())

	require.NoError(t, k.LockGroup(2))
	assert.Equal(t, []string{"at-translated-set-2-keyboard#2"}, ctl.switched)

	assert.Error(t, k.LockGroup(3))
}

func TestKeyboardNotifications(t *testing.T) {
	lines := &fakeLines{lines: []string{
		"activewindow>>kitty,~",
		"garbage",
		"activelayout>>at-translated-set-2-keyboard,Russian (phonetic)",
	}}
	k := newKeyboard(&fakeCtl{}, lines, nil, zap.NewNop().Sugar())

	var kinds []indicator.NotificationKind
	for n := range k.Notifications() {
		kinds = append(kinds, n.Kind)
	}

	assert.Equal(t, []indicator.NotificationKind{
		indicator.NotificationOther,
		indicator.NotificationStateChanged,
	}, kinds)
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent("activelayout>>kb,English (US, intl., with dead keys)")
	require.NoError(t, err)
	assert.Equal(t, EventActiveLayout, ev.Type)

	keyboard, layout, err := ev.ActiveLayout()
	require.NoError(t, err)
	assert.Equal(t, "kb", keyboard)
	assert.Equal(t, "English (US, intl., with dead keys)", layout)

	_, err = ParseEvent("no separator")
	assert.Error(t, err)

	_, _, err = Event{Type: EventActiveLayout, Data: "nocomma"}.ActiveLayout()
	assert.Error(t, err)
}

func TestGetSocketPath(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	_, err := getSocketPath(socketEvents)
	assert.ErrorIs(t, err, ErrNotRunning)

	// registered first so it runs after the environment is restored
	t.Cleanup(xdg.Reload)

	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "kbindicator-test")
	xdg.Reload()

	_, err = getSocketPath(socketEvents)
	assert.ErrorIs(t, err, ErrNotRunning)

	dir := filepath.Join(runtimeDir, "hypr", "kbindicator-test")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".socket2.sock"), nil, 0o600))

	path, err := getSocketPath(socketEvents)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".socket2.sock"), path)
}
