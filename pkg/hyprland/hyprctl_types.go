package hyprland

import "strings"

// Device is a keyboard as reported by hyprctl, with its layout list split.
type Device struct {
	Name         string
	Layouts      []string
	Variants     []string
	ActiveKeymap string
	Main         bool
}

type keyboard struct {
	Name         string `json:"name"`
	Layout       string `json:"layout"`
	Variant      string `json:"variant"`
	Options      string `json:"options"`
	ActiveKeymap string `json:"active_keymap"`
	Main         bool   `json:"main"`
}

type devices struct {
	Keyboards []keyboard `json:"keyboards"`
}

func (k keyboard) ToDevice() Device {
	layouts := strings.Split(k.Layout, ",")
	variants := strings.Split(k.Variant, ",")
	for len(variants) < len(layouts) {
		variants = append(variants, "")
	}

	return Device{
		Name:         k.Name,
		Layouts:      layouts,
		Variants:     variants[:len(layouts)],
		ActiveKeymap: k.ActiveKeymap,
		Main:         k.Main,
	}
}

// mainDevice picks the keyboard flagged as main, or the first one.
func mainDevice(devs []Device) (Device, bool) {
	if len(devs) == 0 {
		return Device{}, false
	}
	for _, d := range devs {
		if d.Main {
			return d, true
		}
	}
	return devs[0], true
}
