package hyprland

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
)

// Hyprctl talks to the request socket, one connection per request.
type Hyprctl struct{}

func NewHyprctl() (*Hyprctl, error) {
	if _, err := getSocketPath(socketHyprctl); err != nil {
		return nil, err
	}
	return &Hyprctl{}, nil
}

func (c *Hyprctl) SwitchToLayout(keyboard string, idx int) error {
	conn, err := c.makeRequest(fmt.Sprintf("switchxkblayout %s %d", keyboard, idx), "")
	if err != nil {
		return err
	}
	defer conn.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		return fmt.Errorf("read response from hyprctl socket: %w", err)
	}

	if resp := strings.TrimSpace(buf.String()); resp != "ok" {
		return fmt.Errorf("hyprctl: %s", resp)
	}

	return nil
}

func (c *Hyprctl) GetDevices() ([]Device, error) {
	conn, err := c.makeRequest("devices", "j")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return decodeDevices(conn)
}

func decodeDevices(r io.Reader) ([]Device, error) {
	var devs devices
	if err := json.NewDecoder(r).Decode(&devs); err != nil {
		return nil, fmt.Errorf("unmarshal devices: %w", err)
	}

	out := make([]Device, 0, len(devs.Keyboards))
	for _, k := range devs.Keyboards {
		out = append(out, k.ToDevice())
	}

	return out, nil
}

func (c *Hyprctl) makeRequest(request string, flags string) (net.Conn, error) {
	conn, err := connect(socketHyprctl)
	if err != nil {
		return nil, err
	}

	if flags != "" {
		request = flags + "/" + request
	}

	if _, err := conn.Write([]byte(request)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write to hyprctl socket: %w", err)
	}

	return conn, nil
}
