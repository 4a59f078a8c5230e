package hyprland

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

var ErrNotRunning = errors.New("hyprland might not be running")

type socketType int

const (
	socketHyprctl socketType = iota
	socketEvents
)

func (s socketType) fileName() (string, error) {
	switch s {
	case socketHyprctl:
		return ".socket.sock", nil
	case socketEvents:
		return ".socket2.sock", nil
	}
	return "", fmt.Errorf("unknown socket type: %d", s)
}

// Running reports whether the process was started inside a Hyprland session.
func Running() bool {
	return os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != ""
}

// getSocketPath resolves a socket of the running instance. Hyprland keeps its
// sockets under $XDG_RUNTIME_DIR/hypr, older releases under /tmp/hypr.
func getSocketPath(sock socketType) (string, error) {
	signature := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if signature == "" {
		return "", fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE is not set, %w", ErrNotRunning)
	}

	name, err := sock.fileName()
	if err != nil {
		return "", err
	}

	candidates := []string{
		filepath.Join(xdg.RuntimeDir, "hypr", signature, name),
		filepath.Join("/tmp/hypr", signature, name),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no socket %s for instance %s, %w", name, signature, ErrNotRunning)
}

func connect(sock socketType) (net.Conn, error) {
	socketPath, err := getSocketPath(sock)
	if err != nil {
		return nil, fmt.Errorf("get socket path: %w", err)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return conn, nil
}
