package hyprland

import (
	"bufio"
	"fmt"
	"net"
	"strings"
)

// Client reads the event socket (socket2) line by line.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

func Connect() (*Client, error) {
	conn, err := connect(socketEvents)
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) ReadLine() (string, error) {
	str, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read from hypr socket: %w", err)
	}
	return strings.TrimSuffix(str, "\n"), nil
}

type Event struct {
	Type string
	Data string
}

// ParseEvent splits a socket2 line of the form "type>>data".
func ParseEvent(line string) (Event, error) {
	evType, data, found := strings.Cut(line, ">>")
	if !found {
		return Event{}, fmt.Errorf("invalid line: %q", line)
	}
	return Event{Type: evType, Data: data}, nil
}

// ActiveLayout decodes the data of an activelayout event into the keyboard
// name and the layout description. Descriptions may contain commas.
func (e Event) ActiveLayout() (keyboard string, layout string, err error) {
	keyboard, layout, found := strings.Cut(e.Data, ",")
	if !found {
		return "", "", fmt.Errorf("invalid layout change data: %q", e.Data)
	}
	return keyboard, layout, nil
}
