package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseIncoming validates and decodes a wire message from the front-end.
func ParseIncoming(data []byte) (IncomingMsg, error) {
	var msg IncomingMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return IncomingMsg{}, fmt.Errorf("parse message: %w", err)
	}

	switch msg.Type {
	case "location.changed":
		if msg.Path == "" {
			return IncomingMsg{}, fmt.Errorf("location.changed: missing path")
		}
		msg.Path = normalizePath(msg.Path)
	case "title.changed":
		if msg.Path == "" {
			return IncomingMsg{}, fmt.Errorf("title.changed: missing path")
		}
		msg.Path = normalizePath(msg.Path)
	case "session.request":
	case "":
		// Bare command acknowledgement; id identifies the command.
		if msg.ID == "" {
			return IncomingMsg{}, fmt.Errorf("message without type or id")
		}
	default:
		return IncomingMsg{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return msg, nil
}

// normalizePath strips an accidental origin ("http://host/tickets" ->
// "/tickets") and guarantees a leading slash. Front-ends disagree on
// whether location events carry the full href or just the path.
func normalizePath(p string) string {
	if i := strings.Index(p, "://"); i >= 0 {
		rest := p[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			p = rest[j:]
		} else {
			p = "/"
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
