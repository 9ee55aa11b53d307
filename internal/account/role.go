package account

import (
	"fmt"
	"strings"
)

// Role identifies one of the two independently managed credential slots.
type Role int

const (
	// Streamer is the broadcaster's own identity.
	Streamer Role = iota
	// ChatBot is the identity the bot speaks as in chat.
	ChatBot
)

// Roles lists every role in a stable order.
var Roles = []Role{Streamer, ChatBot}

// String returns the persisted name of the role.
func (r Role) String() string {
	switch r {
	case Streamer:
		return "streamer"
	case ChatBot:
		return "chatBot"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole parses a role name case-insensitively ("chatbot" and "chatBot" are equal).
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	switch r {
	case Streamer, ChatBot:
		return []byte(r.String()), nil
	default:
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
