package proxy

import (
	"strings"

	"github.com/collinmsn/resp"
)

// subscribeAllowedCmds is the command set a session may use once it has
// entered the Subscribed state (spec §4.8): everything else is rejected
// with -ERR rather than forwarded.
var subscribeAllowedCmds = map[string]bool{
	"SUBSCRIBE":    true,
	"PSUBSCRIBE":   true,
	"UNSUBSCRIBE":  true,
	"PUNSUBSCRIBE": true,
	"PING":         true,
	"QUIT":         true,
}

// IsSubscribeFamily reports whether cmd is one of the (P)SUBSCRIBE
// commands that pin a session into the Subscribed state.
func IsSubscribeFamily(cmd *resp.Command) bool {
	switch strings.ToUpper(cmd.Name()) {
	case "SUBSCRIBE", "PSUBSCRIBE":
		return true
	default:
		return false
	}
}

// subscribePinKey picks the routing key a (P)SUBSCRIBE command pins its
// session to: the first channel/pattern argument, hashed exactly like an
// ordinary key so the same RouteMap/ServerPool machinery applies.
func subscribePinKey(cmd *resp.Command) []byte {
	if len(cmd.Args) < 2 {
		return nil
	}
	return []byte(cmd.Value(1))
}
