package multiagent

import "strings"

// Predicate reports whether a message is acceptable under a protocol.
type Predicate func(m Message) bool

// Protocol names a predicate used to validate outgoing/incoming messages at
// a manager boundary (§4.7). A message failing validation is dropped with
// a warning; the sender receives no acknowledgement.
type Protocol struct {
	Name      string
	predicate Predicate
}

// builtinProtocols are the four named predicates from §4.7; any other name
// falls back to AcceptAll.
var builtinProtocols = map[string]Predicate{
	"request-response": func(m Message) bool {
		return m.Type == "request" || m.Type == "response"
	},
	"broadcast": func(m Message) bool {
		return m.To == Broadcast
	},
	"contract-net": func(m Message) bool {
		switch m.Type {
		case "cfp", "proposal", "award", "reject":
			return true
		default:
			return false
		}
	},
	"auction": func(m Message) bool {
		switch m.Type {
		case "bid", "accept", "reject":
			return true
		default:
			return false
		}
	},
}

// NewProtocol resolves name to one of the built-in predicates, or to
// AcceptAll for any unrecognized name.
func NewProtocol(name string) Protocol {
	if p, ok := builtinProtocols[strings.ToLower(name)]; ok {
		return Protocol{Name: name, predicate: p}
	}
	return Protocol{Name: name, predicate: acceptAll}
}

func acceptAll(Message) bool { return true }

// Accepts runs the protocol's predicate against m.
func (p Protocol) Accepts(m Message) bool {
	if p.predicate == nil {
		return true
	}
	return p.predicate(m)
}
