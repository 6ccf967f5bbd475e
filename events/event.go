package events

import (
	"encoding/json"
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// Kind classifies events by where they originate
type Kind int

// event kinds
const (
	// KindCustom events are only ever emitted by the application
	KindCustom Kind = iota
	// KindClient events report the connection lifecycle of the streaming transport
	KindClient
	// KindInternal events carry every raw inbound message
	KindInternal
	// KindNetwork events are pushed by the node after a moi.subscribe call
	KindNetwork
	// KindTesseract events fire once the tesseract with the hash of the event name is found
	KindTesseract
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindInternal:
		return "internal"
	case KindNetwork:
		return "network"
	case KindTesseract:
		return "tesseract"
	default:
		return "custom"
	}
}

const tesseractTagPrefix = "tesseract:"

// Event identifies what a listener is registered for. Network events may carry subscription parameters
type Event struct {
	name   string
	tag    string
	kind   Kind
	params []any
}

// predefined events
var (
	Open                   = Event{name: "open", tag: "open", kind: KindClient}
	Close                  = Event{name: "close", tag: "close", kind: KindClient}
	Error                  = Event{name: "error", tag: "error", kind: KindClient}
	Reconnect              = Event{name: "reconnect", tag: "reconnect", kind: KindClient}
	Message                = Event{name: "message", tag: "message", kind: KindInternal}
	NewPendingInteractions = Event{name: "newPendingInteractions", tag: "newpendinginteractions", kind: KindNetwork}
	NewTesseracts          = Event{name: "newTesseracts", tag: "newtesseracts", kind: KindNetwork}
)

const (
	newTesseractsByAccount = "newTesseractsByAccount"
	newLogs                = "newLogs"
)

var known = map[string]Event{
	Open.tag:                               Open,
	Close.tag:                              Close,
	Error.tag:                              Error,
	Reconnect.tag:                          Reconnect,
	Message.tag:                            Message,
	NewPendingInteractions.tag:             NewPendingInteractions,
	NewTesseracts.tag:                      NewTesseracts,
	strings.ToLower(newTesseractsByAccount): {name: newTesseractsByAccount, tag: strings.ToLower(newTesseractsByAccount), kind: KindNetwork},
	strings.ToLower(newLogs):                {name: newLogs, tag: strings.ToLower(newLogs), kind: KindNetwork},
}

// AccountFilter selects the tesseracts of one account
type AccountFilter struct {
	Address string `json:"address"`
}

// LogFilter selects the logs pushed by a newLogs subscription
type LogFilter struct {
	StartHeight int64  `json:"start_height"`
	EndHeight   int64  `json:"end_height"`
	Address     string `json:"address"`
	Topics      []any  `json:"topics"`
}

// NewTesseractsByAccount returns the network event for new tesseracts of the given account
func NewTesseractsByAccount(address string) Event {
	ev := known[strings.ToLower(newTesseractsByAccount)]
	ev.params = []any{AccountFilter{Address: address}}

	return ev
}

// NewLogs returns the network event for logs matching the filter
func NewLogs(filter LogFilter) Event {
	if filter.Topics == nil {
		filter.Topics = []any{}
	}

	ev := known[strings.ToLower(newLogs)]
	ev.params = []any{filter}

	return ev
}

// Tesseract returns the event that fires once the tesseract with the given hash is found
func Tesseract(hash string) (Event, error) {
	if !jsonrpc.IsHash(hash) {
		return Event{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "invalid tesseract hash %s", hash)
	}

	return Named(hash)
}

// Named returns the event for a name. Names are case-insensitive: predefined names map to their event,
// a 32-byte hex name maps to a tesseract event and any other name without ':' is a custom event
func Named(name string) (Event, error) {
	tag, err := Tag(name)
	if err != nil {
		return Event{}, err
	}

	if ev, ok := known[tag]; ok {
		return ev, nil
	}

	if strings.HasPrefix(tag, tesseractTagPrefix) {
		return Event{name: strings.ToLower(name), tag: tag, kind: KindTesseract}, nil
	}

	return Event{name: name, tag: tag, kind: KindCustom}, nil
}

// MustNamed is like Named but panics on an invalid name
func MustNamed(name string) Event {
	ev, err := Named(name)
	if err != nil {
		panic(err)
	}

	return ev
}

// Tag derives the registry key of an event name
func Tag(name string) (string, error) {
	tag := strings.ToLower(name)
	switch {
	case tag == "":
		return "", errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "invalid event - empty name")
	case jsonrpc.IsHash(tag):
		return tesseractTagPrefix + tag, nil
	case strings.Contains(tag, ":"):
		return "", errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "invalid event - %s", name)
	default:
		return tag, nil
	}
}

// Name returns the name the event is subscribed with
func (e Event) Name() string { return e.name }

// Tag returns the registry key of the event
func (e Event) Tag() string { return e.tag }

// Kind returns the origin of the event
func (e Event) Kind() Kind { return e.kind }

// Params returns the subscription parameters of a network event
func (e Event) Params() []any { return append([]any(nil), e.params...) }

func (e Event) String() string {
	if len(e.params) == 0 {
		return e.name
	}

	return e.key()
}

// key identifies the event together with its parameters
func (e Event) key() string {
	if len(e.params) == 0 {
		return e.tag
	}

	bz, err := json.Marshal(e.params)
	if err != nil {
		return fmt.Sprintf("%s%v", e.tag, e.params)
	}

	return e.tag + string(bz)
}

// matches reports whether a registration for e is selected by the query event q.
// A query without parameters selects every registration with the same tag
func (e Event) matches(q Event) bool {
	if e.tag != q.tag {
		return false
	}

	return len(q.params) == 0 || e.key() == q.key()
}

// subscribeParams returns the params of the moi.subscribe call for a network event
func (e Event) subscribeParams() []any {
	return append([]any{e.name}, e.params...)
}

func (e Event) isZero() bool { return e.tag == "" }

func (e Event) validate() error {
	if e.isZero() {
		return errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "invalid event - empty name")
	}

	if e.kind == KindNetwork && len(e.params) == 0 && (e.name == newTesseractsByAccount || e.name == newLogs) {
		return errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "event %s requires subscription parameters", e.name)
	}

	return nil
}
