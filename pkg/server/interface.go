/*
Package server implements msgpack IPC for completion sessions.

The server keeps any number of independent completion engines, one per input
field of the client, and drives them through a stream of msgpack maps read
from stdin. Every request gets exactly one response written to stdout, in
order.

# IPC

Each message is a msgpack map. The "action" field selects the operation and
"session" names the engine it applies to:

	{"id": "1", "action": "new_session", "mode": "popup", "order": "weighted"}

The server answers with the new session id:

	{"id": "1", "status": "ok", "session": "5b0c...", "t": 41}

Completion requests carry the text typed so far:

	{"id": "2", "action": "complete", "session": "5b0c...", "text": "ka"}
	{"id": "2", "status": "ok", "match": "kate", "found": true, "multiple": true, "events": ["multiple_matches"], "t": 12}

Events raised by the engine while serving a request (no_match,
partial_match, rotation, multiple_matches, matches) are returned with the
response instead of being sounded, the client decides what to do with them.

A malformed message gets a response with status "error" and the server keeps
reading. The stream ends at EOF.

# Actions

	new_session    create an engine, optional mode, order, ignore_case, sounds
	close_session  drop an engine
	configure      change mode, order, ignore_case or sounds
	add            add text, with optional weight
	add_weighted   add "text:weight" items
	remove         remove text
	clear          drop every item
	set_items      replace every item with items
	items          list every item
	complete       complete text according to the mode
	next           rotate to the next match
	previous       rotate to the previous match
	all_matches    list every match of text, or of the last query
	substring      list every item containing text
	save           store the items under name
	load           replace the items with the list stored under name
	lists          list the stored names
	health         report liveness and session count
*/
package server

// Action names.
const (
	ActionNewSession   = "new_session"
	ActionCloseSession = "close_session"
	ActionConfigure    = "configure"
	ActionAdd          = "add"
	ActionAddWeighted  = "add_weighted"
	ActionRemove       = "remove"
	ActionClear        = "clear"
	ActionSetItems     = "set_items"
	ActionItems        = "items"
	ActionComplete     = "complete"
	ActionNext         = "next"
	ActionPrevious     = "previous"
	ActionAllMatches   = "all_matches"
	ActionSubstring    = "substring"
	ActionSave         = "save"
	ActionLoad         = "load"
	ActionLists        = "lists"
	ActionHealth       = "health"
)

// Response status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is a single client message.
type Request struct {
	ID      string   `msgpack:"id"`
	Action  string   `msgpack:"action"`
	Session string   `msgpack:"session,omitempty"`
	Text    string   `msgpack:"text,omitempty"`
	Weight  uint     `msgpack:"weight,omitempty"`
	Items   []string `msgpack:"items,omitempty"`
	Name    string   `msgpack:"name,omitempty"`

	// settings, nil means unchanged
	Mode       *string `msgpack:"mode,omitempty"`
	Order      *string `msgpack:"order,omitempty"`
	IgnoreCase *bool   `msgpack:"ignore_case,omitempty"`
	Sounds     *bool   `msgpack:"sounds,omitempty"`
}

// Response answers a Request with the same ID.
type Response struct {
	ID       string   `msgpack:"id"`
	Status   string   `msgpack:"status"`
	Error    string   `msgpack:"error,omitempty"`
	Session  string   `msgpack:"session,omitempty"`
	Match    string   `msgpack:"match,omitempty"`
	Found    bool     `msgpack:"found,omitempty"`
	Multiple bool     `msgpack:"multiple,omitempty"`
	Matches  []string `msgpack:"matches,omitempty"`
	// Weights is parallel to Matches, set for all_matches in weighted order
	Weights   []uint   `msgpack:"weights,omitempty"`
	Events    []string `msgpack:"events,omitempty"`
	Sessions  int      `msgpack:"sessions,omitempty"`
	TimeTaken int64    `msgpack:"t"`
}
