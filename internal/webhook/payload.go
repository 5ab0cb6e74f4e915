package webhook

import "encoding/json"

// Event is the decoded inbound webhook payload. Extra metadata the
// platform attaches (severity, timestamps) is ignored.
type Event struct {
	Type      string          `json:"type"`
	Member    *EventMember    `json:"member"`
	Workspace *EventWorkspace `json:"workspace"`
}

// EventMember identifies the actor the event is about.
type EventMember struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// EventWorkspace identifies the workspace the event occurred in.
type EventWorkspace struct {
	ID string `json:"id"`
}

// ParseEvent decodes raw webhook bytes. A decode error means the body
// is malformed JSON or carries wrongly typed fields.
func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Valid reports whether the event has the structural shape business
// logic requires: a type, an actor with id and email, and a workspace
// id. It is a pure predicate; it does not check that the workspace is
// known.
func (e *Event) Valid() bool {
	if e == nil || e.Type == "" {
		return false
	}
	if e.Member == nil || e.Member.ID == "" || e.Member.Email == "" {
		return false
	}
	if e.Workspace == nil || e.Workspace.ID == "" {
		return false
	}
	return true
}
