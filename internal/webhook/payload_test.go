package webhook

import "testing"

func TestParseEvent(t *testing.T) {
	raw := []byte(`{
		"type": "WorkspaceMember.joined",
		"severity": "info",
		"createdAt": "2026-08-30T12:00:00Z",
		"member": {"id": "user-1", "email": "john@example.com"},
		"workspace": {"id": "ws-123"}
	}`)

	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if ev.Type != "WorkspaceMember.joined" {
		t.Errorf("Type = %q", ev.Type)
	}
	if ev.Member.ID != "user-1" || ev.Member.Email != "john@example.com" {
		t.Errorf("Member = %+v", ev.Member)
	}
	if ev.Workspace.ID != "ws-123" {
		t.Errorf("Workspace = %+v", ev.Workspace)
	}
}

func TestParseEventMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated", `{"type":`},
		{"array body", `[1,2,3]`},
		{"wrongly typed member", `{"type":"x","member":42,"workspace":{"id":"ws"}}`},
		{"wrongly typed id", `{"type":"x","member":{"id":7,"email":"a@b.c"},"workspace":{"id":"ws"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tt.raw)); err == nil {
				t.Error("ParseEvent() should fail")
			}
		})
	}
}

func TestEventValid(t *testing.T) {
	valid := func() *Event {
		return &Event{
			Type:      "WorkspaceMember.joined",
			Member:    &EventMember{ID: "user-1", Email: "john@example.com"},
			Workspace: &EventWorkspace{ID: "ws-123"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Event)
		want   bool
	}{
		{"complete event", func(e *Event) {}, true},
		{"missing type", func(e *Event) { e.Type = "" }, false},
		{"missing member", func(e *Event) { e.Member = nil }, false},
		{"missing member id", func(e *Event) { e.Member.ID = "" }, false},
		{"missing member email", func(e *Event) { e.Member.Email = "" }, false},
		{"missing workspace", func(e *Event) { e.Workspace = nil }, false},
		{"missing workspace id", func(e *Event) { e.Workspace.ID = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := valid()
			tt.mutate(ev)
			if got := ev.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}

	var nilEvent *Event
	if nilEvent.Valid() {
		t.Error("nil event should be invalid")
	}
}
