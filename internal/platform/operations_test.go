package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateProjectDecodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["workspaceId"] != "ws-123" || req.Variables["name"] != "john-doe" {
			t.Errorf("variables = %v", req.Variables)
		}
		_, _ = w.Write([]byte(`{"data":{"projectCreate":{"project":{"id":"proj-1","name":"john-doe"}}}}`))
	}))
	defer srv.Close()

	proj, err := testClient(srv).CreateProject(context.Background(), "ws-123", "john-doe")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if proj.ID != "proj-1" || proj.Name != "john-doe" {
		t.Errorf("project = %+v", proj)
	}
}

func TestSubscriptionsDecodesChannels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"workspace":{"subscriptions":[
			{"id":"sub-1","eventTypes":["WorkspaceMember.joined"],"channels":[{"type":"WEBHOOK","callbackUrl":"https://svc.example.com/hooks/workspace"}]}
		]}}}`))
	}))
	defer srv.Close()

	subs, err := testClient(srv).Subscriptions(context.Background(), "ws-123")
	if err != nil {
		t.Fatalf("Subscriptions() error = %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("len(subs) = %d, want 1", len(subs))
	}
	if subs[0].ID != "sub-1" || subs[0].EventTypes[0] != EventMemberJoined {
		t.Errorf("subscription = %+v", subs[0])
	}
	if subs[0].Channels[0].Type != ChannelTypeWebhook || subs[0].Channels[0].CallbackURL != "https://svc.example.com/hooks/workspace" {
		t.Errorf("channel = %+v", subs[0].Channels[0])
	}
}

func TestCreateSubscriptionOmitsEmptySecret(t *testing.T) {
	var vars map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		vars = req.Variables
		_, _ = w.Write([]byte(`{"data":{"subscriptionCreate":{"subscription":{"id":"sub-2"}}}}`))
	}))
	defer srv.Close()

	sub, err := testClient(srv).CreateSubscription(context.Background(), "ws-123",
		[]string{EventMemberJoined}, "https://svc.example.com/hooks/workspace", "")
	if err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}
	if sub.ID != "sub-2" {
		t.Errorf("subscription id = %q", sub.ID)
	}
	if _, present := vars["secret"]; present {
		t.Error("secret variable should be omitted when empty")
	}

	_, err = testClient(srv).CreateSubscription(context.Background(), "ws-123",
		[]string{EventMemberJoined}, "https://svc.example.com/hooks/workspace", "hush")
	if err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}
	if vars["secret"] != "hush" {
		t.Errorf("secret variable = %v, want hush", vars["secret"])
	}
}
