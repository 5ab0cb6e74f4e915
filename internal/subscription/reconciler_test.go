package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mattjoyce/vestibule/internal/platform"
)

type fakeAPI struct {
	subs      []platform.Subscription
	listErr   error
	createErr error
	deleteErr error

	listCalls   int
	createCalls int
	deleteCalls int

	createdURL    string
	createdTypes  []string
	createdSecret string
	deletedID     string
}

func (f *fakeAPI) Subscriptions(ctx context.Context, workspaceID string) ([]platform.Subscription, error) {
	f.listCalls++
	return f.subs, f.listErr
}

func (f *fakeAPI) CreateSubscription(ctx context.Context, workspaceID string, eventTypes []string, callbackURL, secret string) (*platform.Subscription, error) {
	f.createCalls++
	f.createdTypes = eventTypes
	f.createdURL = callbackURL
	f.createdSecret = secret
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &platform.Subscription{
		ID:         "sub-new",
		EventTypes: eventTypes,
		Channels:   []platform.Channel{{Type: platform.ChannelTypeWebhook, CallbackURL: callbackURL}},
	}, nil
}

func (f *fakeAPI) DeleteSubscription(ctx context.Context, id string) error {
	f.deleteCalls++
	f.deletedID = id
	return f.deleteErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func matchingSub(id, url string) platform.Subscription {
	return platform.Subscription{
		ID:         id,
		EventTypes: []string{platform.EventMemberJoined, "WorkspaceMember.removed"},
		Channels:   []platform.Channel{{Type: platform.ChannelTypeWebhook, CallbackURL: url}},
	}
}

func newReconciler(api API, baseURL, secret string) *Reconciler {
	return New(api, Config{
		WorkspaceID:   "ws-123",
		PublicBaseURL: baseURL,
		HookPath:      "/hooks/workspace",
		Secret:        secret,
	}, testLogger())
}

func TestCallbackURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"https://svc.example.com", "/hooks/workspace", "https://svc.example.com/hooks/workspace"},
		{"https://svc.example.com/", "/hooks/workspace", "https://svc.example.com/hooks/workspace"},
		{"https://svc.example.com", "hooks/workspace", "https://svc.example.com/hooks/workspace"},
	}
	for _, tt := range tests {
		if got := CallbackURL(tt.base, tt.path); got != tt.want {
			t.Errorf("CallbackURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestReconcileSkipsWithoutBaseURL(t *testing.T) {
	api := &fakeAPI{}
	r := newReconciler(api, "", "secret")

	sub, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if sub != nil {
		t.Errorf("sub = %+v, want nil", sub)
	}
	if api.listCalls+api.createCalls+api.deleteCalls != 0 {
		t.Error("no remote calls expected when reconciliation is skipped")
	}
}

func TestReconcileCreatesWhenAbsent(t *testing.T) {
	api := &fakeAPI{
		subs: []platform.Subscription{
			// Same event, different URL: not ours.
			matchingSub("sub-other", "https://other.example.com/hooks/workspace"),
			// Same URL, different event set.
			{
				ID:         "sub-removed",
				EventTypes: []string{"WorkspaceMember.removed"},
				Channels:   []platform.Channel{{Type: platform.ChannelTypeWebhook, CallbackURL: "https://svc.example.com/hooks/workspace"}},
			},
		},
	}
	r := newReconciler(api, "https://svc.example.com", "")

	sub, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if api.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", api.createCalls)
	}
	if api.deleteCalls != 0 {
		t.Errorf("deleteCalls = %d, want 0", api.deleteCalls)
	}
	if api.createdURL != "https://svc.example.com/hooks/workspace" {
		t.Errorf("createdURL = %q", api.createdURL)
	}
	if len(api.createdTypes) != 1 || api.createdTypes[0] != platform.EventMemberJoined {
		t.Errorf("createdTypes = %v", api.createdTypes)
	}
	if sub == nil || sub.ID != "sub-new" {
		t.Errorf("sub = %+v", sub)
	}
}

func TestReconcileReusesMatchWithoutSecret(t *testing.T) {
	api := &fakeAPI{
		subs: []platform.Subscription{matchingSub("sub-1", "https://svc.example.com/hooks/workspace")},
	}
	r := newReconciler(api, "https://svc.example.com", "")

	sub, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if api.createCalls != 0 || api.deleteCalls != 0 {
		t.Errorf("create/delete = %d/%d, want 0/0", api.createCalls, api.deleteCalls)
	}
	if sub == nil || sub.ID != "sub-1" {
		t.Errorf("sub = %+v, want existing sub-1", sub)
	}
}

func TestReconcileRecreatesMatchWithSecret(t *testing.T) {
	api := &fakeAPI{
		subs: []platform.Subscription{matchingSub("sub-1", "https://svc.example.com/hooks/workspace")},
	}
	r := newReconciler(api, "https://svc.example.com", "hush")

	sub, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if api.deleteCalls != 1 {
		t.Errorf("deleteCalls = %d, want 1", api.deleteCalls)
	}
	if api.deletedID != "sub-1" {
		t.Errorf("deletedID = %q, want sub-1", api.deletedID)
	}
	if api.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", api.createCalls)
	}
	if api.createdSecret != "hush" {
		t.Errorf("createdSecret = %q", api.createdSecret)
	}
	if sub == nil || sub.ID != "sub-new" {
		t.Errorf("sub = %+v", sub)
	}
}

func TestReconcileListFailurePropagates(t *testing.T) {
	listErr := &platform.CallError{Kind: platform.KindTerminal, Message: "forbidden"}
	api := &fakeAPI{listErr: listErr}
	r := newReconciler(api, "https://svc.example.com", "")

	_, err := r.Reconcile(context.Background())
	if !errors.Is(err, listErr) {
		t.Errorf("error = %v, want original list error", err)
	}
	if api.createCalls != 0 {
		t.Errorf("createCalls = %d, want 0", api.createCalls)
	}
}

func TestReconcileDeleteFailurePropagates(t *testing.T) {
	deleteErr := &platform.CallError{Kind: platform.KindTerminal, Message: "not found"}
	api := &fakeAPI{
		subs:      []platform.Subscription{matchingSub("sub-1", "https://svc.example.com/hooks/workspace")},
		deleteErr: deleteErr,
	}
	r := newReconciler(api, "https://svc.example.com", "hush")

	_, err := r.Reconcile(context.Background())
	if !errors.Is(err, deleteErr) {
		t.Errorf("error = %v, want original delete error", err)
	}
	if api.createCalls != 0 {
		t.Errorf("createCalls = %d, want 0 after delete failure", api.createCalls)
	}
}
