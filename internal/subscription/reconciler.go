// Package subscription keeps exactly one notification subscription for
// the join event pointed at this service's callback URL.
package subscription

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mattjoyce/vestibule/internal/platform"
)

// API is the slice of the platform client the reconciler needs.
type API interface {
	Subscriptions(ctx context.Context, workspaceID string) ([]platform.Subscription, error)
	CreateSubscription(ctx context.Context, workspaceID string, eventTypes []string, callbackURL, secret string) (*platform.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
}

// Config holds reconciler settings.
type Config struct {
	WorkspaceID string
	EventType   string

	// PublicBaseURL is the externally reachable base address of this
	// service. Empty disables reconciliation entirely.
	PublicBaseURL string

	// HookPath is the path the webhook server listens on.
	HookPath string

	// Secret, when set, must be synchronized onto the subscription. The
	// platform offers no way to read a subscription's secret back, so a
	// matching subscription is destroyed and recreated to guarantee it.
	Secret string
}

// Reconciler converges the workspace's notification subscriptions.
type Reconciler struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// New creates a Reconciler.
func New(api API, cfg Config, logger *slog.Logger) *Reconciler {
	if cfg.EventType == "" {
		cfg.EventType = platform.EventMemberJoined
	}
	return &Reconciler{api: api, cfg: cfg, logger: logger}
}

// CallbackURL joins a public base address and hook path.
func CallbackURL(baseURL, hookPath string) string {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(hookPath, "/") {
		hookPath = "/" + hookPath
	}
	return base + hookPath
}

// Reconcile runs once, at startup or on demand. It returns the
// subscription now serving the join event, or nil when reconciliation
// was skipped for lack of a public address.
func (r *Reconciler) Reconcile(ctx context.Context) (*platform.Subscription, error) {
	if r.cfg.PublicBaseURL == "" {
		r.logger.Warn("no public base URL configured, cannot build a callback URL; skipping subscription reconciliation")
		return nil, nil
	}

	callbackURL := CallbackURL(r.cfg.PublicBaseURL, r.cfg.HookPath)

	subs, err := r.api.Subscriptions(ctx, r.cfg.WorkspaceID)
	if err != nil {
		return nil, err
	}

	found := r.match(subs, callbackURL)
	if found != nil {
		if r.cfg.Secret == "" {
			r.logger.Info("reusing existing subscription",
				"subscription_id", found.ID,
				"callback_url", callbackURL,
			)
			return found, nil
		}
		// No read-back for the signing secret, so the only safe way to
		// guarantee it matches is destroy-and-recreate.
		r.logger.Info("recreating subscription to synchronize signing secret",
			"subscription_id", found.ID,
			"callback_url", callbackURL,
		)
		if err := r.api.DeleteSubscription(ctx, found.ID); err != nil {
			return nil, err
		}
	}

	created, err := r.api.CreateSubscription(ctx, r.cfg.WorkspaceID,
		[]string{r.cfg.EventType}, callbackURL, r.cfg.Secret)
	if err != nil {
		return nil, err
	}

	r.logger.Info("subscription created",
		"subscription_id", created.ID,
		"event_type", r.cfg.EventType,
		"callback_url", callbackURL,
		"signed", r.cfg.Secret != "",
	)
	return created, nil
}

// match finds a subscription covering the join event with a webhook
// channel at exactly the expected callback URL.
func (r *Reconciler) match(subs []platform.Subscription, callbackURL string) *platform.Subscription {
	for i := range subs {
		sub := &subs[i]
		if !containsString(sub.EventTypes, r.cfg.EventType) {
			continue
		}
		for _, ch := range sub.Channels {
			if ch.Type == platform.ChannelTypeWebhook && ch.CallbackURL == callbackURL {
				return sub
			}
		}
	}
	return nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
