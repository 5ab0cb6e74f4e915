// Package doctor validates vestibule configuration and, when given a
// platform client, verifies the configured credentials with a live
// workspace members query.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mattjoyce/vestibule/internal/config"
	"github.com/mattjoyce/vestibule/internal/platform"
)

// MemberLister is the slice of the platform client doctor needs.
type MemberLister interface {
	WorkspaceMembers(ctx context.Context, workspaceID string) ([]platform.Member, error)
}

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`

	// MemberCount is set when the live credential check succeeds.
	MemberCount int `json:"member_count,omitempty"`
	Checked     bool `json:"credentials_checked"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration against the remote platform.
type Doctor struct {
	cfg *config.Config
	api MemberLister
}

// New creates a Doctor. api may be nil to skip the live check.
func New(cfg *config.Config, api MemberLister) *Doctor {
	return &Doctor{cfg: cfg, api: api}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context) *Result {
	r := &Result{Valid: true}

	d.validatePlatform(r)
	d.validateWebhook(r)
	d.warnTrustBoundaries(r)
	d.checkCredentials(ctx, r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validatePlatform checks required platform connection fields.
func (d *Doctor) validatePlatform(r *Result) {
	if d.cfg.Platform.APIURL == "" {
		d.addError(r, "platform", "platform.api_url", "api_url is required")
	} else if u, err := url.Parse(d.cfg.Platform.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		d.addError(r, "platform", "platform.api_url", fmt.Sprintf("%q is not an absolute URL", d.cfg.Platform.APIURL))
	}
	if d.cfg.Platform.APIToken == "" {
		d.addError(r, "platform", "platform.api_token",
			fmt.Sprintf("api_token is required (or set %s)", config.EnvAPIToken))
	}
	if d.cfg.Platform.WorkspaceID == "" {
		d.addError(r, "platform", "platform.workspace_id", "workspace_id is required")
	}
}

// validateWebhook checks the inbound endpoint settings.
func (d *Doctor) validateWebhook(r *Result) {
	if !strings.HasPrefix(d.cfg.Webhook.Path, "/") {
		d.addError(r, "webhook", "webhook.path",
			fmt.Sprintf("path %q must start with '/'", d.cfg.Webhook.Path))
	}
	if d.cfg.Webhook.MaxBodySize <= 0 {
		d.addError(r, "webhook", "webhook.max_body_size", "max_body_size must be positive")
	}
	if d.cfg.Webhook.PublicBaseURL != "" {
		if u, err := url.Parse(d.cfg.Webhook.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			d.addError(r, "webhook", "webhook.public_base_url",
				fmt.Sprintf("%q is not an absolute URL", d.cfg.Webhook.PublicBaseURL))
		}
	}
}

// warnTrustBoundaries flags configurations that work but weaken the
// service's guarantees.
func (d *Doctor) warnTrustBoundaries(r *Result) {
	if d.cfg.Webhook.Secret == "" {
		d.addWarning(r, "webhook", "webhook.secret",
			fmt.Sprintf("no secret configured; webhook requests are accepted unauthenticated (or set %s)", config.EnvWebhookSecret))
	}
	if d.cfg.Webhook.PublicBaseURL == "" {
		d.addWarning(r, "webhook", "webhook.public_base_url",
			"no public base URL; subscription reconciliation will be skipped")
	}
	if d.cfg.Service.DedupeTTL <= 0 {
		d.addWarning(r, "service", "service.dedupe_ttl",
			"dedupe cache disabled; duplicate deliveries will re-run provisioning")
	}
}

// checkCredentials verifies the token with a live members query.
func (d *Doctor) checkCredentials(ctx context.Context, r *Result) {
	if d.api == nil || len(r.Errors) > 0 {
		return
	}
	members, err := d.api.WorkspaceMembers(ctx, d.cfg.Platform.WorkspaceID)
	r.Checked = true
	if err != nil {
		d.addError(r, "credentials", "platform.api_token",
			fmt.Sprintf("workspace members query failed: %v", err))
		return
	}
	r.MemberCount = len(members)
}

// FormatHuman renders a result for terminal output.
func FormatHuman(r *Result) string {
	var b strings.Builder

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
	}

	if r.Checked && len(r.Errors) == 0 {
		fmt.Fprintf(&b, "Credentials OK: workspace has %d member(s)\n", r.MemberCount)
	}
	if r.Valid {
		b.WriteString("Status: configuration check PASSED\n")
	} else {
		b.WriteString("Status: configuration check FAILED\n")
	}
	return b.String()
}

// FormatJSON renders a result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
