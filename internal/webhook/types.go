package webhook

import (
	"github.com/mattjoyce/vestibule/internal/provision"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw body.
const SignatureHeader = "x-webhook-signature"

// Statuses reported on 200 responses.
const (
	StatusProvisioned = "provisioned"
	StatusIgnored     = "ignored"
)

// ProvisionedResponse is the JSON response for a provisioned event.
type ProvisionedResponse struct {
	Status string `json:"status"`
	provision.Result
}

// IgnoredResponse is the JSON response for a filtered event type.
type IgnoredResponse struct {
	Status    string `json:"status"`
	EventType string `json:"eventType,omitempty"`
}

// ErrorResponse is the JSON response for webhook errors. Error is a
// machine-stable category; Message is for humans.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthzResponse is the JSON response for GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
