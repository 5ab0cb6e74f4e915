// Package webhook implements the inbound event endpoint with
// HMAC-SHA256 verification.
//
// The workspace platform POSTs member events here. Each request is
// authenticated (when a secret is configured), structurally validated,
// filtered to the join event, and handed to the provisioner behind a
// duplicate-delivery guard.
//
// # Security Model
//
// - HMAC-SHA256 signatures verified using crypto/subtle (constant-time comparison)
// - Signatures computed over the exact raw body bytes, before JSON parsing
// - Body size limits enforced to prevent DoS attacks
// - No signature details leaked in error responses (always generic 401)
// - No configured secret means requests are accepted unauthenticated;
//   that is a documented trust boundary, not a bug
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured hook path
//  2. Body size checked (reject with 413 if too large)
//  3. HMAC-SHA256 verified when a secret is configured (401 on mismatch)
//  4. Payload decoded and structurally validated (400 on deviation)
//  5. Non-join event types acknowledged with {"status":"ignored"}
//  6. Provisioner invoked through the dedupe guard
//  7. 200 with {"status":"provisioned", ...} or 500 with {error, message}
package webhook
