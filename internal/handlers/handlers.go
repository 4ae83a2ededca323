// Package handlers orchestrates the trust-boundary pipeline around each
// message class. Guards are composed explicitly and short-circuit on first
// failure; there is no framework dependency injection to trace through.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rylie-seo/vendor-relay/internal/audit"
	"github.com/rylie-seo/vendor-relay/internal/guard"
	"github.com/rylie-seo/vendor-relay/internal/idempotency"
	"github.com/rylie-seo/vendor-relay/internal/logging"
	"github.com/rylie-seo/vendor-relay/internal/metrics"
	"github.com/rylie-seo/vendor-relay/internal/models"
	"github.com/rylie-seo/vendor-relay/internal/notifier"
	"github.com/rylie-seo/vendor-relay/internal/redact"
	"github.com/rylie-seo/vendor-relay/internal/relay"
	"github.com/rylie-seo/vendor-relay/internal/tokens"
)

const (
	ServiceName    = "Rylie SEO Vendor Relay"
	ServiceVersion = "1.0.0"
)

// RelayHandler holds the immutable collaborators established at startup.
// Every request is an independent unit of work; no handler state is
// mutated after construction.
type RelayHandler struct {
	signer          *guard.Signer
	allowlist       *guard.Allowlist
	freshnessWindow time.Duration
	verifier        *tokens.Verifier
	redactor        *redact.Redactor
	vendor          *relay.Client
	repo            audit.Repository
	notifier        notifier.Notifier
	seen            idempotency.Store
	logger          *logging.Logger
	now             func() time.Time
}

type Options struct {
	Signer          *guard.Signer
	Allowlist       *guard.Allowlist
	FreshnessWindow time.Duration
	Verifier        *tokens.Verifier
	Redactor        *redact.Redactor
	Vendor          *relay.Client
	Repo            audit.Repository
	Notifier        notifier.Notifier
	Seen            idempotency.Store
	Logger          *logging.Logger
}

func NewRelayHandler(opts Options) *RelayHandler {
	h := &RelayHandler{
		signer:          opts.Signer,
		allowlist:       opts.Allowlist,
		freshnessWindow: opts.FreshnessWindow,
		verifier:        opts.Verifier,
		redactor:        opts.Redactor,
		vendor:          opts.Vendor,
		repo:            opts.Repo,
		notifier:        opts.Notifier,
		seen:            opts.Seen,
		logger:          opts.Logger,
		now:             time.Now,
	}
	if h.freshnessWindow <= 0 {
		h.freshnessWindow = guard.DefaultFreshnessWindow
	}
	if h.redactor == nil {
		h.redactor = redact.Default()
	}
	if h.notifier == nil {
		h.notifier = notifier.Noop{}
	}
	if h.seen == nil {
		h.seen = idempotency.Disabled{}
	}
	return h
}

// Root is the liveness/identity probe.
func (h *RelayHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
		"version": ServiceVersion,
	})
}

// authenticateVendor runs the inbound guard chain: network provenance,
// then signature, then freshness. Returns false after writing the error
// response. Rejections are logged with the source IP and never downgraded.
func (h *RelayHandler) authenticateVendor(ctx context.Context, w http.ResponseWriter, br *BoundaryRequest) bool {
	if !h.allowlist.Allowed(br.SourceIP) {
		h.logger.WarnContext(ctx, "IP not in allowlist", "source_ip", br.SourceIP)
		metrics.GuardRejections.WithLabelValues("provenance", "ip_denied").Inc()
		writeError(w, http.StatusForbidden, "IP not in allowlist")
		return false
	}

	if br.Signature == "" || br.Timestamp == "" {
		h.logger.WarnContext(ctx, "missing signature headers", "source_ip", br.SourceIP)
		metrics.GuardRejections.WithLabelValues("signature", "missing_headers").Inc()
		writeError(w, http.StatusUnauthorized, "Missing signature headers")
		return false
	}

	if !h.signer.Verify(br.Timestamp, br.RawBody, br.Signature) {
		h.logger.WarnContext(ctx, "invalid HMAC signature", "source_ip", br.SourceIP)
		metrics.GuardRejections.WithLabelValues("signature", "invalid").Inc()
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return false
	}

	switch guard.CheckFreshness(br.Timestamp, h.now(), h.freshnessWindow) {
	case guard.FreshnessExpired:
		h.logger.WarnContext(ctx, "expired timestamp", "source_ip", br.SourceIP)
		metrics.GuardRejections.WithLabelValues("freshness", "expired").Inc()
		writeError(w, http.StatusUnauthorized, "Expired timestamp")
		return false
	case guard.FreshnessMalformed:
		h.logger.WarnContext(ctx, "malformed timestamp", "source_ip", br.SourceIP)
		metrics.GuardRejections.WithLabelValues("freshness", "malformed").Inc()
		writeError(w, http.StatusUnauthorized, "Invalid timestamp format")
		return false
	}

	return true
}

// auditMessage writes the verbatim (pre-redaction) audit record. The
// relay's success response does not depend on the sink, but a failed write
// is never silent.
func (h *RelayHandler) auditMessage(ctx context.Context, comm *models.VendorCommunication) {
	if err := h.repo.Record(ctx, comm); err != nil {
		metrics.AuditWriteErrors.Inc()
		h.logger.ErrorContext(ctx, "failed to write audit record",
			"error", err, "message_type", comm.MessageType, "direction", comm.Direction)
	}
}

func newCommunication(direction, messageType, requestID, signature, sourceIP string, payload map[string]interface{}, now time.Time) *models.VendorCommunication {
	return &models.VendorCommunication{
		ID:            uuid.New().String(),
		RequestID:     requestID,
		Direction:     direction,
		MessageType:   messageType,
		Payload:       payload,
		HMACSignature: signature,
		IPAddress:     sourceIP,
		Processed:     false,
		CreatedAt:     now.UTC(),
	}
}
