package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rylie-seo/vendor-relay/internal/metrics"
	"github.com/rylie-seo/vendor-relay/internal/models"
	"github.com/rylie-seo/vendor-relay/internal/relay"
	"github.com/rylie-seo/vendor-relay/internal/tokens"
)

// SubmitTask handles internal task submissions bound for the vendor:
// tenant token, tenant binding, outbound audit, signed forward. Outbound
// payloads are platform-originated and are not redacted.
func (h *RelayHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sourceIP := clientIP(r)

	claims, ok := h.authenticateTenant(w, r, sourceIP)
	if !ok {
		metrics.MessagesTotal.WithLabelValues(models.DirectionOutbound, models.MessageTypeTask, "rejected").Inc()
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var task models.SeoTask
	if err := json.Unmarshal(body, &task); err != nil || task.RequestID == "" || task.SandboxID == "" {
		writeError(w, http.StatusBadRequest, "Invalid task payload")
		return
	}

	// Tenant binding: authentication succeeded, but the token must also be
	// authorized for the tenant named in the payload.
	if claims.SandboxID != task.SandboxID {
		h.logger.WarnContext(ctx, "sandbox ID mismatch",
			"source_ip", sourceIP, "token_sandbox", claims.SandboxID, "task_sandbox", task.SandboxID)
		metrics.GuardRejections.WithLabelValues("tenant", "sandbox_mismatch").Inc()
		writeError(w, http.StatusForbidden, "Sandbox ID mismatch")
		return
	}

	h.auditMessage(ctx, newCommunication(
		models.DirectionOutbound, models.MessageTypeTask,
		task.RequestID, "", sourceIP, decodeRaw(body), h.now(),
	))

	start := time.Now()
	_, err = h.vendor.Forward(ctx, "tasks", task)
	metrics.VendorForwardDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var rejected *relay.VendorRejectedError
		switch {
		case errors.As(err, &rejected):
			h.logger.ErrorContext(ctx, "vendor rejected task",
				"status", rejected.StatusCode, "request_id", task.RequestID)
			metrics.VendorForwardErrors.WithLabelValues("rejected").Inc()
			writeError(w, rejected.StatusCode, "Vendor API error: "+rejected.Body)
		case errors.Is(err, relay.ErrVendorUnavailable):
			h.logger.ErrorContext(ctx, "vendor API unavailable",
				"error", err, "request_id", task.RequestID)
			metrics.VendorForwardErrors.WithLabelValues("unavailable").Inc()
			writeError(w, http.StatusServiceUnavailable, "Vendor API unavailable")
		default:
			h.logger.ErrorContext(ctx, "task forward failed",
				"error", err, "request_id", task.RequestID)
			metrics.VendorForwardErrors.WithLabelValues("internal").Inc()
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		metrics.MessagesTotal.WithLabelValues(models.DirectionOutbound, models.MessageTypeTask, "failed").Inc()
		return
	}

	metrics.MessagesTotal.WithLabelValues(models.DirectionOutbound, models.MessageTypeTask, "accepted").Inc()
	writeJSON(w, http.StatusOK, models.TaskResponse{
		Success: true,
		Message: "Task submitted successfully",
		TaskID:  task.RequestID,
		Status:  "pending",
	})
}

// authenticateTenant validates the bearer token and extracts the bound
// tenant claims. Returns false after writing the 401.
func (h *RelayHandler) authenticateTenant(w http.ResponseWriter, r *http.Request, sourceIP string) (*tokens.Claims, bool) {
	ctx := r.Context()

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		h.logger.WarnContext(ctx, "missing authorization header", "source_ip", sourceIP)
		metrics.GuardRejections.WithLabelValues("tenant", "missing_token").Inc()
		writeError(w, http.StatusUnauthorized, "Missing authorization header")
		return nil, false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.WarnContext(ctx, "token validation failed", "source_ip", sourceIP, "error", err)
		metrics.GuardRejections.WithLabelValues("tenant", "invalid_token").Inc()
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return nil, false
	}

	return claims, true
}
