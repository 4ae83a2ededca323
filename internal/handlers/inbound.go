package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/rylie-seo/vendor-relay/internal/metrics"
	"github.com/rylie-seo/vendor-relay/internal/models"
)

// ReceiveReport handles vendor-delivered SEO reports.
func (h *RelayHandler) ReceiveReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	br, err := newBoundaryRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.authenticateVendor(ctx, w, br) {
		metrics.MessagesTotal.WithLabelValues(models.DirectionInbound, models.MessageTypeReport, "rejected").Inc()
		return
	}

	var report models.SeoReport
	if err := json.Unmarshal(br.RawBody, &report); err != nil || report.RequestID == "" {
		writeError(w, http.StatusBadRequest, "Invalid report payload")
		return
	}

	if h.isDuplicate(ctx, models.MessageTypeReport, report.RequestID, br) {
		writeJSON(w, http.StatusOK, models.AckResponse{Success: true, Message: "Report received successfully"})
		return
	}

	raw := decodeRaw(br.RawBody)
	h.auditMessage(ctx, newCommunication(
		models.DirectionInbound, models.MessageTypeReport,
		report.RequestID, br.Signature, br.SourceIP, raw, h.now(),
	))

	sanitized := h.redactor.Redact(raw)
	if err := h.notifier.ReportReceived(ctx, report.RequestID, sanitized); err != nil {
		h.logger.ErrorContext(ctx, "report hand-off failed", "error", err, "request_id", report.RequestID)
	}

	metrics.MessagesTotal.WithLabelValues(models.DirectionInbound, models.MessageTypeReport, "accepted").Inc()
	writeJSON(w, http.StatusOK, models.AckResponse{Success: true, Message: "Report received successfully"})
}

// ReceivePublish handles vendor notifications that content went live.
func (h *RelayHandler) ReceivePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	br, err := newBoundaryRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.authenticateVendor(ctx, w, br) {
		metrics.MessagesTotal.WithLabelValues(models.DirectionInbound, models.MessageTypePublish, "rejected").Inc()
		return
	}

	var notification models.PublishNotification
	if err := json.Unmarshal(br.RawBody, &notification); err != nil || notification.RequestID == "" {
		writeError(w, http.StatusBadRequest, "Invalid publish notification payload")
		return
	}

	if h.isDuplicate(ctx, models.MessageTypePublish, notification.RequestID, br) {
		writeJSON(w, http.StatusOK, models.AckResponse{Success: true, Message: "Publish notification received successfully"})
		return
	}

	raw := decodeRaw(br.RawBody)
	h.auditMessage(ctx, newCommunication(
		models.DirectionInbound, models.MessageTypePublish,
		notification.RequestID, br.Signature, br.SourceIP, raw, h.now(),
	))

	sanitized := h.redactor.Redact(raw)
	if err := h.notifier.ContentPublished(ctx, notification.RequestID, sanitized); err != nil {
		h.logger.ErrorContext(ctx, "publish hand-off failed", "error", err, "request_id", notification.RequestID)
	}

	metrics.MessagesTotal.WithLabelValues(models.DirectionInbound, models.MessageTypePublish, "accepted").Inc()
	writeJSON(w, http.StatusOK, models.AckResponse{Success: true, Message: "Publish notification received successfully"})
}

// ReceiveFile handles vendor-delivered binaries (PDF reports, images).
// The signature covers the raw multipart body; the audit record carries
// file metadata only, never content.
func (h *RelayHandler) ReceiveFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	br, err := newBoundaryRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.authenticateVendor(ctx, w, br) {
		metrics.MessagesTotal.WithLabelValues(models.DirectionInbound, models.MessageTypeFile, "rejected").Inc()
		return
	}

	upload, err := parseFileUpload(r.Header.Get("Content-Type"), br.RawBody)
	if err != nil || upload.RequestID == "" {
		writeError(w, http.StatusBadRequest, "Invalid file upload")
		return
	}

	if h.isDuplicate(ctx, models.MessageTypeFile, upload.RequestID, br) {
		writeJSON(w, http.StatusOK, models.AckResponse{Success: true, Message: "File received successfully"})
		return
	}

	meta := map[string]interface{}{
		"request_id":   upload.RequestID,
		"file_type":    upload.FileType,
		"filename":     upload.Filename,
		"content_type": upload.ContentType,
		"size":         upload.Size,
	}
	h.auditMessage(ctx, newCommunication(
		models.DirectionInbound, models.MessageTypeFile,
		upload.RequestID, br.Signature, br.SourceIP, meta, h.now(),
	))

	if err := h.notifier.FileReceived(ctx, upload.RequestID, h.redactor.Redact(meta)); err != nil {
		h.logger.ErrorContext(ctx, "file hand-off failed", "error", err, "request_id", upload.RequestID)
	}

	metrics.MessagesTotal.WithLabelValues(models.DirectionInbound, models.MessageTypeFile, "accepted").Inc()
	writeJSON(w, http.StatusOK, models.AckResponse{Success: true, Message: "File received successfully"})
}

// isDuplicate consults the idempotency store. Duplicates are acknowledged
// but not re-audited or re-forwarded; a broken store degrades open.
func (h *RelayHandler) isDuplicate(ctx context.Context, messageType, requestID string, br *BoundaryRequest) bool {
	seen, err := h.seen.Seen(ctx, messageType, requestID, br.Signature)
	if err != nil {
		h.logger.WarnContext(ctx, "idempotency store unavailable", "error", err)
		return false
	}
	if seen {
		metrics.DuplicateDeliveries.Inc()
		h.logger.InfoContext(ctx, "suppressed duplicate delivery",
			"message_type", messageType, "request_id", requestID, "source_ip", br.SourceIP)
	}
	return seen
}

// decodeRaw re-decodes the verbatim body into generic JSON for auditing and
// redaction. The body already passed typed decoding, so this cannot fail;
// a defensive empty map keeps the audit record well-formed regardless.
func decodeRaw(body []byte) map[string]interface{} {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return map[string]interface{}{}
	}
	return raw
}

// parseFileUpload extracts the file part and form fields from the captured
// multipart body.
func parseFileUpload(contentType string, body []byte) (*models.FileUpload, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	upload := &models.FileUpload{}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch part.FormName() {
		case "file":
			content, err := io.ReadAll(part)
			if err != nil {
				return nil, err
			}
			upload.Filename = part.FileName()
			upload.ContentType = part.Header.Get("Content-Type")
			upload.Bytes = content
			upload.Size = int64(len(content))
		case "request_id":
			value, err := io.ReadAll(part)
			if err != nil {
				return nil, err
			}
			upload.RequestID = string(value)
		case "file_type":
			value, err := io.ReadAll(part)
			if err != nil {
				return nil, err
			}
			upload.FileType = string(value)
		}
	}

	return upload, nil
}
