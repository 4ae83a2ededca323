package models

import "time"

// Message direction for audit records.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message types carried through the relay.
const (
	MessageTypeTask    = "task"
	MessageTypeReport  = "report"
	MessageTypePublish = "publish"
	MessageTypeFile    = "file"
)

// SeoTask is an internally-originated task request bound for the vendor.
type SeoTask struct {
	RequestID   string                 `json:"request_id"`
	SandboxID   string                 `json:"sandbox_id"`
	TaskType    string                 `json:"task_type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    string                 `json:"priority"`
	Deadline    string                 `json:"deadline,omitempty"`
	Details     map[string]interface{} `json:"details"`
}

// SeoReport is a vendor-originated report delivered to the relay.
type SeoReport struct {
	RequestID  string                 `json:"request_id"`
	ReportType string                 `json:"report_type"`
	Title      string                 `json:"title"`
	Summary    string                 `json:"summary"`
	ReportURL  string                 `json:"report_url,omitempty"`
	Metrics    map[string]interface{} `json:"metrics,omitempty"`
	Details    map[string]interface{} `json:"details"`
}

// PublishNotification announces that vendor-produced content went live.
type PublishNotification struct {
	RequestID    string                 `json:"request_id"`
	PublishType  string                 `json:"publish_type"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	PublishedURL string                 `json:"published_url"`
	PublishDate  string                 `json:"publish_date"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// FileUpload describes a vendor-delivered binary (PDF report, image, ...).
// Bytes are handed to the downstream pipeline; the audit record carries
// metadata only.
type FileUpload struct {
	RequestID   string `json:"request_id"`
	FileType    string `json:"file_type"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Bytes       []byte `json:"-"`
}

// VendorCommunication is one audit record per message crossing the trust
// boundary. Created once per message; only the downstream processing
// pipeline flips Processed.
type VendorCommunication struct {
	ID            string                 `json:"id"`
	RequestID     string                 `json:"request_id,omitempty"`
	Direction     string                 `json:"direction"`
	MessageType   string                 `json:"message_type"`
	Payload       map[string]interface{} `json:"payload"`
	HMACSignature string                 `json:"hmac_signature,omitempty"`
	IPAddress     string                 `json:"ip_address,omitempty"`
	Processed     bool                   `json:"processed"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ErrorResponse is the wire shape for every error the relay returns.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
}

// TaskResponse acknowledges an accepted task submission.
type TaskResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
}

// AckResponse acknowledges an accepted inbound vendor message.
type AckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
