// Package audit persists one record per message crossing the trust boundary.
package audit

import (
	"context"
	"errors"

	"github.com/rylie-seo/vendor-relay/internal/models"
)

var ErrRecordNotFound = errors.New("communication record not found")

// Repository is the audit sink. Records are append-only from the relay's
// point of view; only the downstream processing pipeline flips Processed.
type Repository interface {
	Record(ctx context.Context, comm *models.VendorCommunication) error
	GetByID(ctx context.Context, id string) (*models.VendorCommunication, error)
	ListByRequestID(ctx context.Context, requestID string) ([]*models.VendorCommunication, error)
	MarkProcessed(ctx context.Context, id string) error
	Close()
}
