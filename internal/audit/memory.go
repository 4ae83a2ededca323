package audit

import (
	"context"
	"sync"

	"github.com/rylie-seo/vendor-relay/internal/models"
)

// InMemoryRepository backs tests and local development.
type InMemoryRepository struct {
	records     map[string]*models.VendorCommunication
	byRequestID map[string][]string
	mu          sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records:     make(map[string]*models.VendorCommunication),
		byRequestID: make(map[string][]string),
	}
}

func (r *InMemoryRepository) Record(ctx context.Context, comm *models.VendorCommunication) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *comm
	r.records[comm.ID] = &stored
	if comm.RequestID != "" {
		r.byRequestID[comm.RequestID] = append(r.byRequestID[comm.RequestID], comm.ID)
	}
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*models.VendorCommunication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comm, exists := r.records[id]
	if !exists {
		return nil, ErrRecordNotFound
	}
	out := *comm
	return &out, nil
}

func (r *InMemoryRepository) ListByRequestID(ctx context.Context, requestID string) ([]*models.VendorCommunication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byRequestID[requestID]
	out := make([]*models.VendorCommunication, 0, len(ids))
	for _, id := range ids {
		comm := *r.records[id]
		out = append(out, &comm)
	}
	return out, nil
}

func (r *InMemoryRepository) MarkProcessed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comm, exists := r.records[id]
	if !exists {
		return ErrRecordNotFound
	}
	comm.Processed = true
	return nil
}

func (r *InMemoryRepository) Close() {}

// All returns every stored record. Test helper.
func (r *InMemoryRepository) All() []*models.VendorCommunication {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.VendorCommunication, 0, len(r.records))
	for _, comm := range r.records {
		c := *comm
		out = append(out, &c)
	}
	return out
}
