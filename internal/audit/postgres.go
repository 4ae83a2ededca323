package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rylie-seo/vendor-relay/internal/models"
)

// opTimeout bounds every audit write so a slow database cannot stall the
// relay.
const opTimeout = 5 * time.Second

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) Record(ctx context.Context, comm *models.VendorCommunication) error {
	// Discard-on-cancel: a caller that disconnected before the write
	// starts gets no partial audit record.
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	payload, err := json.Marshal(comm.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO vendor_communications
			(id, request_id, direction, message_type, payload, hmac_signature, ip_address, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		comm.ID, nullable(comm.RequestID), comm.Direction, comm.MessageType,
		payload, nullable(comm.HMACSignature), nullable(comm.IPAddress),
		comm.Processed, comm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record communication: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.VendorCommunication, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, request_id, direction, message_type, payload, hmac_signature, ip_address, processed, created_at
		FROM vendor_communications
		WHERE id = $1
	`

	comm, err := scanCommunication(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get communication: %w", err)
	}

	return comm, nil
}

func (r *PostgresRepository) ListByRequestID(ctx context.Context, requestID string) ([]*models.VendorCommunication, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, request_id, direction, message_type, payload, hmac_signature, ip_address, processed, created_at
		FROM vendor_communications
		WHERE request_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list communications: %w", err)
	}
	defer rows.Close()

	var out []*models.VendorCommunication
	for rows.Next() {
		comm, err := scanCommunication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan communication: %w", err)
		}
		out = append(out, comm)
	}

	return out, rows.Err()
}

func (r *PostgresRepository) MarkProcessed(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE vendor_communications SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommunication(row rowScanner) (*models.VendorCommunication, error) {
	var comm models.VendorCommunication
	var requestID, signature, ipAddress *string
	var payload []byte

	err := row.Scan(
		&comm.ID, &requestID, &comm.Direction, &comm.MessageType,
		&payload, &signature, &ipAddress, &comm.Processed, &comm.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if requestID != nil {
		comm.RequestID = *requestID
	}
	if signature != nil {
		comm.HMACSignature = *signature
	}
	if ipAddress != nil {
		comm.IPAddress = *ipAddress
	}
	if err := json.Unmarshal(payload, &comm.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return &comm, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
