package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"serviceshop/internal/core/id"
	"serviceshop/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the size above which changes are stored compressed.
const DefaultCompressThreshold = 10 * 1024

// Compile-time checks.
var (
	_ audit.Recorder = (*AuditService)(nil)
	_ audit.History  = (*AuditService)(nil)
)

// auditRow represents a single sys_audit row.
type auditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          string          `db:"entity_id"`
	Action            string          `db:"action"`
	UserID            string          `db:"user_id"`
	RequestID         string          `db:"request_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService writes the ledger audit trail inside the caller's transaction.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates a new audit service.
// Changes larger than compressThreshold bytes are stored zstd-compressed.
func NewAuditService(txManager *TxManager, compressThreshold int) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
	}, nil
}

// encode prepares the changes column pair for storage.
func (s *AuditService) encode(changes json.RawMessage) (json.RawMessage, []byte, CompressionAlgo) {
	if len(changes) > s.compressThreshold {
		return nil, s.encoder.EncodeAll(changes, nil), CompressionZstd
	}
	return changes, nil, CompressionNone
}

// decode restores the changes column pair.
func (s *AuditService) decode(row *auditRow) (json.RawMessage, error) {
	if row.CompressionAlgo == CompressionZstd && len(row.ChangesCompressed) > 0 {
		decompressed, err := s.decoder.DecodeAll(row.ChangesCompressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress changes: %w", err)
		}
		return decompressed, nil
	}
	return row.Changes, nil
}

// Record implements audit.Recorder.
func (s *AuditService) Record(ctx context.Context, entry audit.Entry) error {
	changesJSON, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	row := auditRow{
		ID:         id.New(),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     string(entry.Action),
		UserID:     entry.UserID,
		RequestID:  audit.RequestOf(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	row.Changes, row.ChangesCompressed, row.CompressionAlgo = s.encode(changesJSON)

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id, request_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		row.ID, row.EntityType, row.EntityID, row.Action, row.UserID, row.RequestID,
		row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// History implements audit.History.
func (s *AuditService) History(ctx context.Context, entityType, entityID string, limit int) ([]audit.TrailEntry, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, user_id, request_id,
			   changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := make([]audit.TrailEntry, 0)
	for rows.Next() {
		var r auditRow
		err := rows.Scan(
			&r.ID, &r.EntityType, &r.EntityID, &r.Action, &r.UserID, &r.RequestID,
			&r.Changes, &r.ChangesCompressed, &r.CompressionAlgo, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		changes, err := s.decode(&r)
		if err != nil {
			return nil, err
		}

		entries = append(entries, audit.TrailEntry{
			ID:         r.ID.String(),
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     audit.Action(r.Action),
			UserID:     r.UserID,
			RequestID:  r.RequestID,
			Changes:    changes,
			CreatedAt:  r.CreatedAt,
		})
	}

	return entries, rows.Err()
}
