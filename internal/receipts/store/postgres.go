package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"paychain/internal/receipts/models"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
)

// Postgres persists receipts in PostgreSQL. The snapshot column is JSONB; a
// unique index on transfer_id enforces one receipt per transfer.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed receipt store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, receipt *models.Receipt) error {
	snapshot, err := json.Marshal(receipt.Snapshot)
	if err != nil {
		return fmt.Errorf("encode receipt snapshot: %w", err)
	}
	const query = `
		INSERT INTO receipts (id, transfer_id, account_id, image_url, snapshot, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		receipt.ID.String(), receipt.TransferID.String(), receipt.AccountID.String(),
		receipt.ImageURL, snapshot, receipt.IssuedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

func (s *Postgres) FindByTransfer(ctx context.Context, transferID domain.TransferID) (*models.Receipt, error) {
	const query = `
		SELECT id, transfer_id, account_id, image_url, snapshot, issued_at
		FROM receipts
		WHERE transfer_id = $1
	`
	receipt, err := scanReceipt(s.db.QueryRowContext(ctx, query, transferID.String()))
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Postgres) ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Receipt, error) {
	const query = `
		SELECT id, transfer_id, account_id, image_url, snapshot, issued_at
		FROM receipts
		WHERE account_id = $1
		ORDER BY issued_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var out []*models.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, receipt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*models.Receipt, error) {
	var (
		receipt    models.Receipt
		id         string
		transferID string
		accountID  string
		snapshot   []byte
	)
	err := row.Scan(&id, &transferID, &accountID, &receipt.ImageURL, &snapshot, &receipt.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan receipt: %w", err)
	}
	if receipt.ID, err = domain.ParseReceiptID(id); err != nil {
		return nil, fmt.Errorf("scan receipt id: %w", err)
	}
	if receipt.TransferID, err = domain.ParseTransferID(transferID); err != nil {
		return nil, fmt.Errorf("scan receipt transfer id: %w", err)
	}
	if receipt.AccountID, err = domain.ParseAccountID(accountID); err != nil {
		return nil, fmt.Errorf("scan receipt account id: %w", err)
	}
	if err := json.Unmarshal(snapshot, &receipt.Snapshot); err != nil {
		return nil, fmt.Errorf("decode receipt snapshot: %w", err)
	}
	return &receipt, nil
}

var _ Store = (*Postgres)(nil)
