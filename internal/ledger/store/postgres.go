package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"paychain/internal/ledger/models"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
)

// Postgres persists the ledger in PostgreSQL. The store is pure I/O; balance
// policy and recipient resolution live in the service.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateAccount(ctx context.Context, account *models.Account) error {
	const query = `
		INSERT INTO accounts (id, principal, balance, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query,
		account.ID.String(), account.Principal, account.Balance, account.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Postgres) FindAccount(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	const query = `
		SELECT id, principal, balance, created_at
		FROM accounts
		WHERE id = $1
	`
	return scanAccount(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Postgres) FindAccountByPrincipal(ctx context.Context, principal string) (*models.Account, error) {
	const query = `
		SELECT id, principal, balance, created_at
		FROM accounts
		WHERE principal = $1
	`
	return scanAccount(s.db.QueryRowContext(ctx, query, principal))
}

func (s *Postgres) Balance(ctx context.Context, id domain.AccountID) (decimal.Decimal, error) {
	const query = `SELECT balance FROM accounts WHERE id = $1`
	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, sentinel.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("account balance: %w", err)
	}
	return balance, nil
}

// ApplyTransfer runs debit, credit, transfer insert and optional link insert
// in a single transaction, so a failure at any step rolls everything back.
func (s *Postgres) ApplyTransfer(ctx context.Context, transfer *models.Transfer, link *models.RuleTransferLink) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = adjustBalance(ctx, tx, transfer.From, transfer.Amount.Neg()); err != nil {
		return err
	}
	if err = adjustBalance(ctx, tx, transfer.To, transfer.Amount); err != nil {
		return err
	}

	var ruleID sql.NullString
	if transfer.RuleID != nil {
		ruleID = sql.NullString{String: transfer.RuleID.String(), Valid: true}
	}
	const insertTransfer = `
		INSERT INTO transfers (id, from_account, to_account, amount, description, rule_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err = tx.ExecContext(ctx, insertTransfer,
		transfer.ID.String(), transfer.From.String(), transfer.To.String(),
		transfer.Amount, transfer.Description, ruleID, transfer.CreatedAt); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}

	if link != nil {
		const insertLink = `
			INSERT INTO rule_transfer_links (rule_id, transfer_id, processed_at)
			VALUES ($1, $2, $3)
		`
		if _, err = tx.ExecContext(ctx, insertLink,
			link.RuleID.String(), link.TransferID.String(), link.ProcessedAt); err != nil {
			return fmt.Errorf("insert rule transfer link: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

func adjustBalance(ctx context.Context, tx *sql.Tx, id domain.AccountID, delta decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2`,
		delta, id.String())
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindTransfer(ctx context.Context, id domain.TransferID) (*models.Transfer, error) {
	const query = `
		SELECT id, from_account, to_account, amount, description, rule_id, created_at
		FROM transfers
		WHERE id = $1
	`
	return scanTransfer(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Postgres) ListTransfers(ctx context.Context) ([]*models.Transfer, error) {
	const query = `
		SELECT id, from_account, to_account, amount, description, rule_id, created_at
		FROM transfers
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	return collectTransfers(rows)
}

func (s *Postgres) ListTransfersByAccount(ctx context.Context, id domain.AccountID) ([]*models.Transfer, error) {
	const query = `
		SELECT id, from_account, to_account, amount, description, rule_id, created_at
		FROM transfers
		WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("list transfers by account: %w", err)
	}
	defer rows.Close()
	return collectTransfers(rows)
}

func (s *Postgres) RuleHasTransfers(ctx context.Context, id domain.RuleID) (bool, error) {
	const query = `SELECT 1 FROM rule_transfer_links WHERE rule_id = $1 LIMIT 1`
	var one int
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rule has transfers: %w", err)
	}
	return true, nil
}

func (s *Postgres) CountRuleTransfers(ctx context.Context, id domain.RuleID) (int, error) {
	const query = `SELECT COUNT(*) FROM rule_transfer_links WHERE rule_id = $1`
	var n int
	if err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rule transfers: %w", err)
	}
	return n, nil
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		account models.Account
		rawID   string
	)
	err := row.Scan(&rawID, &account.Principal, &account.Balance, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	id, err := domain.ParseAccountID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan account id: %w", err)
	}
	account.ID = id
	return &account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransferRow(row rowScanner) (*models.Transfer, error) {
	var (
		transfer    models.Transfer
		rawID       string
		rawFrom     string
		rawTo       string
		rawRule     sql.NullString
		description sql.NullString
	)
	if err := row.Scan(&rawID, &rawFrom, &rawTo, &transfer.Amount, &description, &rawRule, &transfer.CreatedAt); err != nil {
		return nil, err
	}
	transferID, err := domain.ParseTransferID(rawID)
	if err != nil {
		return nil, err
	}
	from, err := domain.ParseAccountID(rawFrom)
	if err != nil {
		return nil, err
	}
	to, err := domain.ParseAccountID(rawTo)
	if err != nil {
		return nil, err
	}
	transfer.ID = transferID
	transfer.From = from
	transfer.To = to
	transfer.Description = description.String
	if rawRule.Valid {
		ruleID, err := domain.ParseRuleID(rawRule.String)
		if err != nil {
			return nil, err
		}
		transfer.RuleID = &ruleID
	}
	return &transfer, nil
}

func scanTransfer(row *sql.Row) (*models.Transfer, error) {
	transfer, err := scanTransferRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transfer: %w", err)
	}
	return transfer, nil
}

func collectTransfers(rows *sql.Rows) ([]*models.Transfer, error) {
	var out []*models.Transfer
	for rows.Next() {
		transfer, err := scanTransferRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return out, nil
}

var _ Store = (*Postgres)(nil)
