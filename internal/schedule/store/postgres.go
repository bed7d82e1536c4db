package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"paychain/internal/calendar"
	"paychain/internal/schedule/models"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
)

// Postgres persists rules in PostgreSQL. Execute takes a row lock
// (SELECT ... FOR UPDATE) for the duration of the mutation, which is what
// makes overlapping due cycles safe against double-processing.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed rule store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const ruleColumns = `id, account_id, recipient_principal, amount, description, frequency,
	start_date, end_date, max_payments, active, next_due, occurrences_made,
	last_processed, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, rule *models.Rule) error {
	const query = `
		INSERT INTO rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query, ruleArgs(rule)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.RuleID) (*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1`
	rule, err := scanRule(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return rule, err
}

func (s *Postgres) ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE account_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list rules by account: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func (s *Postgres) ListDue(ctx context.Context, asOf time.Time) ([]*models.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE active AND next_due IS NOT NULL AND next_due <= $1
		ORDER BY next_due, id
	`
	rows, err := s.db.QueryContext(ctx, query, calendar.DateOf(asOf))
	if err != nil {
		return nil, fmt.Errorf("list due rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func (s *Postgres) Execute(ctx context.Context, id domain.RuleID, fn func(*models.Rule) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1 FOR UPDATE`
	rule, err := scanRule(tx.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return err
	}

	if err = fn(rule); err != nil {
		return err
	}

	const update = `
		UPDATE rules SET
			account_id = $2, recipient_principal = $3, amount = $4, description = $5,
			frequency = $6, start_date = $7, end_date = $8, max_payments = $9,
			active = $10, next_due = $11, occurrences_made = $12, last_processed = $13,
			created_at = $14, updated_at = $15
		WHERE id = $1
	`
	if _, err = tx.ExecContext(ctx, update, ruleArgs(rule)...); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rule update: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.RuleID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func ruleArgs(rule *models.Rule) []any {
	var endDate, nextDue, lastProcessed sql.NullTime
	if rule.EndDate != nil {
		endDate = sql.NullTime{Time: *rule.EndDate, Valid: true}
	}
	if rule.NextDue != nil {
		nextDue = sql.NullTime{Time: *rule.NextDue, Valid: true}
	}
	if rule.LastProcessed != nil {
		lastProcessed = sql.NullTime{Time: *rule.LastProcessed, Valid: true}
	}
	var maxPayments sql.NullInt64
	if rule.MaxPayments != nil {
		maxPayments = sql.NullInt64{Int64: int64(*rule.MaxPayments), Valid: true}
	}
	return []any{
		rule.ID.String(), rule.AccountID.String(), rule.RecipientPrincipal,
		rule.Amount, rule.Description, rule.Frequency.String(),
		rule.StartDate, endDate, maxPayments, rule.Active, nextDue,
		rule.OccurrencesMade, lastProcessed, rule.CreatedAt, rule.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var (
		rule          models.Rule
		rawID         string
		rawAccount    string
		rawFreq       string
		description   sql.NullString
		endDate       sql.NullTime
		nextDue       sql.NullTime
		lastProcessed sql.NullTime
		maxPayments   sql.NullInt64
	)
	err := row.Scan(&rawID, &rawAccount, &rule.RecipientPrincipal, &rule.Amount,
		&description, &rawFreq, &rule.StartDate, &endDate, &maxPayments,
		&rule.Active, &nextDue, &rule.OccurrencesMade, &lastProcessed,
		&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseRuleID(rawID)
	if err != nil {
		return nil, err
	}
	accountID, err := domain.ParseAccountID(rawAccount)
	if err != nil {
		return nil, err
	}
	rule.ID = id
	rule.AccountID = accountID
	rule.Description = description.String
	rule.Frequency = calendar.Frequency(rawFreq)
	rule.StartDate = calendar.DateOf(rule.StartDate)
	if endDate.Valid {
		d := calendar.DateOf(endDate.Time)
		rule.EndDate = &d
	}
	if nextDue.Valid {
		d := calendar.DateOf(nextDue.Time)
		rule.NextDue = &d
	}
	if lastProcessed.Valid {
		t := lastProcessed.Time
		rule.LastProcessed = &t
	}
	if maxPayments.Valid {
		n := int(maxPayments.Int64)
		rule.MaxPayments = &n
	}
	return &rule, nil
}

func collectRules(rows *sql.Rows) ([]*models.Rule, error) {
	var out []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

var _ Store = (*Postgres)(nil)
