// Package domain holds the typed identifiers shared across paychain
// components. Wrapping uuid.UUID in distinct types keeps account, rule and
// transfer identifiers from being swapped silently at call sites.
package domain

import (
	"github.com/google/uuid"

	"paychain/pkg/derrors"
)

type (
	// AccountID identifies a ledger account.
	AccountID uuid.UUID
	// RuleID identifies a recurring-payment rule.
	RuleID uuid.UUID
	// TransferID identifies an immutable transfer record.
	TransferID uuid.UUID
	// ReceiptID identifies a receipt artifact.
	ReceiptID uuid.UUID
)

// NewAccountID returns a fresh random account ID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewRuleID returns a fresh random rule ID.
func NewRuleID() RuleID { return RuleID(uuid.New()) }

// NewTransferID returns a fresh random transfer ID.
func NewTransferID() TransferID { return TransferID(uuid.New()) }

// NewReceiptID returns a fresh random receipt ID.
func NewReceiptID() ReceiptID { return ReceiptID(uuid.New()) }

func (id AccountID) String() string  { return uuid.UUID(id).String() }
func (id RuleID) String() string     { return uuid.UUID(id).String() }
func (id TransferID) String() string { return uuid.UUID(id).String() }
func (id ReceiptID) String() string  { return uuid.UUID(id).String() }

// MarshalText renders IDs as canonical UUID strings so that structs
// embedding them serialize the same way everywhere, JSON included.
func (id AccountID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id RuleID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id TransferID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ReceiptID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RuleID) UnmarshalText(b []byte) error {
	parsed, err := ParseRuleID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TransferID) UnmarshalText(b []byte) error {
	parsed, err := ParseTransferID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ReceiptID) UnmarshalText(b []byte) error {
	parsed, err := ParseReceiptID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id AccountID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RuleID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TransferID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReceiptID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, derrors.New(derrors.CodeBadRequest, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, derrors.New(derrors.CodeBadRequest, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, derrors.New(derrors.CodeBadRequest, kind+" id must not be nil")
	}
	return parsed, nil
}

// ParseAccountID validates raw as a non-nil UUID account identifier.
func ParseAccountID(raw string) (AccountID, error) {
	parsed, err := parseUUID(raw, "account")
	return AccountID(parsed), err
}

// ParseRuleID validates raw as a non-nil UUID rule identifier.
func ParseRuleID(raw string) (RuleID, error) {
	parsed, err := parseUUID(raw, "rule")
	return RuleID(parsed), err
}

// ParseTransferID validates raw as a non-nil UUID transfer identifier.
func ParseTransferID(raw string) (TransferID, error) {
	parsed, err := parseUUID(raw, "transfer")
	return TransferID(parsed), err
}

// ParseReceiptID validates raw as a non-nil UUID receipt identifier.
func ParseReceiptID(raw string) (ReceiptID, error) {
	parsed, err := parseUUID(raw, "receipt")
	return ReceiptID(parsed), err
}
