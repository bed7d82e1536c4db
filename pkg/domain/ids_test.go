package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paychain/pkg/derrors"
)

func TestParseAccountID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeBadRequest))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseAccountID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeBadRequest))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseAccountID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeBadRequest))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseAccountID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, AccountID(valid), id)
	})
}

// Parsing is a trust boundary: path and body IDs arrive from clients.
func TestParseID_RejectsHostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE accounts;--", true},
		{"path traversal", "../../../etc/passwd", true},
		{"null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"oversized input", strings.Repeat("a", 1000), true},
		{"empty string", "", true},
		{"nil UUID", uuid.Nil.String(), true},
		{"whitespace only", "   ", true},
		{"uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, derrors.HasCode(err, derrors.CodeBadRequest))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIDStringRoundTrip(t *testing.T) {
	transferID := NewTransferID()
	parsed, err := ParseTransferID(transferID.String())
	require.NoError(t, err)
	assert.Equal(t, transferID, parsed)

	receiptID := NewReceiptID()
	parsedReceipt, err := ParseReceiptID(receiptID.String())
	require.NoError(t, err)
	assert.Equal(t, receiptID, parsedReceipt)
}

// IDs embedded in response structs must serialize as UUID strings, not as
// the raw uuid.UUID byte array.
func TestIDJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Account  AccountID  `json:"account"`
		Rule     *RuleID    `json:"rule,omitempty"`
		Transfer TransferID `json:"transfer"`
	}

	ruleID := NewRuleID()
	in := wrapper{Account: NewAccountID(), Rule: &ruleID, Transfer: NewTransferID()}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), in.Account.String())
	assert.Contains(t, string(raw), ruleID.String())
	assert.Contains(t, string(raw), in.Transfer.String())

	var out wrapper
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Account, out.Account)
	assert.Equal(t, ruleID, *out.Rule)
	assert.Equal(t, in.Transfer, out.Transfer)
}

func TestIDUnmarshalRejectsInvalid(t *testing.T) {
	var id AccountID
	err := json.Unmarshal([]byte(`"not-a-uuid"`), &id)
	require.Error(t, err)
	assert.True(t, derrors.HasCode(err, derrors.CodeBadRequest))
}

func TestIsNil(t *testing.T) {
	assert.True(t, AccountID(uuid.Nil).IsNil())
	assert.False(t, NewAccountID().IsNil())
}
