package id

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// AccountID is the client-supplied, non-zero identifier for an Account.
// Unlike the other RideLedger entities, accounts are not server-assigned
// TypeIDs (spec §3: "id (client-supplied non-zero GUID)") — the caller
// names the account it wants created, which is what makes CreateAccount
// safely retriable.
type AccountID struct {
	inner uuid.UUID
}

// NilAccountID is the zero-value AccountID; it is never valid as an
// account identifier.
var NilAccountID AccountID

// NewAccountID wraps a uuid.UUID as an AccountID, rejecting the nil UUID.
func NewAccountID(u uuid.UUID) (AccountID, error) {
	if u == uuid.Nil {
		return AccountID{}, fmt.Errorf("id: account id must be non-zero")
	}
	return AccountID{inner: u}, nil
}

// ParseAccountID parses a UUID string into an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, fmt.Errorf("id: parse account id %q: %w", s, err)
	}
	return NewAccountID(u)
}

// IsNil reports whether this is the zero-value AccountID.
func (a AccountID) IsNil() bool { return a.inner == uuid.Nil }

// String returns the canonical UUID string form.
func (a AccountID) String() string { return a.inner.String() }

// UUID returns the underlying uuid.UUID.
func (a AccountID) UUID() uuid.UUID { return a.inner }

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	if a.IsNil() {
		return []byte{}, nil
	}
	return []byte(a.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = AccountID{}
		return nil
	}
	parsed, err := ParseAccountID(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer for database storage.
func (a AccountID) Value() (driver.Value, error) {
	if a.IsNil() {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return a.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (a *AccountID) Scan(src any) error {
	if src == nil {
		*a = AccountID{}
		return nil
	}
	switch v := src.(type) {
	case string:
		if v == "" {
			*a = AccountID{}
			return nil
		}
		return a.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*a = AccountID{}
			return nil
		}
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into AccountID", src)
	}
}
