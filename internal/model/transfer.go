package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/sepadd/internal/iban"
	"github.com/cleared-dev/sepadd/internal/sepatext"
)

// Currency is the only currency a SEPA direct debit batch carries.
const Currency = "EUR"

const (
	maxReferenceLen  = 35  // Max35Text
	maxRemittanceLen = 140 // Max140Text
)

var now = time.Now

// TransferParams describes one direct debit before validation.
type TransferParams struct {
	Reference   string // end-to-end id; backfilled from the batch id when empty
	MandateID   string // defaults to Reference
	MandateDate time.Time
	Amount      decimal.Decimal // EUR
	Name        string          // debtor
	IBAN        string          // debtor
	Remittance  string          // defaults to Reference
}

// Transfer is a validated direct debit transaction (DrctDbtTxInf).
// The zero value is not valid; use NewTransfer.
type Transfer struct {
	reference   string
	mandateID   string
	mandateDate time.Time
	amount      decimal.Decimal
	name        string
	iban        string
	remittance  string
}

// NewTransfer validates p and applies the reference-derived defaults.
func NewTransfer(p TransferParams) (Transfer, error) {
	account, err := iban.Validate(p.IBAN)
	if err != nil {
		return Transfer{}, fmt.Errorf("%w: debtor: %w", ErrInvalidArgument, err)
	}
	if p.Amount.IsNegative() {
		return Transfer{}, fmt.Errorf("%w: amount %s is negative", ErrInvalidArgument, p.Amount)
	}
	if !p.Amount.Equal(p.Amount.Round(2)) {
		return Transfer{}, fmt.Errorf("%w: amount %s has more than 2 decimal places", ErrInvalidArgument, p.Amount)
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Transfer{}, fmt.Errorf("%w: debtor name is empty", ErrInvalidArgument)
	}
	if sepatext.Transliterate(name) == "" {
		return Transfer{}, fmt.Errorf("%w: debtor name %q has no characters of the SEPA character set", ErrInvalidArgument, name)
	}
	reference := strings.TrimSpace(p.Reference)
	if err := checkIdentifier("reference", reference); err != nil {
		return Transfer{}, err
	}
	mandateID := strings.TrimSpace(p.MandateID)
	if err := checkIdentifier("mandate id", mandateID); err != nil {
		return Transfer{}, err
	}
	if len(p.Remittance) > maxRemittanceLen {
		return Transfer{}, fmt.Errorf("%w: remittance information longer than %d characters", ErrInvalidArgument, maxRemittanceLen)
	}
	if strings.TrimSpace(p.Remittance) != "" && sepatext.Transliterate(p.Remittance) == "" {
		return Transfer{}, fmt.Errorf("%w: remittance information %q has no characters of the SEPA character set", ErrInvalidArgument, p.Remittance)
	}

	mandateDate := p.MandateDate
	if mandateDate.IsZero() {
		mandateDate = now()
	}

	t := Transfer{
		mandateID:   mandateID,
		mandateDate: Day(mandateDate),
		amount:      p.Amount,
		name:        name,
		iban:        account,
		remittance:  p.Remittance,
	}
	return t.withReference(reference), nil
}

// checkIdentifier validates an optional Max35Text identifier.
func checkIdentifier(field, v string) error {
	if v == "" {
		return nil
	}
	if len(v) > maxReferenceLen {
		return fmt.Errorf("%w: %s %q longer than %d characters", ErrInvalidArgument, field, v, maxReferenceLen)
	}
	if reason := sepatext.CheckID(v); reason != "" {
		return fmt.Errorf("%w: %s %q: %s", ErrInvalidArgument, field, v, reason)
	}
	return nil
}

// withReference sets the reference when t has none and fills the fields that
// default to it.
func (t Transfer) withReference(reference string) Transfer {
	if t.reference == "" {
		t.reference = reference
	}
	if t.mandateID == "" {
		t.mandateID = t.reference
	}
	if t.remittance == "" {
		t.remittance = t.reference
	}
	return t
}

func (t Transfer) Reference() string       { return t.reference }
func (t Transfer) MandateID() string       { return t.mandateID }
func (t Transfer) MandateDate() time.Time  { return t.mandateDate }
func (t Transfer) Amount() decimal.Decimal { return t.amount }
func (t Transfer) Currency() string        { return Currency }
func (t Transfer) Name() string            { return t.name }
func (t Transfer) IBAN() string            { return t.iban }
func (t Transfer) Remittance() string      { return t.remittance }

// Cents returns the amount in euro cents.
func (t Transfer) Cents() int64 {
	return t.amount.Shift(2).IntPart()
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
