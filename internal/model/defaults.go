package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/sepadd/internal/iban"
	"github.com/cleared-dev/sepadd/internal/sepatext"
)

// DateFormat is the wire and configuration format of calendar dates.
const DateFormat = "2006-01-02"

// MaxPaymentInformationIDLen is the Max35Text limit of PmtInfId.
const MaxPaymentInformationIDLen = 35

// MaxBatchIDLen leaves room for the "-{sequenceType}" suffix of PmtInfId.
const MaxBatchIDLen = MaxPaymentInformationIDLen - 5

// Defaults are the configured creditor identity and collection date used when
// a batch leaves them unset.
type Defaults struct {
	RequestedCollectionDate time.Time
	CreditorID              string
	CreditorName            string
	CreditorIBAN            string
}

// NewDefaults validates configuration values eagerly: the date must parse as
// YYYY-MM-DD and the IBAN, when given, must be valid.
func NewDefaults(collectionDate, creditorID, creditorName, creditorIBAN string) (Defaults, error) {
	date, err := time.Parse(DateFormat, strings.TrimSpace(collectionDate))
	if err != nil {
		return Defaults{}, fmt.Errorf("%w: requested collection date %q is missing or not %s", ErrInvalidArgument, collectionDate, DateFormat)
	}

	d := Defaults{
		RequestedCollectionDate: date,
		CreditorID:              strings.TrimSpace(creditorID),
		CreditorName:            strings.TrimSpace(creditorName),
	}
	if strings.TrimSpace(creditorIBAN) != "" {
		d.CreditorIBAN, err = iban.Validate(creditorIBAN)
		if err != nil {
			return Defaults{}, fmt.Errorf("%w: creditor: %w", ErrInvalidArgument, err)
		}
	}
	return d, nil
}

// Resolved is a batch with every creditor field and the collection date set.
// It is what the generator renders.
type Resolved struct {
	ID                      string
	SequenceType            SequenceType
	RequestedCollectionDate time.Time
	CreditorID              string
	CreditorName            string
	CreditorIBAN            string
	Transfers               []Transfer
	ControlSum              decimal.Decimal
}

// PaymentInformationID is the composite PmtInfId "{batchId}-{sequenceType}".
func (r Resolved) PaymentInformationID() string {
	return r.ID + "-" + string(r.SequenceType)
}

// Resolve fills unset fields of p from d without touching p.
func (p *PaymentInformation) Resolve(d Defaults) (Resolved, error) {
	r := Resolved{
		ID:                      p.id,
		SequenceType:            p.sequenceType,
		RequestedCollectionDate: p.collectionDate,
		CreditorID:              firstNonEmpty(p.creditorID, d.CreditorID),
		CreditorName:            firstNonEmpty(p.creditorName, d.CreditorName),
		CreditorIBAN:            firstNonEmpty(p.creditorIBAN, d.CreditorIBAN),
		Transfers:               p.Transfers(),
		ControlSum:              p.ControlSum(),
	}
	if r.RequestedCollectionDate.IsZero() {
		r.RequestedCollectionDate = d.RequestedCollectionDate
	}

	var missing []string
	if r.CreditorID == "" {
		missing = append(missing, "creditor id")
	}
	if r.CreditorName == "" {
		missing = append(missing, "creditor name")
	}
	if r.CreditorIBAN == "" {
		missing = append(missing, "creditor IBAN")
	}
	if r.RequestedCollectionDate.IsZero() {
		missing = append(missing, "requested collection date")
	}
	if len(missing) > 0 {
		return Resolved{}, fmt.Errorf("%w: batch %q: %s missing from batch and configuration", ErrInvalidArgument, p.id, strings.Join(missing, ", "))
	}

	if pmtInfID := r.PaymentInformationID(); len(pmtInfID) > MaxPaymentInformationIDLen {
		return Resolved{}, fmt.Errorf("%w: batch %q: payment information id %q longer than %d characters", ErrInvalidArgument, p.id, pmtInfID, MaxPaymentInformationIDLen)
	}
	if sepatext.Transliterate(r.CreditorName) == "" {
		return Resolved{}, fmt.Errorf("%w: batch %q: creditor name %q has no characters of the SEPA character set", ErrInvalidArgument, p.id, r.CreditorName)
	}
	if reason := sepatext.CheckID(r.CreditorID); reason != "" {
		return Resolved{}, fmt.Errorf("%w: batch %q: creditor id %q: %s", ErrInvalidArgument, p.id, r.CreditorID, reason)
	}
	return r, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
