package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/sepadd/internal/iban"
	"github.com/cleared-dev/sepadd/internal/sepatext"
)

// PaymentInformationParams describes a batch before validation. Creditor
// fields and the collection date may be left empty; they are filled from
// Defaults by Resolve.
type PaymentInformationParams struct {
	ID                      string
	SequenceType            SequenceType // defaults to SequenceOneOff
	RequestedCollectionDate time.Time
	CreditorID              string
	CreditorName            string
	CreditorIBAN            string
	Transfers               []Transfer
}

// PaymentInformation is one direct debit batch (PmtInf). The batch id is the
// store key. Transfers can only be appended through AddTransfer.
type PaymentInformation struct {
	id             string
	sequenceType   SequenceType
	collectionDate time.Time // zero when unset
	creditorID     string
	creditorName   string
	creditorIBAN   string
	transfers      []Transfer
}

// NewPaymentInformation validates p and adds its transfers via AddTransfer.
func NewPaymentInformation(p PaymentInformationParams) (*PaymentInformation, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: batch id is empty", ErrInvalidArgument)
	}
	if reason := sepatext.CheckID(id); reason != "" {
		return nil, fmt.Errorf("%w: batch id %q: %s", ErrInvalidArgument, id, reason)
	}

	seq := p.SequenceType
	if seq == "" {
		seq = SequenceOneOff
	}
	if !seq.Valid() {
		return nil, fmt.Errorf("%w: unknown sequence type %q", ErrInvalidArgument, seq)
	}

	var creditorIBAN string
	if strings.TrimSpace(p.CreditorIBAN) != "" {
		var err error
		creditorIBAN, err = iban.Validate(p.CreditorIBAN)
		if err != nil {
			return nil, fmt.Errorf("%w: creditor: %w", ErrInvalidArgument, err)
		}
	}

	pi := &PaymentInformation{
		id:           id,
		sequenceType: seq,
		creditorID:   strings.TrimSpace(p.CreditorID),
		creditorName: strings.TrimSpace(p.CreditorName),
		creditorIBAN: creditorIBAN,
	}
	if !p.RequestedCollectionDate.IsZero() {
		pi.collectionDate = Day(p.RequestedCollectionDate)
	}
	for _, t := range p.Transfers {
		pi.AddTransfer(t)
	}
	return pi, nil
}

// AddTransfer appends t, taking the batch id as its reference when t has none.
func (p *PaymentInformation) AddTransfer(t Transfer) {
	p.transfers = append(p.transfers, t.withReference(p.id))
}

func (p *PaymentInformation) ID() string                 { return p.id }
func (p *PaymentInformation) SequenceType() SequenceType { return p.sequenceType }
func (p *PaymentInformation) CreditorID() string         { return p.creditorID }
func (p *PaymentInformation) CreditorName() string       { return p.creditorName }
func (p *PaymentInformation) CreditorIBAN() string       { return p.creditorIBAN }

// RequestedCollectionDate returns the batch's own collection date, if any.
func (p *PaymentInformation) RequestedCollectionDate() (time.Time, bool) {
	return p.collectionDate, !p.collectionDate.IsZero()
}

// Transfers returns a copy of the transfer list in insertion order.
func (p *PaymentInformation) Transfers() []Transfer {
	out := make([]Transfer, len(p.transfers))
	copy(out, p.transfers)
	return out
}

// NumberOfTransactions is the live transfer count.
func (p *PaymentInformation) NumberOfTransactions() int {
	return len(p.transfers)
}

// ControlSum is the sum of all transfer amounts in EUR; zero for no transfers.
func (p *PaymentInformation) ControlSum() decimal.Decimal {
	total := decimal.Zero
	for _, t := range p.transfers {
		total = total.Add(t.amount)
	}
	return total
}

func (p *PaymentInformation) clone() *PaymentInformation {
	c := *p
	c.transfers = p.Transfers()
	return &c
}
