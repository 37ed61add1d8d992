package model

import "time"

// GroupHeader is the informational GrpHdr of a parsed document. Generation
// recomputes these values and never reads them.
type GroupHeader struct {
	MessageID            string
	CreationDateTime     time.Time
	NumberOfTransactions int
}

// CustomerDirectDebitInitiation is the result of parsing one pain.008 document.
type CustomerDirectDebitInitiation struct {
	source      string
	version     string
	groupHeader GroupHeader
	payment     *PaymentInformation
}

// NewCustomerDirectDebitInitiation assembles a parse result. payment is
// copied so later changes by the caller do not leak in.
func NewCustomerDirectDebitInitiation(source, version string, header GroupHeader, payment *PaymentInformation) *CustomerDirectDebitInitiation {
	return &CustomerDirectDebitInitiation{
		source:      source,
		version:     version,
		groupHeader: header,
		payment:     payment.clone(),
	}
}

// Source is the path or name the document was read from.
func (c *CustomerDirectDebitInitiation) Source() string { return c.source }

// Version is the root namespace URN.
func (c *CustomerDirectDebitInitiation) Version() string { return c.version }

func (c *CustomerDirectDebitInitiation) GroupHeader() GroupHeader { return c.groupHeader }

// PaymentInformation returns a copy of the parsed batch.
func (c *CustomerDirectDebitInitiation) PaymentInformation() *PaymentInformation {
	return c.payment.clone()
}
