package codec

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/cleared-dev/sepadd/internal/model"
	"github.com/cleared-dev/sepadd/internal/sepatext"
)

const (
	maxNameLen       = 70
	maxRemittanceLen = 140
)

// Generator renders batches as pain.008.001.02 documents. It performs no I/O.
type Generator struct {
	defaults model.Defaults
	now      func() time.Time
}

// NewGenerator creates a Generator falling back to d for unset batch fields.
func NewGenerator(d model.Defaults) *Generator {
	return &Generator{defaults: d, now: time.Now}
}

// Defaults returns the configured fallback values.
func (g *Generator) Defaults() model.Defaults {
	return g.defaults
}

// Generate resolves p against the defaults and returns the XML document.
// Transaction count and control sum come from p's live transfer list.
func (g *Generator) Generate(p *model.PaymentInformation) ([]byte, error) {
	r, err := p.Resolve(g.defaults)
	if err != nil {
		return nil, err
	}

	var totalCents int64
	txs := make([]pain008DrctDbtTxInf, 0, len(r.Transfers))
	for _, t := range r.Transfers {
		totalCents += t.Cents()
		txs = append(txs, transaction(t))
	}
	ctrlSum := formatCents(totalCents)
	creditorName := truncate(sepatext.Transliterate(r.CreditorName), maxNameLen)

	doc := pain008Document{
		Xmlns: Pain00800102,
		CstmrDrctDbtInitn: pain008CstmrDrctDbtInitn{
			GrpHdr: pain008GrpHdr{
				MsgID:    r.ID,
				CreDtTm:  g.now().UTC().Format(dateTimeFormat),
				NbOfTxs:  len(txs),
				CtrlSum:  ctrlSum,
				InitgPty: partyName{Nm: creditorName},
			},
			PmtInf: pain008PmtInf{
				PmtInfID: r.PaymentInformationID(),
				PmtMtd:   paymentMethod,
				NbOfTxs:  len(txs),
				CtrlSum:  ctrlSum,
				PmtTpInf: pain008PmtTpInf{
					SvcLvl:    code{Cd: serviceLevel},
					LclInstrm: code{Cd: localInstrCore},
					SeqTp:     string(r.SequenceType),
				},
				ReqdColltnDt: r.RequestedCollectionDate.Format(model.DateFormat),
				Cdtr:         partyName{Nm: creditorName},
				CdtrAcct:     account{IBAN: r.CreditorIBAN},
				CdtrAgt:      agent{OthrID: notProvided},
				ChrgBr:       chargeBearer,
				CdtrSchmeID:  schemeID{ID: r.CreditorID, Prtry: serviceLevel},
				DrctDbtTxInf: txs,
			},
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling batch %q: %w", r.ID, err)
	}
	return append([]byte(xml.Header), out...), nil
}

func transaction(t model.Transfer) pain008DrctDbtTxInf {
	return pain008DrctDbtTxInf{
		PmtID:    paymentID{EndToEndID: t.Reference()},
		InstdAmt: amount{Ccy: t.Currency(), Value: formatCents(t.Cents())},
		DrctDbtTx: directDebitTx{
			MndtID:    t.MandateID(),
			DtOfSgntr: t.MandateDate().Format(model.DateFormat),
		},
		DbtrAgt:  agent{OthrID: notProvided},
		Dbtr:     partyName{Nm: truncate(sepatext.Transliterate(t.Name()), maxNameLen)},
		DbtrAcct: account{IBAN: t.IBAN()},
		RmtInf:   remittance{Ustrd: truncate(sepatext.Transliterate(t.Remittance()), maxRemittanceLen)},
	}
}

// formatCents renders a non-negative cent amount as "units.cc".
func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
