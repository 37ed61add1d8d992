package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cleared-dev/sepadd/internal/iban"
	"github.com/cleared-dev/sepadd/internal/model"
)

func printBatch(out io.Writer, doc *model.CustomerDirectDebitInitiation) {
	p := doc.PaymentInformation()
	hdr := doc.GroupHeader()

	fmt.Fprintf(out, "Batch:       %s\n", p.ID())
	fmt.Fprintf(out, "Message:     %s (created %s)\n", hdr.MessageID, hdr.CreationDateTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Sequence:    %s\n", p.SequenceType())
	if d, ok := p.RequestedCollectionDate(); ok {
		fmt.Fprintf(out, "Collection:  %s\n", d.Format(model.DateFormat))
	}
	if p.CreditorName() != "" || p.CreditorIBAN() != "" {
		fmt.Fprintf(out, "Creditor:    %s, %s, %s\n", p.CreditorName(), iban.Format(p.CreditorIBAN()), p.CreditorID())
	}
	fmt.Fprintf(out, "Total:       %s %s in %d transactions\n", p.ControlSum().StringFixed(2), model.Currency, p.NumberOfTransactions())

	transfers := p.Transfers()
	if len(transfers) == 0 {
		return
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tAMOUNT\tDEBTOR\tIBAN\tMANDATE\tREMITTANCE")
	for _, t := range transfers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\n",
			t.Reference(),
			t.Amount().StringFixed(2),
			t.Name(),
			iban.Format(t.IBAN()),
			t.MandateID(), t.MandateDate().Format(model.DateFormat),
			t.Remittance(),
		)
	}
	_ = tw.Flush()
}
