package batchfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/cleared-dev/sepadd/internal/model"
)

// Header is the CSV header written by WriteTransfers. ReadTransfers accepts
// the columns in any order and only requires amount, name and iban.
const Header = "reference,mandate_id,mandate_date,amount,name,iban,remittance"

var requiredColumns = []string{"amount", "name", "iban"}

// ReadTransfers reads transfer rows from a CSV with a header line.
func ReadTransfers(r io.Reader) ([]Transfer, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading transfers CSV: %w", model.ErrInvalidArgument, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: transfers CSV has no %s column", model.ErrInvalidArgument, name)
		}
	}
	cr.FieldsPerRecord = len(header)

	field := func(rec []string, name string) string {
		if i, ok := cols[name]; ok {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var transfers []Transfer
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: transfers CSV row %d: %w", model.ErrInvalidArgument, row, err)
		}
		if slices.IndexFunc(rec, func(s string) bool { return strings.TrimSpace(s) != "" }) < 0 {
			continue
		}
		transfers = append(transfers, Transfer{
			Reference:   field(rec, "reference"),
			MandateID:   field(rec, "mandate_id"),
			MandateDate: field(rec, "mandate_date"),
			Amount:      field(rec, "amount"),
			Name:        field(rec, "name"),
			IBAN:        field(rec, "iban"),
			Remittance:  field(rec, "remittance"),
		})
	}
	return transfers, nil
}

// ReadTransfersFile reads the transfers CSV at path.
func ReadTransfersFile(path string) ([]Transfer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transfers file: %w", err)
	}
	defer f.Close()

	transfers, err := ReadTransfers(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return transfers, nil
}

// WriteTransfers writes transfers to w (including header).
func WriteTransfers(w io.Writer, transfers []model.Transfer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range transfers {
		if err := cw.Write(MarshalTransfer(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransfer converts a Transfer to a CSV row in Header order.
func MarshalTransfer(t model.Transfer) []string {
	return []string{
		t.Reference(),
		t.MandateID(),
		t.MandateDate().Format(model.DateFormat),
		t.Amount().StringFixed(2),
		t.Name(),
		t.IBAN(),
		t.Remittance(),
	}
}
