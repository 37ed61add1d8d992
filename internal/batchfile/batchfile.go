// Package batchfile reads batch descriptions written by hand in YAML.
//
//	id: 2025-02-members
//	sequence_type: RCUR
//	transfers:
//	  - reference: M-001
//	    amount: "12.50"
//	    name: Jane Doe
//	    iban: DE89 3704 0044 0532 0130 00
//	transfers_file: members.csv
//
// The optional transfers_file is a CSV with the columns of Header.
package batchfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/sepadd/internal/id"
	"github.com/cleared-dev/sepadd/internal/model"
)

// File is the YAML shape of a batch description.
type File struct {
	ID                      string     `yaml:"id"`
	SequenceType            string     `yaml:"sequence_type"`
	RequestedCollectionDate string     `yaml:"requested_collection_date"`
	Creditor                Creditor   `yaml:"creditor"`
	Transfers               []Transfer `yaml:"transfers"`

	// TransfersFile names a CSV of further transfers, appended after
	// Transfers. A relative path is resolved against Options.BaseDir.
	TransfersFile string `yaml:"transfers_file"`
}

// Creditor overrides the configured creditor for one batch.
type Creditor struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	IBAN string `yaml:"iban"`
}

// Transfer is one debit. Amount is a decimal string so no float rounding
// happens between the file and the model.
type Transfer struct {
	Reference   string `yaml:"reference"`
	MandateID   string `yaml:"mandate_id"`
	MandateDate string `yaml:"mandate_date"`
	Amount      string `yaml:"amount"`
	Name        string `yaml:"name"`
	IBAN        string `yaml:"iban"`
	Remittance  string `yaml:"remittance"`
}

// Options controls how a File becomes a batch.
type Options struct {
	// GenerateID replaces the file's id with a random one.
	GenerateID bool
	// BaseDir resolves a relative transfers_file. ReadFile defaults it to
	// the directory of the batch file.
	BaseDir string
}

// Read decodes a batch description from r.
func Read(r io.Reader, opts Options) (*model.PaymentInformation, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parsing batch file: %w", model.ErrInvalidArgument, err)
	}
	if f.TransfersFile != "" {
		path := f.TransfersFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.BaseDir, path)
		}
		more, err := ReadTransfersFile(path)
		if err != nil {
			return nil, err
		}
		f.Transfers = append(f.Transfers, more...)
	}
	return f.Batch(opts)
}

// ReadFile decodes the batch description at path.
func ReadFile(path string, opts Options) (*model.PaymentInformation, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch file: %w", err)
	}
	defer fh.Close()

	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	p, err := Read(fh, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// NewID returns a random batch id of id.MaxLen hex characters taken from a
// UUID, so the generated PmtInfId stays within Max35Text.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:id.MaxLen]
}

// Batch builds the model batch through its constructors.
func (f File) Batch(opts Options) (*model.PaymentInformation, error) {
	batchID := strings.TrimSpace(f.ID)
	if opts.GenerateID || batchID == "" {
		batchID = NewID()
	}
	if err := id.Validate(batchID); err != nil {
		return nil, err
	}

	seq, err := model.ParseSequenceType(f.SequenceType)
	if err != nil {
		return nil, err
	}
	collection, err := parseDate("requested_collection_date", f.RequestedCollectionDate)
	if err != nil {
		return nil, err
	}

	transfers := make([]model.Transfer, 0, len(f.Transfers))
	for i, t := range f.Transfers {
		tr, err := t.transfer()
		if err != nil {
			return nil, fmt.Errorf("transfers[%d]: %w", i, err)
		}
		transfers = append(transfers, tr)
	}

	return model.NewPaymentInformation(model.PaymentInformationParams{
		ID:                      batchID,
		SequenceType:            seq,
		RequestedCollectionDate: collection,
		CreditorID:              f.Creditor.ID,
		CreditorName:            f.Creditor.Name,
		CreditorIBAN:            f.Creditor.IBAN,
		Transfers:               transfers,
	})
}

func (t Transfer) transfer() (model.Transfer, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(t.Amount))
	if err != nil {
		return model.Transfer{}, fmt.Errorf("%w: amount %q is not a decimal", model.ErrInvalidArgument, t.Amount)
	}
	signed, err := parseDate("mandate_date", t.MandateDate)
	if err != nil {
		return model.Transfer{}, err
	}
	return model.NewTransfer(model.TransferParams{
		Reference:   t.Reference,
		MandateID:   t.MandateID,
		MandateDate: signed,
		Amount:      amount,
		Name:        t.Name,
		IBAN:        t.IBAN,
		Remittance:  t.Remittance,
	})
}

// parseDate returns the zero time for an empty value.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(model.DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not %s", model.ErrInvalidArgument, field, value, model.DateFormat)
	}
	return d, nil
}
