package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/sepadd/internal/model"
)

var creationTimeFormats = []string{
	time.RFC3339Nano,
	dateTimeFormat,
	"2006-01-02T15:04:05.999999999",
}

// Parser reads pain.008 documents into model values.
type Parser struct {
	debug  bool
	logger *zap.Logger
}

// NewParser creates a Parser. In debug mode every parsed document is logged
// pretty-printed at debug level; parsed values are unaffected.
func NewParser(debug bool, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{debug: debug, logger: logger}
}

// ParseFile reads and parses the document at path.
func (p *Parser) ParseFile(path string) (*model.CustomerDirectDebitInitiation, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %q does not exist", model.ErrInvalidArgument, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return p.Parse(bytes.NewReader(data), path)
}

// Parse reads one document from r. source names it in errors and in the
// result. The root namespace is checked before anything else is read.
func (p *Parser) Parse(r io.Reader, source string) (*model.CustomerDirectDebitInitiation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	if p.debug {
		p.logDocument(data, source)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	start, err := rootElement(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrInvalidArgument, source, err)
	}

	version := start.Name.Space
	if err := CheckVersion(version); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	var root node
	if err := dec.DecodeElement(&root, &start); err != nil {
		return nil, fmt.Errorf("%w: %s: malformed XML: %w", model.ErrInvalidArgument, source, err)
	}

	header, err := parseGroupHeader(&root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	payment, err := parsePaymentInformation(&root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	return model.NewCustomerDirectDebitInitiation(source, version, header, payment), nil
}

func (p *Parser) logDocument(data []byte, source string) {
	pretty, err := Indent(data)
	if err != nil {
		p.logger.Debug("document not indentable", zap.String("source", source), zap.Error(err))
		return
	}
	p.logger.Debug("parsing document", zap.String("source", source), zap.ByteString("document", pretty))
}

func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, errors.New("document has no root element")
		}
		if err != nil {
			return xml.StartElement{}, fmt.Errorf("malformed XML: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func parseGroupHeader(root *node) (model.GroupHeader, error) {
	grpHdr := root.child("CstmrDrctDbtInitn", "GrpHdr")
	if grpHdr == nil {
		return model.GroupHeader{}, model.ErrMissingGroupHeader
	}

	msgID, err := required(grpHdr, "GrpHdr", "MsgId")
	if err != nil {
		return model.GroupHeader{}, err
	}

	rawTime, err := required(grpHdr, "GrpHdr", "CreDtTm")
	if err != nil {
		return model.GroupHeader{}, err
	}
	created, err := parseCreationTime(rawTime)
	if err != nil {
		return model.GroupHeader{}, err
	}

	rawCount, err := required(grpHdr, "GrpHdr", "NbOfTxs")
	if err != nil {
		return model.GroupHeader{}, err
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil {
		return model.GroupHeader{}, fmt.Errorf("%w: GrpHdr/NbOfTxs %q is not a number", model.ErrInvalidArgument, rawCount)
	}

	return model.GroupHeader{
		MessageID:            msgID,
		CreationDateTime:     created,
		NumberOfTransactions: count,
	}, nil
}

func parsePaymentInformation(root *node) (*model.PaymentInformation, error) {
	pmtInf := root.child("CstmrDrctDbtInitn", "PmtInf")
	if pmtInf == nil {
		return nil, model.ErrMissingPaymentInformation
	}

	pmtInfID, err := required(pmtInf, "PmtInf", "PmtInfId")
	if err != nil {
		return nil, err
	}
	rawSeq, err := required(pmtInf, "PmtInf", "PmtTpInf", "SeqTp")
	if err != nil {
		return nil, err
	}
	seq, err := model.ParseSequenceType(rawSeq)
	if err != nil {
		return nil, err
	}
	rawDate, err := required(pmtInf, "PmtInf", "ReqdColltnDt")
	if err != nil {
		return nil, err
	}
	collection, err := time.Parse(model.DateFormat, rawDate)
	if err != nil {
		return nil, fmt.Errorf("%w: PmtInf/ReqdColltnDt %q is not %s", model.ErrInvalidArgument, rawDate, model.DateFormat)
	}

	creditorName, _ := pmtInf.text("Cdtr", "Nm")
	creditorIBAN, _ := pmtInf.text("CdtrAcct", "Id", "IBAN")
	var creditorID string
	if scheme := pmtInf.child("CdtrSchmeId"); scheme != nil {
		if prvt := scheme.firstDescendant("PrvtId"); prvt != nil {
			if id := prvt.firstDescendant("Id"); id != nil {
				creditorID = strings.TrimSpace(id.Content)
			}
		}
	}

	var transfers []model.Transfer
	for i, tx := range pmtInf.descendants("DrctDbtTxInf") {
		t, err := parseTransfer(tx)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		transfers = append(transfers, t)
	}

	return model.NewPaymentInformation(model.PaymentInformationParams{
		ID:                      strings.TrimSuffix(pmtInfID, "-"+string(seq)),
		SequenceType:            seq,
		RequestedCollectionDate: collection,
		CreditorID:              creditorID,
		CreditorName:            creditorName,
		CreditorIBAN:            creditorIBAN,
		Transfers:               transfers,
	})
}

func parseTransfer(tx *node) (model.Transfer, error) {
	reference, err := required(tx, "DrctDbtTxInf", "PmtId", "EndToEndId")
	if err != nil {
		return model.Transfer{}, err
	}

	amt := tx.child("InstdAmt")
	if amt == nil {
		return model.Transfer{}, fmt.Errorf("%w: DrctDbtTxInf/InstdAmt is missing", model.ErrInvalidArgument)
	}
	if ccy, ok := amt.attr("Ccy"); ok && ccy != model.Currency {
		return model.Transfer{}, fmt.Errorf("%w: currency %q is not %s", model.ErrInvalidArgument, ccy, model.Currency)
	}
	value, err := decimal.NewFromString(strings.TrimSpace(amt.Content))
	if err != nil {
		return model.Transfer{}, fmt.Errorf("%w: amount %q: %w", model.ErrInvalidArgument, amt.Content, err)
	}

	name, err := required(tx, "DrctDbtTxInf", "Dbtr", "Nm")
	if err != nil {
		return model.Transfer{}, err
	}
	account, err := required(tx, "DrctDbtTxInf", "DbtrAcct", "Id", "IBAN")
	if err != nil {
		return model.Transfer{}, err
	}
	remittanceInfo, _ := tx.text("RmtInf", "Ustrd")

	params := model.TransferParams{
		Reference:  reference,
		Amount:     value,
		Name:       name,
		IBAN:       account,
		Remittance: remittanceInfo,
	}
	if mandate := tx.child("DrctDbtTx", "MndtRltdInf"); mandate != nil {
		params.MandateID, _ = mandate.text("MndtId")
		if raw, ok := mandate.text("DtOfSgntr"); ok && raw != "" {
			signed, err := time.Parse(model.DateFormat, raw)
			if err != nil {
				return model.Transfer{}, fmt.Errorf("%w: DtOfSgntr %q is not %s", model.ErrInvalidArgument, raw, model.DateFormat)
			}
			params.MandateDate = signed
		}
	}
	return model.NewTransfer(params)
}

// required returns the text at path below n, failing when absent or empty.
// parent names n in the error message.
func required(n *node, parent string, path ...string) (string, error) {
	v, ok := n.text(path...)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s/%s is missing", model.ErrInvalidArgument, parent, strings.Join(path, "/"))
	}
	return v, nil
}

func parseCreationTime(s string) (time.Time, error) {
	for _, layout := range creationTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: GrpHdr/CreDtTm %q is not an ISO date-time", model.ErrInvalidArgument, s)
}
