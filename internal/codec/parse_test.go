package codec

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cleared-dev/sepadd/internal/model"
	"github.com/cleared-dev/sepadd/internal/sepatext"
)

const nestedDocument = `<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.008.001.02">
  <CstmrDrctDbtInitn>
    <GrpHdr>
      <MsgId>MSG-9</MsgId>
      <CreDtTm>2024-12-01T08:00:00Z</CreDtTm>
      <NbOfTxs>2</NbOfTxs>
    </GrpHdr>
    <PmtInf>
      <PmtInfId>LEGACY-FRST</PmtInfId>
      <PmtTpInf><SeqTp>FRST</SeqTp></PmtTpInf>
      <ReqdColltnDt>2024-12-10</ReqdColltnDt>
      <Group>
        <DrctDbtTxInf>
          <PmtId><EndToEndId>A-1</EndToEndId></PmtId>
          <InstdAmt Ccy="EUR">1.23</InstdAmt>
          <Dbtr><Nm>First Debtor</Nm></Dbtr>
          <DbtrAcct><Id><IBAN>DE89370400440532013000</IBAN></Id></DbtrAcct>
          <RmtInf><Ustrd>Invoice 1</Ustrd></RmtInf>
        </DrctDbtTxInf>
        <Inner>
          <DrctDbtTxInf>
            <PmtId><EndToEndId>A-2</EndToEndId></PmtId>
            <InstdAmt Ccy="EUR">100</InstdAmt>
            <Dbtr><Nm>Second Debtor</Nm></Dbtr>
            <DbtrAcct><Id><IBAN>NL91ABNA0417164300</IBAN></Id></DbtrAcct>
          </DrctDbtTxInf>
        </Inner>
      </Group>
    </PmtInf>
  </CstmrDrctDbtInitn>
</Document>`

func parse(t *testing.T, doc string) (*model.CustomerDirectDebitInitiation, error) {
	t.Helper()
	return NewParser(false, nil).Parse(strings.NewReader(doc), "test.xml")
}

func TestParse_RoundTrip(t *testing.T) {
	g := testGenerator(t)
	pi := batch(t, model.PaymentInformationParams{
		ID:                      "BATCH-1",
		SequenceType:            model.SequenceOneOff,
		RequestedCollectionDate: date(2025, 3, 3),
		CreditorID:              creditorID,
		CreditorName:            "Acme Club e.V.",
		CreditorIBAN:            creditorIBAN,
		Transfers: []model.Transfer{
			transfer(t, model.TransferParams{Amount: dec("10.50"), IBAN: "DE89370400440532013000"}),
		},
	})

	data, err := g.Generate(pi)
	require.NoError(t, err)

	got, err := NewParser(false, nil).Parse(bytes.NewReader(data), "BATCH-1.xml")
	require.NoError(t, err)

	assert.Equal(t, Pain00800102, got.Version())
	assert.Equal(t, "BATCH-1.xml", got.Source())
	assert.Equal(t, "BATCH-1", got.GroupHeader().MessageID)
	assert.Equal(t, 1, got.GroupHeader().NumberOfTransactions)
	assert.True(t, got.GroupHeader().CreationDateTime.Equal(fixedNow))

	parsed := got.PaymentInformation()
	assert.Equal(t, "BATCH-1", parsed.ID())
	assert.Equal(t, model.SequenceOneOff, parsed.SequenceType())
	collection, ok := parsed.RequestedCollectionDate()
	require.True(t, ok)
	assert.Equal(t, date(2025, 3, 3), collection)
	assert.Equal(t, creditorID, parsed.CreditorID())
	assert.Equal(t, "Acme Club e.V.", parsed.CreditorName())
	assert.Equal(t, creditorIBAN, parsed.CreditorIBAN())

	transfers := parsed.Transfers()
	require.Len(t, transfers, 1)
	assert.True(t, transfers[0].Amount().Equal(dec("10.50")))
	assert.Equal(t, "EUR", transfers[0].Currency())
	assert.Equal(t, "DE89370400440532013000", transfers[0].IBAN())
	assert.Equal(t, "BATCH-1", transfers[0].Reference())
	assert.Equal(t, "BATCH-1", transfers[0].MandateID())
	assert.Equal(t, date(2024, 11, 5), transfers[0].MandateDate())
	assert.True(t, parsed.ControlSum().Equal(dec("10.50")))
}

func TestParse_RoundTripTransliteratesFreeText(t *testing.T) {
	g := testGenerator(t)
	pi := batch(t, model.PaymentInformationParams{
		ID: "B-TXT",
		Transfers: []model.Transfer{
			transfer(t, model.TransferParams{Reference: "R1", Amount: dec("1"), Name: "Łukasz Żółć", Remittance: "Gebühr 2025 & Co"}),
		},
	})
	data, err := g.Generate(pi)
	require.NoError(t, err)

	got, err := NewParser(false, nil).Parse(bytes.NewReader(data), "x")
	require.NoError(t, err)

	tr := got.PaymentInformation().Transfers()[0]
	assert.Equal(t, sepatext.Transliterate("Łukasz Żółć"), tr.Name())
	assert.Equal(t, sepatext.Transliterate("Gebühr 2025 & Co"), tr.Remittance())
}

func TestParse_NestedTransactions(t *testing.T) {
	got, err := parse(t, nestedDocument)
	require.NoError(t, err)

	assert.Equal(t, "MSG-9", got.GroupHeader().MessageID)
	assert.Equal(t, 2, got.GroupHeader().NumberOfTransactions)

	pi := got.PaymentInformation()
	assert.Equal(t, "LEGACY", pi.ID())
	assert.Equal(t, model.SequenceFirst, pi.SequenceType())
	assert.Empty(t, pi.CreditorName(), "creditor fields are optional")
	assert.Empty(t, pi.CreditorIBAN())
	assert.Empty(t, pi.CreditorID())

	transfers := pi.Transfers()
	require.Len(t, transfers, 2)
	assert.Equal(t, "A-1", transfers[0].Reference())
	assert.Equal(t, "Invoice 1", transfers[0].Remittance())
	assert.Equal(t, "A-2", transfers[1].Reference())
	assert.Equal(t, "A-2", transfers[1].Remittance(), "remittance defaults to reference")
	assert.True(t, pi.ControlSum().Equal(dec("101.23")))
}

func TestParse_UnsupportedVersion(t *testing.T) {
	doc := strings.Replace(nestedDocument, "pain.008.001.02", "pain.008.001.08", 1)
	_, err := parse(t, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnsupportedVersion)
	assert.Contains(t, err.Error(), "pain.008.001.08")
}

func TestParse_NoNamespace(t *testing.T) {
	_, err := parse(t, `<Document><CstmrDrctDbtInitn/></Document>`)
	assert.ErrorIs(t, err, model.ErrUnsupportedVersion)
}

func TestParse_VersionCheckedBeforeStructure(t *testing.T) {
	// Broken after the root element: only the namespace decides.
	_, err := parse(t, `<Document xmlns="urn:other"><CstmrDrctDbtInitn>`)
	assert.ErrorIs(t, err, model.ErrUnsupportedVersion)
}

func TestParse_MissingGroupHeader(t *testing.T) {
	doc := `<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.008.001.02">
  <CstmrDrctDbtInitn><PmtInf><PmtInfId>X</PmtInfId></PmtInf></CstmrDrctDbtInitn>
</Document>`
	_, err := parse(t, doc)
	assert.ErrorIs(t, err, model.ErrMissingGroupHeader)
}

func TestParse_MissingPaymentInformation(t *testing.T) {
	doc := `<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.008.001.02">
  <CstmrDrctDbtInitn>
    <GrpHdr><MsgId>M</MsgId><CreDtTm>2024-12-01T08:00:00</CreDtTm><NbOfTxs>0</NbOfTxs></GrpHdr>
  </CstmrDrctDbtInitn>
</Document>`
	_, err := parse(t, doc)
	assert.ErrorIs(t, err, model.ErrMissingPaymentInformation)
}

func TestParse_InvalidDebtorIBAN(t *testing.T) {
	doc := strings.Replace(nestedDocument, "NL91ABNA0417164300", "DE00000000000000000000", 1)
	_, err := parse(t, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "transaction 2")
}

func TestParse_ForeignCurrency(t *testing.T) {
	doc := strings.Replace(nestedDocument, `Ccy="EUR">100`, `Ccy="USD">100`, 1)
	_, err := parse(t, doc)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestParse_Malformed(t *testing.T) {
	_, err := parse(t, "")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = parse(t, "not xml at all")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := NewParser(false, nil).ParseFile(filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.xml")
	require.NoError(t, os.WriteFile(path, []byte(nestedDocument), 0o644))

	got, err := NewParser(false, nil).ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got.Source())
	assert.Len(t, got.PaymentInformation().Transfers(), 2)
}

func TestParse_DebugModeLogsWithoutChangingValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	debug := NewParser(true, zap.New(core))

	got, err := debug.Parse(strings.NewReader(nestedDocument), "debug.xml")
	require.NoError(t, err)

	plain, err := parse(t, nestedDocument)
	require.NoError(t, err)

	assert.Equal(t, plain.PaymentInformation().Transfers(), got.PaymentInformation().Transfers())
	assert.Equal(t, plain.GroupHeader(), got.GroupHeader())

	entries := logs.FilterMessage("parsing document").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "debug.xml", entries[0].ContextMap()["source"])
}

func TestIndent(t *testing.T) {
	out, err := Indent([]byte(`<a xmlns="urn:x"><b>  v </b>   <c/></a>`))
	require.NoError(t, err)
	assert.Equal(t, "<a xmlns=\"urn:x\">\n  <b>  v </b>\n  <c></c>\n</a>", string(out))
}
