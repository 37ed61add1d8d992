package codec

import (
	"encoding/xml"
	"fmt"
	"slices"

	"github.com/cleared-dev/sepadd/internal/model"
)

// Pain00800102 is the namespace URN of pain.008.001.02 documents.
const Pain00800102 = "urn:iso:std:iso:20022:tech:xsd:pain.008.001.02"

// SupportedVersions is the allow-list of root namespaces Parse accepts.
var SupportedVersions = []string{Pain00800102}

const (
	notProvided    = "NOTPROVIDED"
	serviceLevel   = "SEPA"
	localInstrCore = "CORE"
	chargeBearer   = "SLEV"
	paymentMethod  = "DD"
	dateTimeFormat = "2006-01-02T15:04:05"
)

// CheckVersion rejects any namespace outside SupportedVersions.
func CheckVersion(ns string) error {
	if !slices.Contains(SupportedVersions, ns) {
		return fmt.Errorf("%w: %q", model.ErrUnsupportedVersion, ns)
	}
	return nil
}

// XML marshaling structs (generation side).
type pain008Document struct {
	XMLName           xml.Name                 `xml:"Document"`
	Xmlns             string                   `xml:"xmlns,attr"`
	CstmrDrctDbtInitn pain008CstmrDrctDbtInitn `xml:"CstmrDrctDbtInitn"`
}

type pain008CstmrDrctDbtInitn struct {
	GrpHdr pain008GrpHdr `xml:"GrpHdr"`
	PmtInf pain008PmtInf `xml:"PmtInf"`
}

type pain008GrpHdr struct {
	MsgID    string    `xml:"MsgId"`
	CreDtTm  string    `xml:"CreDtTm"`
	NbOfTxs  int       `xml:"NbOfTxs"`
	CtrlSum  string    `xml:"CtrlSum"`
	InitgPty partyName `xml:"InitgPty"`
}

type pain008PmtInf struct {
	PmtInfID     string                `xml:"PmtInfId"`
	PmtMtd       string                `xml:"PmtMtd"`
	NbOfTxs      int                   `xml:"NbOfTxs"`
	CtrlSum      string                `xml:"CtrlSum"`
	PmtTpInf     pain008PmtTpInf       `xml:"PmtTpInf"`
	ReqdColltnDt string                `xml:"ReqdColltnDt"`
	Cdtr         partyName             `xml:"Cdtr"`
	CdtrAcct     account               `xml:"CdtrAcct"`
	CdtrAgt      agent                 `xml:"CdtrAgt"`
	ChrgBr       string                `xml:"ChrgBr"`
	CdtrSchmeID  schemeID              `xml:"CdtrSchmeId"`
	DrctDbtTxInf []pain008DrctDbtTxInf `xml:"DrctDbtTxInf"`
}

type pain008PmtTpInf struct {
	SvcLvl    code   `xml:"SvcLvl"`
	LclInstrm code   `xml:"LclInstrm"`
	SeqTp     string `xml:"SeqTp"`
}

type pain008DrctDbtTxInf struct {
	PmtID     paymentID     `xml:"PmtId"`
	InstdAmt  amount        `xml:"InstdAmt"`
	DrctDbtTx directDebitTx `xml:"DrctDbtTx"`
	DbtrAgt   agent         `xml:"DbtrAgt"`
	Dbtr      partyName     `xml:"Dbtr"`
	DbtrAcct  account       `xml:"DbtrAcct"`
	RmtInf    remittance    `xml:"RmtInf"`
}

type partyName struct {
	Nm string `xml:"Nm"`
}

type code struct {
	Cd string `xml:"Cd"`
}

type account struct {
	IBAN string `xml:"Id>IBAN"`
}

type agent struct {
	OthrID string `xml:"FinInstnId>Othr>Id"`
}

type schemeID struct {
	ID    string `xml:"Id>PrvtId>Othr>Id"`
	Prtry string `xml:"Id>PrvtId>Othr>SchmeNm>Prtry"`
}

type paymentID struct {
	EndToEndID string `xml:"EndToEndId"`
}

type amount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type directDebitTx struct {
	MndtID    string `xml:"MndtRltdInf>MndtId"`
	DtOfSgntr string `xml:"MndtRltdInf>DtOfSgntr"`
}

type remittance struct {
	Ustrd string `xml:"Ustrd"`
}
