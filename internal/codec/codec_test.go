package codec

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/sepadd/internal/model"
)

const (
	debtorIBAN   = "DE89370400440532013000"
	creditorIBAN = "GB29NWBK60161331926819"
	creditorID   = "DE98ZZZ09999999999"
)

var fixedNow = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func testDefaults(t *testing.T) model.Defaults {
	t.Helper()
	d, err := model.NewDefaults("2025-02-01", creditorID, "Acme Club e.V.", creditorIBAN)
	require.NoError(t, err)
	return d
}

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	g := NewGenerator(testDefaults(t))
	g.now = func() time.Time { return fixedNow }
	return g
}

func transfer(t *testing.T, p model.TransferParams) model.Transfer {
	t.Helper()
	if p.IBAN == "" {
		p.IBAN = debtorIBAN
	}
	if p.Name == "" {
		p.Name = "Jane Doe"
	}
	if p.MandateDate.IsZero() {
		p.MandateDate = date(2024, 11, 5)
	}
	tr, err := model.NewTransfer(p)
	require.NoError(t, err)
	return tr
}

func batch(t *testing.T, p model.PaymentInformationParams) *model.PaymentInformation {
	t.Helper()
	pi, err := model.NewPaymentInformation(p)
	require.NoError(t, err)
	return pi
}
