package erp

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The contract-based REST API wraps every field as {"value": ...}

type stringValue struct {
	Value string `json:"value"`
}

func str(s string) *stringValue {
	if s == "" {
		return nil
	}
	return &stringValue{Value: s}
}

func (v *stringValue) get() string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.Value)
}

type decimalValue struct {
	Value decimal.Decimal `json:"value"`
}

// MarshalJSON writes the amount as a JSON number
func (v decimalValue) MarshalJSON() ([]byte, error) {
	return []byte(`{"value":` + v.Value.StringFixed(2) + `}`), nil
}

func (v *decimalValue) get() decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return v.Value
}

type boolValue struct {
	Value bool `json:"value"`
}

type timeValue struct {
	Value string `json:"value"`
}

var acumaticaTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (v *timeValue) get() time.Time {
	if v == nil || v.Value == "" {
		return time.Time{}
	}
	for _, layout := range acumaticaTimeLayouts {
		if t, err := time.Parse(layout, v.Value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func timeOf(t time.Time) *timeValue {
	if t.IsZero() {
		return nil
	}
	return &timeValue{Value: t.Format(time.RFC3339)}
}

type acumaticaLogin struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Company  string `json:"company,omitempty"`
	Branch   string `json:"branch,omitempty"`
}

type acumaticaAddress struct {
	AddressLine1 *stringValue `json:"AddressLine1"`
	AddressLine2 *stringValue `json:"AddressLine2"`
	City         *stringValue `json:"City"`
	State        *stringValue `json:"State"`
	PostalCode   *stringValue `json:"PostalCode"`
	Country      *stringValue `json:"Country"`
}

type acumaticaContact struct {
	Attention *stringValue      `json:"Attention"`
	Email     *stringValue      `json:"Email"`
	Phone1    *stringValue      `json:"Phone1"`
	Address   *acumaticaAddress `json:"Address"`
}

type acumaticaCustomer struct {
	CustomerID           *stringValue      `json:"CustomerID"`
	CustomerName         *stringValue      `json:"CustomerName"`
	Status               *stringValue      `json:"Status"`
	Terms                *stringValue      `json:"Terms"`
	MainContact          *acumaticaContact `json:"MainContact"`
	LastModifiedDateTime *timeValue        `json:"LastModifiedDateTime"`
}

type acumaticaInvoice struct {
	Type                 *stringValue  `json:"Type"`
	ReferenceNbr         *stringValue  `json:"ReferenceNbr"`
	CustomerID           *stringValue  `json:"CustomerID"`
	Date                 *timeValue    `json:"Date"`
	DueDate              *timeValue    `json:"DueDate"`
	Amount               *decimalValue `json:"Amount"`
	Balance              *decimalValue `json:"Balance"`
	CurrencyID           *stringValue  `json:"CurrencyID"`
	Description          *stringValue  `json:"Description"`
	Status               *stringValue  `json:"Status"`
	Hold                 *boolValue    `json:"Hold"`
	LastModifiedDateTime *timeValue    `json:"LastModifiedDateTime"`
}

type acumaticaDocumentToApply struct {
	DocType      *stringValue `json:"DocType"`
	ReferenceNbr *stringValue `json:"ReferenceNbr"`
	AmountPaid   decimalValue `json:"AmountPaid"`
}

type acumaticaPayment struct {
	Type             *stringValue               `json:"Type"`
	ReferenceNbr     *stringValue               `json:"ReferenceNbr,omitempty"`
	CustomerID       *stringValue               `json:"CustomerID,omitempty"`
	PaymentMethod    *stringValue               `json:"PaymentMethod,omitempty"`
	CashAccount      *stringValue               `json:"CashAccount,omitempty"`
	Branch           *stringValue               `json:"Branch,omitempty"`
	PaymentAmount    *decimalValue              `json:"PaymentAmount,omitempty"`
	CurrencyID       *stringValue               `json:"CurrencyID,omitempty"`
	ApplicationDate  *timeValue                 `json:"ApplicationDate,omitempty"`
	PaymentRef       *stringValue               `json:"PaymentRef,omitempty"`
	Description      *stringValue               `json:"Description,omitempty"`
	Status           *stringValue               `json:"Status,omitempty"`
	DocumentsToApply []acumaticaDocumentToApply `json:"DocumentsToApply,omitempty"`
}

// acumaticaError is the body of a failed request
type acumaticaError struct {
	Message          string `json:"message"`
	ExceptionMessage string `json:"exceptionMessage"`
	// Entity validation errors come back on the entity itself
	Error string `json:"error"`
}

func (e acumaticaError) text() string {
	for _, s := range []string{e.ExceptionMessage, e.Error, e.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

// parseErrorMessage extracts the message from an error body, falling back to
// the raw text when it is not JSON
func parseErrorMessage(body []byte) string {
	var e acumaticaError
	if err := json.Unmarshal(body, &e); err == nil && e.text() != "" {
		return e.text()
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
