package payment

// The Authorize.net JSON API validates element order against its XML
// schema, so struct field order below is significant.

type anetMerchantAuth struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type anetCreateTransactionEnvelope struct {
	Request anetCreateTransactionRequest `json:"createTransactionRequest"`
}

type anetCreateTransactionRequest struct {
	MerchantAuthentication anetMerchantAuth       `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	TransactionRequest     anetTransactionRequest `json:"transactionRequest"`
}

type anetTransactionRequest struct {
	TransactionType string        `json:"transactionType"`
	Amount          string        `json:"amount,omitempty"`
	CurrencyCode    string        `json:"currencyCode,omitempty"`
	Payment         *anetPayment  `json:"payment,omitempty"`
	RefTransID      string        `json:"refTransId,omitempty"`
	Order           *anetOrder    `json:"order,omitempty"`
	Customer        *anetCustomer `json:"customer,omitempty"`
}

type anetPayment struct {
	CreditCard *anetCreditCard `json:"creditCard,omitempty"`
	OpaqueData *anetOpaqueData `json:"opaqueData,omitempty"`
}

type anetCreditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
}

type anetOpaqueData struct {
	DataDescriptor string `json:"dataDescriptor"`
	DataValue      string `json:"dataValue"`
}

type anetOrder struct {
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	Description   string `json:"description,omitempty"`
}

type anetCustomer struct {
	Email string `json:"email,omitempty"`
}

type anetAuthenticateEnvelope struct {
	Request anetAuthenticateRequest `json:"authenticateTestRequest"`
}

type anetAuthenticateRequest struct {
	MerchantAuthentication anetMerchantAuth `json:"merchantAuthentication"`
}

type anetMessages struct {
	ResultCode string `json:"resultCode"`
	Message    []struct {
		Code string `json:"code"`
		Text string `json:"text"`
	} `json:"message"`
}

func (m anetMessages) ok() bool {
	return m.ResultCode == "Ok"
}

func (m anetMessages) first() (code, text string) {
	if len(m.Message) == 0 {
		return "", ""
	}
	return m.Message[0].Code, m.Message[0].Text
}

type anetTransactionResponse struct {
	ResponseCode  string `json:"responseCode"`
	AuthCode      string `json:"authCode"`
	TransID       string `json:"transId"`
	RefTransID    string `json:"refTransID"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType"`
	Messages      []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"messages"`
	Errors []struct {
		ErrorCode string `json:"errorCode"`
		ErrorText string `json:"errorText"`
	} `json:"errors"`
}

type anetResponse struct {
	TransactionResponse *anetTransactionResponse `json:"transactionResponse"`
	RefID               string                   `json:"refId"`
	Messages            anetMessages             `json:"messages"`
}

// Transaction response codes
const (
	anetApproved = "1"
	anetDeclined = "2"
	anetError    = "3"
	anetHeld     = "4"
)

// anetErrNotSettled is returned when refunding a transaction that has not settled
const anetErrNotSettled = "54"
