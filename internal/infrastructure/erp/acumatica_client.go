package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from Acumatica (10MB)
const maxResponseSize = 10 * 1024 * 1024

// AcumaticaClient implements integration.ERPClient against the
// contract-based REST API. The session lives in the cookie jar, so one
// client serves a single sync run: Login, calls, Logout.
type AcumaticaClient struct {
	config     *AcumaticaConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.Mutex
	loggedIn bool
}

// NewAcumaticaClient creates a new Acumatica client
func NewAcumaticaClient(config *AcumaticaConfig, logger *zap.Logger) (*AcumaticaClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("acumatica: failed to create cookie jar: %w", err)
	}
	return &AcumaticaClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// ClientFactory builds ERP clients from integration settings
type ClientFactory struct {
	logger   *zap.Logger
	timeout  time.Duration
	pageSize int
}

// ClientFactoryOption tunes the clients a ClientFactory builds
type ClientFactoryOption func(*ClientFactory)

// WithRequestTimeout sets the per-request HTTP timeout
func WithRequestTimeout(d time.Duration) ClientFactoryOption {
	return func(f *ClientFactory) { f.timeout = d }
}

// WithPageSize sets how many records a list call fetches per page
func WithPageSize(n int) ClientFactoryOption {
	return func(f *ClientFactory) { f.pageSize = n }
}

// NewClientFactory creates a new ClientFactory
func NewClientFactory(logger *zap.Logger, opts ...ClientFactoryOption) *ClientFactory {
	f := &ClientFactory{logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New returns a client for one organization's Acumatica settings
func (f *ClientFactory) New(cfg integration.Config, creds integration.Credentials) (integration.ERPClient, error) {
	conn := NewAcumaticaConfig(cfg, creds)
	if f.timeout > 0 {
		conn.Timeout = f.timeout
	}
	if f.pageSize > 0 {
		conn.PageSize = f.pageSize
	}
	client, err := NewAcumaticaClient(conn, f.logger.Named("acumatica"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrERPNotConfigured, err)
	}
	return client, nil
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// Login opens a session. Calling it on an open session is a no-op.
func (c *AcumaticaClient) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}
	_, err := c.do(ctx, http.MethodPost, c.config.authURL("login"), acumaticaLogin{
		Name:     c.config.Username,
		Password: c.config.Password,
		Company:  c.config.Company,
		Branch:   c.config.Branch,
	})
	if err != nil {
		return err
	}
	c.loggedIn = true
	logger.Enrich(ctx, c.logger).Debug("acumatica session opened", zap.String("base_url", c.config.BaseURL))
	return nil
}

// Logout closes the session. Acumatica limits concurrent sessions per
// user, so callers should always log out.
func (c *AcumaticaClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return nil
	}
	c.loggedIn = false
	_, err := c.do(ctx, http.MethodPost, c.config.authURL("logout"), nil)
	return err
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

// ListCustomers returns customers modified after modifiedSince, or all
// customers when it is nil
func (c *AcumaticaClient) ListCustomers(ctx context.Context, modifiedSince *time.Time) ([]integration.ERPCustomer, error) {
	var out []integration.ERPCustomer
	err := c.list(ctx, "Customer", modifiedSince, "MainContact,MainContact/Address", func(raw json.RawMessage) error {
		var rows []acumaticaCustomer
		if err := json.Unmarshal(raw, &rows); err != nil {
			return err
		}
		for i := range rows {
			if cust, ok := convertCustomer(&rows[i]); ok {
				out = append(out, cust)
			}
		}
		return nil
	}, countRows)
	return out, err
}

func convertCustomer(row *acumaticaCustomer) (integration.ERPCustomer, bool) {
	id := row.CustomerID.get()
	if id == "" {
		return integration.ERPCustomer{}, false
	}
	cust := integration.ERPCustomer{
		CustomerID:       id,
		Name:             row.CustomerName.get(),
		PaymentTermsDays: termsDays(row.Terms.get()),
		Active:           !strings.EqualFold(row.Status.get(), "Inactive"),
		LastModified:     row.LastModifiedDateTime.get(),
	}
	if cust.Name == "" {
		cust.Name = id
	}
	if mc := row.MainContact; mc != nil {
		cust.ContactName = mc.Attention.get()
		cust.Email = mc.Email.get()
		cust.Phone = mc.Phone1.get()
		if a := mc.Address; a != nil {
			cust.AddressLine1 = a.AddressLine1.get()
			cust.AddressLine2 = a.AddressLine2.get()
			cust.City = a.City.get()
			cust.State = a.State.get()
			cust.PostalCode = a.PostalCode.get()
			cust.Country = a.Country.get()
		}
	}
	return cust, true
}

// termsDays reads the day count from a terms code such as "30D" or "NET45".
// Codes without digits mean due on receipt.
func termsDays(terms string) int {
	start := strings.IndexAny(terms, "0123456789")
	if start < 0 {
		return 0
	}
	end := start
	for end < len(terms) && terms[end] >= '0' && terms[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(terms[start:end])
	if err != nil {
		return 0
	}
	return n
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// acumaticaDocTypes maps the Invoice entity's Type to ours. Other types
// (overdue charges, write-offs) are not synced.
var acumaticaDocTypes = map[string]finance.DocumentType{
	"Invoice":     finance.DocumentTypeInvoice,
	"Debit Memo":  finance.DocumentTypeDebitMemo,
	"Credit Memo": finance.DocumentTypeCreditMemo,
}

// unreleasedStatuses are documents not yet posted to the ledger
var unreleasedStatuses = map[string]bool{
	"On Hold":          true,
	"Balanced":         true,
	"Pending Approval": true,
	"Rejected":         true,
	"Scheduled":        true,
}

// ListDocuments returns released invoices and memos modified after
// modifiedSince, or all of them when it is nil
func (c *AcumaticaClient) ListDocuments(ctx context.Context, modifiedSince *time.Time) ([]integration.ERPDocument, error) {
	var out []integration.ERPDocument
	err := c.list(ctx, "Invoice", modifiedSince, "", func(raw json.RawMessage) error {
		var rows []acumaticaInvoice
		if err := json.Unmarshal(raw, &rows); err != nil {
			return err
		}
		for i := range rows {
			if doc, ok := convertInvoice(&rows[i]); ok {
				out = append(out, doc)
			}
		}
		return nil
	}, countRows)
	return out, err
}

func convertInvoice(row *acumaticaInvoice) (integration.ERPDocument, bool) {
	docType, ok := acumaticaDocTypes[row.Type.get()]
	if !ok {
		return integration.ERPDocument{}, false
	}
	status := row.Status.get()
	if unreleasedStatuses[status] || (row.Hold != nil && row.Hold.Value) {
		return integration.ERPDocument{}, false
	}
	ref := row.ReferenceNbr.get()
	if ref == "" {
		return integration.ERPDocument{}, false
	}
	return integration.ERPDocument{
		Type:         docType,
		ReferenceNbr: ref,
		CustomerID:   row.CustomerID.get(),
		Date:         row.Date.get(),
		DueDate:      row.DueDate.get(),
		Amount:       row.Amount.get().Abs(),
		Balance:      row.Balance.get().Abs(),
		Currency:     row.CurrencyID.get(),
		Description:  row.Description.get(),
		Status:       status,
		Voided:       status == "Voided" || status == "Canceled",
		LastModified: row.LastModifiedDateTime.get(),
	}, true
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

// CreatePayment creates a customer payment with its document applications
func (c *AcumaticaClient) CreatePayment(ctx context.Context, p *integration.ERPPayment) (*integration.ERPPaymentResult, error) {
	body := acumaticaPayment{
		Type:            str("Payment"),
		CustomerID:      str(p.CustomerID),
		PaymentMethod:   str(p.PaymentMethod),
		CashAccount:     str(p.CashAccount),
		Branch:          str(p.Branch),
		PaymentAmount:   &decimalValue{Value: p.Amount},
		CurrencyID:      str(p.Currency),
		ApplicationDate: timeOf(p.ApplicationDate),
		PaymentRef:      str(p.PaymentRef),
		Description:     str(p.Description),
	}
	for _, d := range p.Documents {
		body.DocumentsToApply = append(body.DocumentsToApply, acumaticaDocumentToApply{
			DocType:      str(acumaticaDocTypeName(d.DocType)),
			ReferenceNbr: str(d.ReferenceNbr),
			AmountPaid:   decimalValue{Value: d.AmountPaid},
		})
	}

	raw, err := c.do(ctx, http.MethodPut, c.config.entityURL("Payment"), body)
	if err != nil {
		return nil, err
	}
	var created acumaticaPayment
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrERPInvalidResponse, err)
	}
	ref := created.ReferenceNbr.get()
	if ref == "" {
		return nil, fmt.Errorf("%w: payment created without a reference number", integration.ErrERPInvalidResponse)
	}
	logger.Enrich(ctx, c.logger).Info("acumatica payment created",
		zap.String("reference_nbr", ref),
		zap.String("payment_ref", p.PaymentRef))
	return &integration.ERPPaymentResult{ReferenceNbr: ref, Status: created.Status.get()}, nil
}

func acumaticaDocTypeName(t finance.DocumentType) string {
	for name, dt := range acumaticaDocTypes {
		if dt == t {
			return name
		}
	}
	return string(t)
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// list pages through an entity with $top/$skip until a short page
func (c *AcumaticaClient) list(ctx context.Context, entity string, modifiedSince *time.Time, expand string,
	decode func(json.RawMessage) error, count func(json.RawMessage) int) error {
	pageSize := c.config.PageSize
	for skip := 0; ; skip += pageSize {
		q := url.Values{}
		q.Set("$top", strconv.Itoa(pageSize))
		q.Set("$skip", strconv.Itoa(skip))
		if expand != "" {
			q.Set("$expand", expand)
		}
		if modifiedSince != nil {
			q.Set("$filter", fmt.Sprintf("LastModifiedDateTime gt datetimeoffset'%s'", modifiedSince.UTC().Format(time.RFC3339)))
		}
		raw, err := c.do(ctx, http.MethodGet, c.config.entityURL(entity)+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		if err := decode(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", integration.ErrERPInvalidResponse, entity, err)
		}
		if count(raw) < pageSize {
			return nil
		}
	}
}

func countRows(raw json.RawMessage) int {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0
	}
	return len(rows)
}

// do sends a request and returns the body of a 2xx reply. Failures become
// *integration.ERPError carrying the HTTP status and the ERP's message.
func (c *AcumaticaClient) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("acumatica: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("acumatica: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &integration.ERPError{Message: err.Error(), Err: integration.ErrERPUnavailable}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("acumatica: failed to read response: %w", err)
	}
	logger.Enrich(ctx, c.logger).Debug("acumatica request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < http.StatusBadRequest {
		return raw, nil
	}
	erpErr := &integration.ERPError{StatusCode: resp.StatusCode, Message: parseErrorMessage(raw)}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		erpErr.Err = integration.ErrERPAuthFailed
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		erpErr.Err = integration.ErrERPUnavailable
	default:
		erpErr.Err = integration.ErrERPRequestFailed
	}
	return nil, erpErr
}

var _ integration.ERPClient = (*AcumaticaClient)(nil)
