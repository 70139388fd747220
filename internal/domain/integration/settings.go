package integration

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Provider identifies an external system
type Provider string

const (
	ProviderStripe       Provider = "STRIPE"
	ProviderAuthorizeNet Provider = "AUTHORIZE_NET"
	ProviderAcumatica    Provider = "ACUMATICA"
)

// AllProviders lists every supported provider
var AllProviders = []Provider{ProviderStripe, ProviderAuthorizeNet, ProviderAcumatica}

// IsValid checks if the provider is valid
func (p Provider) IsValid() bool {
	switch p {
	case ProviderStripe, ProviderAuthorizeNet, ProviderAcumatica:
		return true
	}
	return false
}

// IsGateway returns true for card processors
func (p Provider) IsGateway() bool {
	return p == ProviderStripe || p == ProviderAuthorizeNet
}

// GatewayType maps a gateway provider to the payment's gateway type
func (p Provider) GatewayType() finance.GatewayType {
	switch p {
	case ProviderStripe:
		return finance.GatewayTypeStripe
	case ProviderAuthorizeNet:
		return finance.GatewayTypeAuthorizeNet
	}
	return finance.GatewayTypeNone
}

// ProviderForGateway is the inverse of Provider.GatewayType
func ProviderForGateway(g finance.GatewayType) (Provider, bool) {
	switch g {
	case finance.GatewayTypeStripe:
		return ProviderStripe, true
	case finance.GatewayTypeAuthorizeNet:
		return ProviderAuthorizeNet, true
	}
	return "", false
}

// TestStatus is the outcome of the last connection test
type TestStatus string

const (
	TestStatusNone    TestStatus = "NONE"
	TestStatusSuccess TestStatus = "SUCCESS"
	TestStatusFailed  TestStatus = "FAILED"
)

// DefaultAcumaticaAPIVersion is the contract-based endpoint version used when none is set
const DefaultAcumaticaAPIVersion = "23.200.001"

// Config is the non-secret part of a provider's settings
type Config struct {
	// Gateways
	IsDefaultGateway bool   `json:"is_default_gateway,omitempty"`
	PublishableKey   string `json:"publishable_key,omitempty"` // Stripe
	ClientKey        string `json:"client_key,omitempty"`      // Authorize.net Accept.js public key
	Sandbox          bool   `json:"sandbox,omitempty"`         // Authorize.net

	// Acumatica
	BaseURL              string                           `json:"base_url,omitempty"`
	Company              string                           `json:"company,omitempty"`
	Branch               string                           `json:"branch,omitempty"`
	APIVersion           string                           `json:"api_version,omitempty"`
	CashAccount          string                           `json:"cash_account,omitempty"`
	PaymentMethodMapping map[finance.PaymentMethod]string `json:"payment_method_mapping,omitempty"`
	AutoSyncPayments     bool                             `json:"auto_sync_payments,omitempty"`
	AutoSyncDocuments    bool                             `json:"auto_sync_documents,omitempty"`
	SyncIntervalMinutes  int                              `json:"sync_interval_minutes,omitempty"`
}

// Credentials are the secrets of a provider. They are stored encrypted.
type Credentials struct {
	// Stripe
	SecretKey     string `json:"secret_key,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`

	// Authorize.net
	APILoginID     string `json:"api_login_id,omitempty"`
	TransactionKey string `json:"transaction_key,omitempty"`
	SignatureKey   string `json:"signature_key,omitempty"`

	// Acumatica
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// merge copies the non-empty fields of update over c
func (c Credentials) merge(update Credentials) Credentials {
	pick := func(cur, next string) string {
		if strings.TrimSpace(next) == "" {
			return cur
		}
		return strings.TrimSpace(next)
	}
	return Credentials{
		SecretKey:      pick(c.SecretKey, update.SecretKey),
		WebhookSecret:  pick(c.WebhookSecret, update.WebhookSecret),
		APILoginID:     pick(c.APILoginID, update.APILoginID),
		TransactionKey: pick(c.TransactionKey, update.TransactionKey),
		SignatureKey:   pick(c.SignatureKey, update.SignatureKey),
		Username:       pick(c.Username, update.Username),
		Password:       pick(c.Password, update.Password),
	}
}

// Masked returns the credentials with every secret reduced to its last 4 characters
func (c Credentials) Masked() map[string]string {
	out := make(map[string]string)
	add := func(name, v string) {
		if v != "" {
			out[name] = MaskSecret(v)
		}
	}
	add("secret_key", c.SecretKey)
	add("webhook_secret", c.WebhookSecret)
	add("api_login_id", c.APILoginID)
	add("transaction_key", c.TransactionKey)
	add("signature_key", c.SignatureKey)
	if c.Username != "" {
		out["username"] = c.Username
	}
	add("password", c.Password)
	return out
}

// MaskSecret keeps the last 4 characters of a secret
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// CredentialCipher encrypts credentials at rest
type CredentialCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// Settings is one organization's configuration for one provider
type Settings struct {
	shared.OrgAggregateRoot
	Provider             Provider
	Enabled              bool
	Config               Config
	EncryptedCredentials string
	LastTestedAt         *time.Time
	LastTestStatus       TestStatus
	LastTestMessage      string
}

// NewSettings creates disabled, empty settings for provider
func NewSettings(orgID uuid.UUID, provider Provider) (*Settings, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	if !provider.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROVIDER", fmt.Sprintf("Unknown integration provider %q", provider))
	}
	return &Settings{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		Provider:         provider,
		LastTestStatus:   TestStatusNone,
	}, nil
}

// Credentials decrypts the stored credentials
func (s *Settings) Credentials(cipher CredentialCipher) (Credentials, error) {
	var creds Credentials
	if s.EncryptedCredentials == "" {
		return creds, nil
	}
	plaintext, err := cipher.Decrypt(s.EncryptedCredentials)
	if err != nil {
		return creds, fmt.Errorf("integration: decrypt %s credentials: %w", s.Provider, err)
	}
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return creds, fmt.Errorf("integration: decode %s credentials: %w", s.Provider, err)
	}
	return creds, nil
}

// Update replaces the config and merges non-empty credential fields, then
// validates that an enabled provider has everything it needs.
func (s *Settings) Update(enabled bool, cfg Config, update Credentials, cipher CredentialCipher, actor uuid.UUID) error {
	current, err := s.Credentials(cipher)
	if err != nil {
		return err
	}
	merged := current.merge(update)
	cfg = normalizeConfig(s.Provider, cfg)
	if enabled {
		if err := validateProvider(s.Provider, cfg, merged); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("integration: encode credentials: %w", err)
	}
	encrypted, err := cipher.Encrypt(raw)
	if err != nil {
		return fmt.Errorf("integration: encrypt credentials: %w", err)
	}

	s.Enabled = enabled
	s.Config = cfg
	s.EncryptedCredentials = encrypted
	s.LastTestStatus = TestStatusNone
	s.LastTestMessage = ""
	s.IncrementVersion()
	s.AddDomainEvent(NewSettingsUpdatedEvent(s, actor))
	return nil
}

// RecordTest stores the outcome of a connection test
func (s *Settings) RecordTest(testErr error) {
	now := time.Now()
	s.LastTestedAt = &now
	if testErr != nil {
		s.LastTestStatus = TestStatusFailed
		s.LastTestMessage = testErr.Error()
	} else {
		s.LastTestStatus = TestStatusSuccess
		s.LastTestMessage = ""
	}
	s.IncrementVersion()
}

// SyncInterval returns the auto-sync interval, defaulting to one hour
func (s *Settings) SyncInterval() time.Duration {
	if s.Config.SyncIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.Config.SyncIntervalMinutes) * time.Minute
}

// ERPPaymentMethod maps a local payment method to the Acumatica payment method ID
func (s *Settings) ERPPaymentMethod(m finance.PaymentMethod) string {
	if v, ok := s.Config.PaymentMethodMapping[m]; ok && v != "" {
		return v
	}
	return string(m)
}

func normalizeConfig(p Provider, cfg Config) Config {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Company = strings.TrimSpace(cfg.Company)
	cfg.Branch = strings.TrimSpace(cfg.Branch)
	if p == ProviderAcumatica && cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAcumaticaAPIVersion
	}
	if !p.IsGateway() {
		cfg.IsDefaultGateway = false
	}
	if cfg.SyncIntervalMinutes < 0 {
		cfg.SyncIntervalMinutes = 0
	}
	return cfg
}

func validateProvider(p Provider, cfg Config, creds Credentials) error {
	missing := func(field string) error {
		return shared.NewDomainError("INCOMPLETE_SETTINGS", fmt.Sprintf("%s requires %s", p, field))
	}
	switch p {
	case ProviderStripe:
		if creds.SecretKey == "" {
			return missing("secret_key")
		}
		if !strings.HasPrefix(creds.SecretKey, "sk_") && !strings.HasPrefix(creds.SecretKey, "rk_") {
			return shared.NewDomainError("INVALID_SETTINGS", "Stripe secret key must start with sk_ or rk_")
		}
	case ProviderAuthorizeNet:
		if creds.APILoginID == "" {
			return missing("api_login_id")
		}
		if creds.TransactionKey == "" {
			return missing("transaction_key")
		}
	case ProviderAcumatica:
		if cfg.BaseURL == "" {
			return missing("base_url")
		}
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return shared.NewDomainError("INVALID_SETTINGS", "Acumatica base URL must be an absolute http(s) URL")
		}
		if creds.Username == "" || creds.Password == "" {
			return missing("username and password")
		}
		if cfg.SyncIntervalMinutes != 0 && cfg.SyncIntervalMinutes < 5 {
			return shared.NewDomainError("INVALID_SETTINGS", "Sync interval must be at least 5 minutes")
		}
	}
	return nil
}
