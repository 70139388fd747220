package payment

import (
	"errors"
	"net/http"
	"time"
)

const (
	authorizeNetProductionURL = "https://api.authorize.net/xml/v1/request.api"
	authorizeNetSandboxURL    = "https://apitest.authorize.net/xml/v1/request.api"
)

var (
	ErrAuthorizeNetMissingLoginID        = errors.New("authorizenet: missing API login ID")
	ErrAuthorizeNetMissingTransactionKey = errors.New("authorizenet: missing transaction key")
)

// AuthorizeNetConfig holds one organization's Authorize.net credentials
type AuthorizeNetConfig struct {
	APILoginID     string
	TransactionKey string
	Sandbox        bool
	// Endpoint overrides the API URL chosen from Sandbox
	Endpoint   string
	HTTPClient *http.Client
}

// Validate validates the configuration
func (c *AuthorizeNetConfig) Validate() error {
	if c.APILoginID == "" {
		return ErrAuthorizeNetMissingLoginID
	}
	if c.TransactionKey == "" {
		return ErrAuthorizeNetMissingTransactionKey
	}
	return nil
}

// URL returns the API endpoint
func (c *AuthorizeNetConfig) URL() string {
	switch {
	case c.Endpoint != "":
		return c.Endpoint
	case c.Sandbox:
		return authorizeNetSandboxURL
	default:
		return authorizeNetProductionURL
	}
}

func (c *AuthorizeNetConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
