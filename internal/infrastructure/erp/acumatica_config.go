package erp

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/arflow/backend/internal/domain/integration"
)

// Errors for Acumatica configuration
var (
	ErrAcumaticaMissingBaseURL  = errors.New("acumatica: base URL is required")
	ErrAcumaticaInvalidBaseURL  = errors.New("acumatica: base URL must be an absolute http(s) URL")
	ErrAcumaticaMissingUsername = errors.New("acumatica: username is required")
	ErrAcumaticaMissingPassword = errors.New("acumatica: password is required")
)

const (
	defaultTimeout  = 60 * time.Second
	defaultPageSize = 500
)

// AcumaticaConfig holds one organization's Acumatica connection
type AcumaticaConfig struct {
	// BaseURL is the instance root, e.g. https://acme.acumatica.com
	BaseURL  string
	Username string
	Password string
	Company  string
	Branch   string
	// APIVersion is the Default contract endpoint version
	APIVersion string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// PageSize is the number of records requested per list call
	PageSize int
}

// NewAcumaticaConfig builds the connection from integration settings
func NewAcumaticaConfig(cfg integration.Config, creds integration.Credentials) *AcumaticaConfig {
	return &AcumaticaConfig{
		BaseURL:    cfg.BaseURL,
		Username:   creds.Username,
		Password:   creds.Password,
		Company:    cfg.Company,
		Branch:     cfg.Branch,
		APIVersion: cfg.APIVersion,
		Timeout:    defaultTimeout,
		PageSize:   defaultPageSize,
	}
}

// Validate validates the configuration and fills defaults
func (c *AcumaticaConfig) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrAcumaticaMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrAcumaticaInvalidBaseURL
	}
	if c.Username == "" {
		return ErrAcumaticaMissingUsername
	}
	if c.Password == "" {
		return ErrAcumaticaMissingPassword
	}
	if c.APIVersion == "" {
		c.APIVersion = integration.DefaultAcumaticaAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	return nil
}

// entityURL returns the Default endpoint URL for entity
func (c *AcumaticaConfig) entityURL(entity string) string {
	return c.BaseURL + "/entity/Default/" + c.APIVersion + "/" + entity
}

func (c *AcumaticaConfig) authURL(action string) string {
	return c.BaseURL + "/entity/auth/" + action
}
