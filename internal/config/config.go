package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains runtime configuration required by the service.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `env:"ADDR" envDefault:":8080"`

	// DBURL is the postgres connection string.
	DBURL string `env:"DB_URL,required,notEmpty"`

	// ZoomSecretToken signs the url_validation handshake response and, when
	// VerifySignatures is set, verifies inbound webhook signatures.
	ZoomSecretToken string `env:"ZOOM_SECRET_TOKEN"`

	// VerifySignatures gates the inbound signature check. Off by default so
	// local development works without replaying signed deliveries.
	VerifySignatures bool `env:"ZOOM_VERIFY_SIGNATURES" envDefault:"false"`

	// CRM API access.
	CRMBaseURL string `env:"CRM_BASE_URL" envDefault:"https://rest.gohighlevel.com"`
	CRMAPIKey  string `env:"CRM_API_KEY,required,notEmpty"`

	// CRMLocationID is attached to newly created contacts.
	CRMLocationID string `env:"CRM_LOCATION_ID"`

	// CRMWorkflowID, when set, enrolls each resolved contact in that workflow.
	CRMWorkflowID string `env:"CRM_WORKFLOW_ID"`
}

// Load reads required values from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.VerifySignatures && cfg.ZoomSecretToken == "" {
		return Config{}, errors.New("ZOOM_SECRET_TOKEN required when ZOOM_VERIFY_SIGNATURES is set")
	}
	return cfg, nil
}
