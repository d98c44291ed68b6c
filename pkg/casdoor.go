package pkg

import (
	"github.com/SAP-F-2025/test-engine-service/internal/config"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

// NewCasdoorClient builds the SDK client used to read a user's admin flag
func NewCasdoorClient(cfg *config.Config) *casdoorsdk.Client {
	return casdoorsdk.NewClient(
		cfg.Casdoor.Endpoint,
		cfg.Casdoor.ClientID,
		cfg.Casdoor.ClientSecret,
		cfg.Casdoor.Certificate,
		cfg.Casdoor.OrganizationName,
		cfg.Casdoor.ApplicationName,
	)
}
