package backend

import (
	"fmt"

	"poupai/internal/config"
)

// FromAppConfig converts the application config to a backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		RestBaseURL:  appConfig.RestAPIBaseURL,
		RestAPIToken: appConfig.RestAPIToken,
	}, nil
}

// Validate checks the backend configuration is usable.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case RestBackend:
		if c.RestBaseURL == "" {
			return fmt.Errorf("REST API base URL is required for rest backend")
		}
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for rest backend profiles")
		}
	case MemoryBackend:
		// Nothing to validate.
	}

	return nil
}
