package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural validity of a Config. All problems are
// reported at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.Server.VerifyToken == "" {
		errs = append(errs, errors.New("config: server.verify_token is required"))
	}
	if cfg.Server.AppSecret == "" {
		errs = append(errs, errors.New("config: server.app_secret is required"))
	}

	if cfg.WhatsApp.Token == "" {
		errs = append(errs, errors.New("config: whatsapp.token is required"))
	}
	if cfg.WhatsApp.PhoneNumberID == "" {
		errs = append(errs, errors.New("config: whatsapp.phone_number_id is required"))
	}
	if cfg.WhatsApp.SendLimit < 0 {
		errs = append(errs, errors.New("config: whatsapp.send_limit must not be negative"))
	}

	if cfg.Provider.APIKey != "" && cfg.Provider.Model == "" {
		errs = append(errs, errors.New("config: provider.model is required when provider.api_key is set"))
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		errs = append(errs, fmt.Errorf("config: provider.temperature %v out of range [0, 2]", cfg.Provider.Temperature))
	}

	if cfg.Store.Path == "" {
		errs = append(errs, errors.New("config: store.path is required"))
	}

	if cfg.Cache.TTL < 0 {
		errs = append(errs, errors.New("config: cache.ttl must not be negative"))
	}
	if cfg.Engine.Workers < 0 {
		errs = append(errs, errors.New("config: engine.workers must not be negative"))
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown logging.level %q", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: unknown logging.format %q", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}
