package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in values that have a sensible fixed default.
func applyDefaults(cfg *Config) {
	if cfg.VoiceLive.APIVersion == "" {
		cfg.VoiceLive.APIVersion = DefaultAPIVersion
	}
	if cfg.Storage.Blob != nil && cfg.Storage.Blob.Container == "" {
		cfg.Storage.Blob.Container = "conversation-logs"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.VoiceLive.Endpoint == "" {
		errs = append(errs, errors.New("voicelive.endpoint is required"))
	}
	if cfg.VoiceLive.Model == "" {
		errs = append(errs, errors.New("voicelive.model is required"))
	}
	if cfg.VoiceLive.APIKey == "" && cfg.VoiceLive.IdentityClientID == "" {
		errs = append(errs, errors.New("voicelive requires either api_key or identity_client_id"))
	}
	if cfg.VoiceLive.APIKey != "" && cfg.VoiceLive.IdentityClientID != "" {
		slog.Warn("both voicelive.api_key and voicelive.identity_client_id are set; managed identity takes precedence")
	}

	td := cfg.Session.TurnDetection
	if td.Threshold < 0 || td.Threshold > 1 {
		errs = append(errs, fmt.Errorf("session.turn_detection.threshold %.2f is out of range [0, 1]", td.Threshold))
	}
	if td.PrefixPaddingMs < 0 {
		errs = append(errs, fmt.Errorf("session.turn_detection.prefix_padding_ms %d must be non-negative", td.PrefixPaddingMs))
	}
	if td.SilenceDurationMs < 0 {
		errs = append(errs, fmt.Errorf("session.turn_detection.silence_duration_ms %d must be non-negative", td.SilenceDurationMs))
	}
	if td.EndOfUtterance != nil {
		if td.EndOfUtterance.Threshold < 0 || td.EndOfUtterance.Threshold > 1 {
			errs = append(errs, fmt.Errorf("session.turn_detection.end_of_utterance.threshold %.2f is out of range [0, 1]", td.EndOfUtterance.Threshold))
		}
	}
	if t := cfg.Session.Voice.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("session.voice.temperature %.2f is out of range [0, 2]", t))
	}

	if cfg.Storage.Blob != nil {
		if cfg.Storage.Blob.AccountURL == "" {
			errs = append(errs, errors.New("storage.blob.account_url is required when the blob sink is configured"))
		}
		if cfg.VoiceLive.IdentityClientID == "" {
			slog.Warn("storage.blob is configured without voicelive.identity_client_id; blob uploads will use the default credential chain")
		}
	}
	if cfg.Storage.LocalDir == "" && cfg.Storage.Blob == nil && cfg.Storage.PostgresDSN == "" {
		slog.Warn("no storage sinks configured; conversation logs will not be persisted")
	}

	return errors.Join(errs...)
}
