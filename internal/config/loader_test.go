package config

import (
	"strings"
	"testing"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
voicelive:
  endpoint: https://myresource.cognitiveservices.azure.com
  model: gpt-4o-realtime-preview
  api_key: secret
session:
  prompt_file: prompts/agent.txt
  transcription_model: whisper-1
  noise_reduction: azure_deep_noise_suppression
  echo_cancellation: server_echo_cancellation
  voice:
    name: en-US-Emma2:DragonHDLatestNeural
    type: azure-standard
    temperature: 0.8
  turn_detection:
    type: azure_semantic_vad
    threshold: 0.3
    prefix_padding_ms: 200
    silence_duration_ms: 200
storage:
  local_dir: logs
`

func TestLoadFromReaderValid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.VoiceLive.Model != "gpt-4o-realtime-preview" {
		t.Errorf("Model = %q", cfg.VoiceLive.Model)
	}
	if cfg.Session.Voice.Temperature != 0.8 {
		t.Errorf("Temperature = %v", cfg.Session.Voice.Temperature)
	}
	if cfg.Session.TurnDetection.Type != "azure_semantic_vad" {
		t.Errorf("TurnDetection.Type = %q", cfg.Session.TurnDetection.Type)
	}
}

func TestLoadFromReaderAppliesAPIVersionDefault(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.VoiceLive.APIVersion != DefaultAPIVersion {
		t.Errorf("APIVersion = %q, want default %q", cfg.VoiceLive.APIVersion, DefaultAPIVersion)
	}
}

func TestLoadFromReaderBlobContainerDefault(t *testing.T) {
	yaml := strings.Replace(validYAML,
		"storage:\n  local_dir: logs",
		"storage:\n  blob:\n    account_url: https://acct.blob.core.windows.net", 1)
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Storage.Blob.Container != "conversation-logs" {
		t.Errorf("Container = %q, want conversation-logs", cfg.Storage.Blob.Container)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	yaml := validYAML + "\nbogus_section:\n  key: value\n"
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("unknown top-level field accepted")
	}
}

func TestValidateCollectsAllFailures(t *testing.T) {
	cfg := &Config{}
	cfg.Server.LogLevel = "loud"
	cfg.Session.Voice.Temperature = 9

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate accepted an empty config")
	}
	msg := err.Error()
	for _, want := range []string{
		"log_level",
		"voicelive.endpoint is required",
		"voicelive.model is required",
		"api_key or identity_client_id",
		"temperature",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateAuthAlternatives(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.VoiceLive.Endpoint = "https://e"
		cfg.VoiceLive.Model = "m"
		return cfg
	}

	withKey := base()
	withKey.VoiceLive.APIKey = "k"
	if err := Validate(withKey); err != nil {
		t.Errorf("api_key-only config rejected: %v", err)
	}

	withIdentity := base()
	withIdentity.VoiceLive.IdentityClientID = "client-id"
	if err := Validate(withIdentity); err != nil {
		t.Errorf("identity-only config rejected: %v", err)
	}

	if err := Validate(base()); err == nil {
		t.Error("config with no auth accepted")
	}
}

func TestValidateTurnDetectionRanges(t *testing.T) {
	cfg := &Config{}
	cfg.VoiceLive.Endpoint = "https://e"
	cfg.VoiceLive.Model = "m"
	cfg.VoiceLive.APIKey = "k"
	cfg.Session.TurnDetection.Threshold = 1.5
	cfg.Session.TurnDetection.PrefixPaddingMs = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("out-of-range turn detection accepted")
	}
	if !strings.Contains(err.Error(), "threshold") || !strings.Contains(err.Error(), "prefix_padding_ms") {
		t.Errorf("error = %q, want threshold and prefix_padding_ms failures", err)
	}
}

func TestValidateTLSRequiresBothFiles(t *testing.T) {
	cfg := &Config{}
	cfg.VoiceLive.Endpoint = "https://e"
	cfg.VoiceLive.Model = "m"
	cfg.VoiceLive.APIKey = "k"
	cfg.Server.TLS = &TLSConfig{CertFile: "cert.pem"}

	if err := Validate(cfg); err == nil {
		t.Error("TLS config with missing key_file accepted")
	}
}
