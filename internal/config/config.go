// Package config provides the configuration schema, loader, and validation
// for the call-center voice agent server.
package config

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// DefaultAPIVersion is the Voice Live API version pinned by this release.
const DefaultAPIVersion = "2025-05-01-preview"

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	VoiceLive VoiceLiveConfig `yaml:"voicelive"`
	Session   SessionConfig   `yaml:"session"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds network and logging settings for the media server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// VoiceLiveConfig describes the upstream Voice Live service connection.
type VoiceLiveConfig struct {
	// Endpoint is the service base URL (e.g., "https://myresource.cognitiveservices.azure.com").
	// A trailing slash is tolerated and stripped at connect time.
	Endpoint string `yaml:"endpoint"`

	// Model selects the realtime model to converse with.
	Model string `yaml:"model"`

	// APIKey authenticates with a static key header. Ignored when
	// IdentityClientID is set.
	APIKey string `yaml:"api_key"`

	// IdentityClientID selects the managed-identity auth path: when non-empty
	// a bearer token is resolved for this user-assigned identity at connect
	// time instead of sending the API key.
	IdentityClientID string `yaml:"identity_client_id"`

	// APIVersion pins the wire API version. Defaults to [DefaultAPIVersion].
	APIVersion string `yaml:"api_version"`
}

// SessionConfig configures the conversational session that is pushed to the
// upstream service immediately after connecting.
type SessionConfig struct {
	// PromptFile is the path to the persona/system-prompt text file. When the
	// file is missing a built-in fallback persona is used.
	PromptFile string `yaml:"prompt_file"`

	// Voice selects the synthesised voice.
	Voice VoiceConfig `yaml:"voice"`

	// TurnDetection tunes upstream voice-activity detection.
	TurnDetection TurnDetectionConfig `yaml:"turn_detection"`

	// TranscriptionModel selects the input-audio transcription model
	// (e.g., "whisper-1").
	TranscriptionModel string `yaml:"transcription_model"`

	// NoiseReduction selects the input noise-reduction mode
	// (e.g., "azure_deep_noise_suppression").
	NoiseReduction string `yaml:"noise_reduction"`

	// EchoCancellation selects the echo-cancellation mode
	// (e.g., "server_echo_cancellation").
	EchoCancellation string `yaml:"echo_cancellation"`
}

// VoiceConfig specifies the upstream voice profile.
type VoiceConfig struct {
	// Name is the provider voice identifier (e.g., "en-US-Emma2:DragonHDLatestNeural").
	Name string `yaml:"name"`

	// Type is the voice family (e.g., "azure-standard").
	Type string `yaml:"type"`

	// Temperature adjusts prosody variation in the range [0, 2].
	Temperature float64 `yaml:"temperature"`
}

// TurnDetectionConfig tunes the upstream turn detector.
type TurnDetectionConfig struct {
	// Type selects the detector (e.g., "azure_semantic_vad").
	Type string `yaml:"type"`

	// Threshold is the activation threshold in [0, 1].
	Threshold float64 `yaml:"threshold"`

	// PrefixPaddingMs is audio retained before detected speech onset.
	PrefixPaddingMs int `yaml:"prefix_padding_ms"`

	// SilenceDurationMs is the trailing silence that ends a turn.
	SilenceDurationMs int `yaml:"silence_duration_ms"`

	// RemoveFillerWords strips filler words from detected speech.
	RemoveFillerWords bool `yaml:"remove_filler_words"`

	// EndOfUtterance optionally enables a secondary end-of-utterance
	// detector. Nil disables it.
	EndOfUtterance *EndOfUtteranceConfig `yaml:"end_of_utterance"`
}

// EndOfUtteranceConfig configures the optional end-of-utterance sub-detector.
type EndOfUtteranceConfig struct {
	// Model selects the detection model.
	Model string `yaml:"model"`

	// Threshold is the detector's activation threshold in [0, 1].
	Threshold float64 `yaml:"threshold"`

	// TimeoutSeconds bounds how long the detector may hold a turn open.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
}

// StorageConfig lists the conversation-log persistence sinks. Every
// configured sink is attempted independently at session end; all writes are
// best-effort.
type StorageConfig struct {
	// LocalDir is a directory for local JSON conversation logs. Empty
	// disables the local sink.
	LocalDir string `yaml:"local_dir"`

	// Blob configures the Azure Blob sink. Nil disables it.
	Blob *BlobConfig `yaml:"blob"`

	// PostgresDSN is the connection string for the Postgres sink. Empty
	// disables it.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig holds Azure Blob Storage settings for the blob sink. The blob
// sink authenticates with the same managed identity as the upstream link.
type BlobConfig struct {
	// AccountURL is the storage account endpoint
	// (e.g., "https://myaccount.blob.core.windows.net").
	AccountURL string `yaml:"account_url"`

	// Container is the blob container name. Defaults to "conversation-logs".
	Container string `yaml:"container"`
}
