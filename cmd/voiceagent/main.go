// Command voiceagent is the call-center voice agent media server. It accepts
// caller media WebSocket connections and relays them to the Azure Voice Live
// realtime API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/config"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/health"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/observe"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/persona"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/relay"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/server"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voiceagent: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voiceagent: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voiceagent starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	cred, err := buildCredential(cfg.VoiceLive)
	if err != nil {
		slog.Error("failed to build credential", "err", err)
		return 1
	}

	sinks, closeSinks, err := buildSinks(ctx, cfg.Storage, cred)
	if err != nil {
		slog.Error("failed to build storage sinks", "err", err)
		return 1
	}
	defer closeSinks()

	upstream := relay.UpstreamConfig{
		Endpoint:   cfg.VoiceLive.Endpoint,
		Model:      cfg.VoiceLive.Model,
		APIVersion: cfg.VoiceLive.APIVersion,
		APIKey:     cfg.VoiceLive.APIKey,
		Credential: cred,
		Session:    buildSessionSettings(cfg.Session, logger),
	}

	srv := server.New(server.Params{
		ListenAddr: cfg.Server.ListenAddr,
		CertFile:   tlsFile(cfg.Server.TLS, func(t *config.TLSConfig) string { return t.CertFile }),
		KeyFile:    tlsFile(cfg.Server.TLS, func(t *config.TLSConfig) string { return t.KeyFile }),
		Upstream:   upstream,
		Sinks:      sinks,
		Checkers:   buildCheckers(cfg, upstream),
		Logger:     logger,
	})

	slog.Info("server ready — press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildCredential resolves the managed-identity credential when configured.
// A nil return with nil error selects the API-key auth path.
func buildCredential(vl config.VoiceLiveConfig) (azcore.TokenCredential, error) {
	if vl.IdentityClientID == "" {
		return nil, nil
	}
	cred, err := azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
		ID: azidentity.ClientID(vl.IdentityClientID),
	})
	if err != nil {
		return nil, fmt.Errorf("managed identity %q: %w", vl.IdentityClientID, err)
	}
	return cred, nil
}

// buildSinks constructs every configured conversation-log sink. The returned
// closer releases pooled resources on shutdown.
func buildSinks(ctx context.Context, st config.StorageConfig, cred azcore.TokenCredential) ([]storage.Sink, func(), error) {
	var sinks []storage.Sink
	var closers []func()

	if st.LocalDir != "" {
		sinks = append(sinks, storage.NewFileSink(st.LocalDir))
		slog.Info("storage sink enabled", "sink", "file", "dir", st.LocalDir)
	}

	if st.Blob != nil {
		blobCred := cred
		if blobCred == nil {
			var err error
			blobCred, err = azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, nil, fmt.Errorf("default credential for blob sink: %w", err)
			}
		}
		blob, err := storage.NewBlobSink(st.Blob.AccountURL, st.Blob.Container, blobCred)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, blob)
		slog.Info("storage sink enabled", "sink", "blob", "account", st.Blob.AccountURL, "container", st.Blob.Container)
	}

	if st.PostgresDSN != "" {
		pg, err := storage.NewPostgresSink(ctx, st.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pg)
		closers = append(closers, pg.Close)
		slog.Info("storage sink enabled", "sink", "postgres")
	}

	if len(sinks) == 0 {
		slog.Warn("no storage sinks configured — conversations will not be persisted")
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// buildSessionSettings maps the session configuration onto the upstream
// wire settings, resolving the persona instructions.
func buildSessionSettings(sc config.SessionConfig, logger *slog.Logger) relay.SessionSettings {
	settings := relay.SessionSettings{
		Instructions: persona.Load(sc.PromptFile, logger),
		TurnDetection: relay.TurnDetectionSettings{
			Type:              sc.TurnDetection.Type,
			Threshold:         sc.TurnDetection.Threshold,
			PrefixPaddingMs:   sc.TurnDetection.PrefixPaddingMs,
			SilenceDurationMs: sc.TurnDetection.SilenceDurationMs,
			RemoveFillerWords: sc.TurnDetection.RemoveFillerWords,
		},
		TranscriptionModel: sc.TranscriptionModel,
		NoiseReduction:     sc.NoiseReduction,
		EchoCancellation:   sc.EchoCancellation,
		Voice: relay.VoiceSettings{
			Name:        sc.Voice.Name,
			Type:        sc.Voice.Type,
			Temperature: sc.Voice.Temperature,
		},
	}
	if eou := sc.TurnDetection.EndOfUtterance; eou != nil {
		settings.TurnDetection.EndOfUtterance = &relay.EndOfUtteranceSettings{
			Model:          eou.Model,
			Threshold:      eou.Threshold,
			TimeoutSeconds: eou.TimeoutSeconds,
		}
	}
	return settings
}

// buildCheckers assembles the readiness probes: DNS resolution of the
// upstream endpoint and writability of the local log directory.
func buildCheckers(cfg *config.Config, upstream relay.UpstreamConfig) []health.Checker {
	var checkers []health.Checker

	checkers = append(checkers, health.Checker{
		Name: "upstream",
		Check: func(ctx context.Context) error {
			link := relay.NewUpstreamLink(upstream)
			return relay.ProbeEndpoint(ctx, link.URL())
		},
	})

	if dir := cfg.Storage.LocalDir; dir != "" {
		checkers = append(checkers, health.Checker{
			Name: "storage",
			Check: func(context.Context) error {
				return storage.CheckDirWritable(dir)
			},
		})
	}

	return checkers
}

func tlsFile(t *config.TLSConfig, get func(*config.TLSConfig) string) string {
	if t == nil {
		return ""
	}
	return get(t)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
