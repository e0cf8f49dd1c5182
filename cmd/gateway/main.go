// Command gateway is the process entrypoint: load configuration, wire the
// LLM provider layer, tool dispatcher, and STT/TTS engine adapters, and
// serve the signalling WebSocket over HTTP or HTTPS depending on whether a
// TLS cert/key pair is configured.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicebridge/gateway/internal/config"
	"github.com/voicebridge/gateway/internal/httpapi"
	"github.com/voicebridge/gateway/internal/llm"
	"github.com/voicebridge/gateway/internal/session"
	"github.com/voicebridge/gateway/internal/tools"
	"github.com/voicebridge/gateway/internal/transcription"
	"github.com/voicebridge/gateway/internal/tts"
	"github.com/voicebridge/gateway/pkg/commons"
)

func main() {
	v, err := config.InitConfig()
	if err != nil {
		log.Fatalf("init config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := commons.NewZapLogger(commons.LogConfig{Level: cfg.LogLevel, FilePath: cfg.LogFilePath})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	iceServers := parseICEServers(cfg.ICEServersJSON, logger)

	search := tools.NewWebSearchTool(cfg.TavilyAPIKey, cfg.BraveAPIKey, logger)
	registry := tools.NewDefaultRegistry(search)
	dispatcher := tools.NewDispatcher(registry, logger)

	manager := llm.NewManager(llm.ManagerConfig{
		OllamaURL:       cfg.OllamaURL,
		OllamaModel:     cfg.OllamaModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.DefaultLLMModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.DefaultLLMModel,
	}, logger)

	sttEngine := transcription.NewWhisperHTTPEngine(cfg.STTServerURL, logger)
	ttsEngine := tts.NewWebSocketEngine(cfg.TTSServerURL, "", "", 22050)

	deps := &httpapi.Deps{
		Logger:       logger,
		AuthToken:    cfg.AuthToken,
		ICEServers:   iceServers,
		LLMManager:   manager,
		ToolRegistry: registry,
		ToolDispatch: dispatcher,
		TTSEngine:    ttsEngine,
		STTEngine:    sttEngine,

		TranscribeIntervalSeconds: int(cfg.TranscribeIntervalSeconds),
		MaxToolCallsPerTurn:       cfg.MaxToolCallsPerTurn,
		MaxHistoryMessages:        cfg.MaxHistoryMessages,
		DefaultVoiceID:            cfg.DefaultVoiceID,
		DefaultLLMProvider:        cfg.DefaultLLMProvider,
		DefaultLLMModel:           cfg.DefaultLLMModel,
	}

	router := httpapi.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		var err error
		if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
			logger.Infow("listening with tls", "addr", addr)
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			logger.Infow("listening", "addr", addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Errorw("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Infow("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// parseICEServers decodes the ICE_SERVERS_JSON config field, falling back
// to an empty list (host-only candidates) on malformed or absent config
// rather than failing startup over an optional field.
func parseICEServers(raw string, logger commons.Logger) []session.ICEServer {
	if raw == "" {
		return nil
	}
	var servers []session.ICEServer
	if err := json.Unmarshal([]byte(raw), &servers); err != nil {
		logger.Warnw("failed to parse ICE_SERVERS_JSON, starting with no ICE servers", "error", err)
		return nil
	}
	return servers
}
