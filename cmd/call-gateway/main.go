package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nishuastic/tech-europe/internal/dotenv"
	"github.com/nishuastic/tech-europe/pkg/core/agent"
	"github.com/nishuastic/tech-europe/pkg/core/bridge"
	"github.com/nishuastic/tech-europe/pkg/core/translate"
	"github.com/nishuastic/tech-europe/pkg/core/voice/stt"
	"github.com/nishuastic/tech-europe/pkg/core/voice/tts"
	"github.com/nishuastic/tech-europe/pkg/gateway/config"
	"github.com/nishuastic/tech-europe/pkg/gateway/handlers"
	gatewayserver "github.com/nishuastic/tech-europe/pkg/gateway/server"
	"github.com/nishuastic/tech-europe/pkg/gateway/store"
	"github.com/nishuastic/tech-europe/pkg/telephony"
)

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func buildStore(ctx context.Context, cfg config.Config) (store.SessionStore, error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemory(), nil
	}
	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pg, nil
}

func buildTranslator(ctx context.Context, cfg config.Config, logger *slog.Logger) (translate.Translator, error) {
	switch cfg.TranslateProvider {
	case config.TranslateOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("CALLGW_OPENAI_API_KEY is required for the openai translate provider")
		}
		inner := translate.NewOpenAI(cfg.OpenAIAPIKey)
		if cfg.TranslateModel != "" {
			inner = translate.NewOpenAIWithClient(openai.NewClient(cfg.OpenAIAPIKey), cfg.TranslateModel)
		}
		return translate.NewFailOpen(inner, logger), nil
	case config.TranslateGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("CALLGW_GEMINI_API_KEY is required for the gemini translate provider")
		}
		inner, err := translate.NewGemini(ctx, cfg.GeminiAPIKey, cfg.TranslateModel)
		if err != nil {
			return nil, fmt.Errorf("gemini translator: %w", err)
		}
		return translate.NewFailOpen(inner, logger), nil
	default:
		return nil, fmt.Errorf("unknown translate provider %q", cfg.TranslateProvider)
	}
}

func buildBridgeFactory(cfg config.Config, deps bridge.Deps, logger *slog.Logger) handlers.BridgeFactory {
	return func(session *bridge.CallSession) *bridge.Bridge {
		return bridge.New(session, deps, bridge.Config{
			Greeting:      cfg.Greeting,
			Voice:         cfg.TTSVoice,
			SourceLang:    cfg.SourceLang,
			UserLang:      cfg.UserLang,
			AutoSendDelay: cfg.AutoSendDelay,
			Logger:        logger,
		})
	}
}

func runGateway(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sessionStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	translator, err := buildTranslator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var agentClient bridge.AgentClient
	if cfg.AgentBaseURL != "" {
		agentClient = agent.NewClient(cfg.AgentBaseURL, cfg.AgentAPIKey, logger)
	} else {
		logger.Warn("no agent configured, every turn defers to the human")
	}

	sttProvider := stt.NewGradium(cfg.GradiumAPIKey)
	if cfg.GradiumSTTURL != "" {
		sttProvider = stt.NewGradiumWithURL(cfg.GradiumAPIKey, cfg.GradiumSTTURL)
	}
	ttsProvider := tts.NewGradium(cfg.GradiumAPIKey)
	if cfg.GradiumTTSURL != "" {
		ttsProvider = tts.NewGradiumWithURL(cfg.GradiumAPIKey, cfg.GradiumTTSURL)
	}

	phone := telephony.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	directory := telephony.NewDirectory(cfg.Hotlines, cfg.Hotlines[cfg.DefaultTarget], cfg.TestPhoneNumber)

	bridgeDeps := bridge.Deps{
		STT:        bridge.AdaptSTT(sttProvider),
		TTS:        bridge.AdaptTTS(ttsProvider),
		Translator: translator,
		Agent:      agentClient,
		Telephony:  phone,
		Store:      sessionStore,
	}

	srv := gatewayserver.New(cfg, gatewayserver.Deps{
		Store:     sessionStore,
		Registry:  bridge.NewRegistry(),
		Telephony: phone,
		Directory: directory,
		NewBridge: buildBridgeFactory(cfg, bridgeDeps, logger),
	}, logger)
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	logger.Info("starting call gateway",
		"addr", cfg.Addr,
		"public_url", cfg.PublicURL,
		"translate_provider", string(cfg.TranslateProvider),
		"auth_enabled", cfg.AuthEnabled(),
	)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("call gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintf(stderr, "call-gateway: %v\n", err)
		return 1
	}
	if err := runGateway(ctx, logger); err != nil {
		fmt.Fprintf(stderr, "call-gateway: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr))
}
