package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"finboard/internal/app"
	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/tui"
	"finboard/pkg/logger"
	"finboard/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	gossh "golang.org/x/crypto/ssh"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	loadSourcesFunc   = config.LoadSources
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sources, err := loadSourcesFunc(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load sources")
	}

	// The dashboard only shows indicators; Redis backs the last-known-good tier.
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	a := app.Build(app.Options{
		Config:  cfg,
		Sources: sources,
		Tracer:  tracer,
		Redis:   cache.Client,
	})
	go a.Cache.StartJanitor(ctx, time.Minute)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)
	allowed := make(map[string]bool, len(cfg.SSHAuthorizedFingerprints))
	for _, fp := range cfg.SSHAuthorizedFingerprints {
		allowed[fp] = true
	}
	if len(allowed) == 0 {
		log.Warn().Msg("SSH_AUTHORIZED_FINGERPRINTS empty, accepting any public key")
	}

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			return authorize(allowed, ctx.User(), gossh.FingerprintSHA256(key))
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				model := tui.NewModel(a.Indicators, s.User())
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)
				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create SSH server")
	}

	if srv != nil {
		go func() {
			log.Info().Str("addr", addr).Msg("SSH server listening")
			if err := srv.ListenAndServe(); err != nil {
				log.Info().Err(err).Msg("SSH server stopped")
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("SSH server shutdown error")
		}
	}

	log.Info().Msg("SSH server exited")
}

// authorize accepts any key when no fingerprints are configured.
func authorize(allowed map[string]bool, user, fingerprint string) bool {
	if len(allowed) == 0 || allowed[fingerprint] {
		log.Info().Str("user", user).Str("fingerprint", fingerprint).Msg("SSH auth accepted")
		return true
	}
	log.Warn().Str("user", user).Str("fingerprint", fingerprint).Msg("SSH auth denied")
	return false
}
