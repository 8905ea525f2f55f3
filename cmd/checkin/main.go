package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"checkin/internal/adapters/discord"
	"checkin/internal/adapters/httpapi"
	"checkin/internal/application"
	"checkin/internal/application/normalize"
	"checkin/internal/config"
	"checkin/internal/infrastructure/database"
	"checkin/internal/infrastructure/email"
	"checkin/internal/infrastructure/i18n"
	"checkin/internal/infrastructure/sources"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	normalizer := normalize.New(email.NewValidator())
	factory := sources.NewFactory(normalizer, sources.Options{
		Overlay:  cfg.Overlay,
		RedisURL: cfg.RedisURL,
		EventKey: cfg.EventKey,
		Schema: database.Schema{
			Migrate:        cfg.Migrate,
			MigrationsPath: cfg.MigrationsPath,
		},
	})
	defer factory.Close()

	manager := application.NewManager(factory, normalizer)
	defer manager.Dispose()

	tr := i18n.NewTranslator(cfg.Locale)

	if cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	api := httpapi.NewServer(manager, tr, httpapi.Options{Dev: cfg.Mode == config.ModeDev})
	defer api.Close()

	// A failed first load leaves the manager in the error state; the API
	// stays up so the source can be fixed or switched.
	if err := manager.Initialize(ctx, cfg.Source); err != nil {
		log.Printf("⚠️ Chargement initial de la source %s en échec: %v", cfg.Source.Kind, err)
	} else {
		st := manager.Status()
		log.Printf("✅ Source %s chargée (%d participants, %d lignes ignorées)", st.Kind, len(manager.CurrentRoster()), st.Dropped)
	}

	if cfg.DiscordEnabled() {
		bot, err := discord.NewBot(cfg, manager, tr)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		go func() {
			if err := bot.Start(ctx); err != nil {
				log.Printf("❌ Erreur lors du démarrage du bot: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("✅ API HTTP à l'écoute sur %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ Serveur HTTP: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt en cours...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt du serveur HTTP: %v", err)
	}
}
