package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ai-interviewer/interviewer/internal/auth"
	"github.com/ai-interviewer/interviewer/internal/config"
	"github.com/ai-interviewer/interviewer/internal/health"
	"github.com/ai-interviewer/interviewer/internal/logging"
	"github.com/ai-interviewer/interviewer/internal/store"
	"github.com/ai-interviewer/interviewer/internal/voiceagent"
	"github.com/ai-interviewer/interviewer/internal/web"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}
	cfg, err := config.New[config.AppConfig]()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logOut, closeLog := logging.Setup(logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxAgeDays: cfg.LogMaxAgeDays,
		MaxBackups: cfg.LogMaxBackups,
	})
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Firebase backs both the document store and the identity provider.
	app, err := store.NewFirebaseApp(ctx, store.FirebaseConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
		CredentialsFile: cfg.FirebaseCredentialsFile,
	})
	if err != nil {
		log.Fatalf("Failed to init firebase: %v", err)
	}
	db, err := store.New(ctx, app, store.Collections{
		Users:      cfg.UsersCollection,
		Interviews: cfg.InterviewsCollection,
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to init firebase auth: %v", err)
	}

	cache, err := auth.NewCache(ctx, auth.CacheOptions{
		Enabled:  cfg.SessionCacheEnabled,
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.SessionCachePrefix,
		TTL:      cfg.SessionCacheTTL,
		Secret:   cfg.SessionCacheSecret,
	})
	if err != nil {
		log.Fatalf("Failed to connect session cache: %v", err)
	}
	defer cache.Close()

	sessions := auth.NewService(auth.NewFirebase(authClient), db, cache)

	agentCfg := voiceagent.Config{
		URL:              cfg.VoiceAgentURL,
		Token:            cfg.VoiceAgentToken,
		HandshakeTimeout: cfg.VoiceAgentDialTimeout,
	}
	newAgent := func() web.CallAgent { return voiceagent.NewClient(agentCfg) }

	srv := web.NewServer(web.Config{
		IsProduction:   cfg.IsProduction,
		WorkflowID:     cfg.VoiceAgentWorkflowID,
		AllowedOrigins: cfg.AllowedOrigins,
		LogWriter:      logOut,
	}, sessions, db, newAgent)

	var hs *health.Server
	if cfg.HealthAddr != "" {
		lis, err := health.Listen(cfg.HealthAddr)
		if err != nil {
			log.Fatalf("Failed to start health server: %v", err)
		}
		hs = health.NewServer()
		go func() {
			if err := hs.Serve(lis); err != nil {
				log.Printf("gRPC health serve error: %v", err)
			}
		}()
	}

	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening at %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP serve error: %v", err)
		}
	}()
	if hs != nil {
		hs.SetServing(true)
	}

	<-ctx.Done()
	log.Printf("Shutting down (%d live calls)", srv.Calls().Count())

	if hs != nil {
		hs.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	// Shutdown leaves hijacked call sockets open.
	if err := srv.CloseCalls(shutdownCtx); err != nil {
		log.Printf("Closing call views: %v", err)
	}
}
