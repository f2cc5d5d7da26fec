package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tabletopforge/npc-dialogue/internal/config"
	"github.com/tabletopforge/npc-dialogue/internal/handler"
	npcmodel "github.com/tabletopforge/npc-dialogue/internal/model/npc"
	"github.com/tabletopforge/npc-dialogue/internal/ratelimit"
	"github.com/tabletopforge/npc-dialogue/internal/service/ai"
	dialogueservice "github.com/tabletopforge/npc-dialogue/internal/service/dialogue"
	"github.com/tabletopforge/npc-dialogue/internal/service/hub"
	sessionservice "github.com/tabletopforge/npc-dialogue/internal/service/session"
	triggerservice "github.com/tabletopforge/npc-dialogue/internal/service/trigger"
	"github.com/tabletopforge/npc-dialogue/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// NPC profiles: directory of JSON files, falling back to the seed set.
	var profiles npcmodel.Store
	if dirStore, err := npcmodel.LoadDir(cfg.Sessions.NPCDir); err != nil {
		log.Printf("warning: failed to load npc directory %s: %v", cfg.Sessions.NPCDir, err)
		log.Println("continuing with built-in seed profiles")
		profiles = npcmodel.NewMemoryStore(npcmodel.Seed())
	} else if len(dirStore.List()) == 0 {
		log.Printf("npc directory %s is empty, using built-in seed profiles", cfg.Sessions.NPCDir)
		profiles = npcmodel.NewMemoryStore(npcmodel.Seed())
	} else {
		profiles = dirStore
	}

	sessionStorage, err := storage.NewFileStore(cfg.Sessions.DataDir)
	if err != nil {
		log.Fatalf("failed to initialize session storage: %v", err)
	}

	sessions := sessionservice.NewStore(sessionStorage)
	sessions.StartAutoFlush(ctx, cfg.Sessions.FlushInterval)

	broadcast := hub.NewHub(sessions)
	go broadcast.Run(ctx, cfg.Hub.Heartbeat)

	limiter := ratelimit.New(cfg.Rate.Window, cfg.Rate.Limit)
	triggers := triggerservice.NewEngine(sessions, profiles)

	var modelClient dialogueservice.ModelClient
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without dialogue generation")
		} else {
			modelClient = aiSvc
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("chat model credentials not configured, dialogue generation disabled")
	}

	dialogueSvc := dialogueservice.NewService(profiles, sessions, limiter, triggers, broadcast, modelClient, cfg.AI.TurnTimeout)

	router := handler.NewRouter(profiles, sessions, dialogueSvc, broadcast)

	startServer(ctx, cfg.Server, router)

	// The auto-flush goroutine performs its own final flush on ctx
	// cancellation; flush once more here so shutdown never races it.
	sessions.FlushAll(context.Background())
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("NPC dialogue backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
