package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gatebook/pkg/ai"
	"gatebook/pkg/events"
	"gatebook/pkg/storage"
	"gatebook/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	// Injectable for tests and local mode; constructed from the fields
	// above when nil.
	Store    store.Store
	Sessions store.SessionStore
	Chat     ai.ChatClient
	Photos   storage.ObjectStore
	Events   events.Publisher

	GeminiAPIKey string
	ChatModel    string

	Now func() time.Time
}

// App is the core application service wiring storage, sessions, the chat
// collaborator, photo storage and event publishing together.
//
// Mutating operations serialize on a coarse-grained mutex over the whole
// state, since none of them is idempotent or conflict-free under
// concurrent writers. The chat-collaborator call is made outside the
// critical section and the thread is re-validated afterwards.
type App struct {
	mu sync.Mutex

	store    store.Store
	sessions store.SessionStore
	chat     ai.ChatClient
	photos   storage.ObjectStore
	events   events.Publisher
	now      func() time.Time

	convMu        sync.Mutex
	conversations map[int64]ai.Conversation
}

// New constructs the application. Server mode requires a database URL;
// local mode injects a MemoryStore through cfg.Store.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		if strings.TrimSpace(cfg.RedisAddr) != "" {
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		} else {
			sessionStore = store.NewMemorySessionStore()
		}
	}

	chatClient := cfg.Chat
	if chatClient == nil && strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		var err error
		chatClient, err = ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.ChatModel)
		if err != nil {
			return nil, fmt.Errorf("init chat client: %w", err)
		}
	}

	publisher := cfg.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	a := &App{
		store:         dataStore,
		sessions:      sessionStore,
		chat:          chatClient,
		photos:        cfg.Photos,
		events:        publisher,
		now:           now,
		conversations: make(map[int64]ai.Conversation),
	}
	if err := a.ensureSeedData(); err != nil {
		return nil, fmt.Errorf("seed data: %w", err)
	}
	return a, nil
}

// publish delivers an event best-effort. Failures are logged, never
// surfaced to the caller, and never retried.
func (a *App) publish(name string, entityID int64, unit string, actorID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	event := events.Event{
		Name:       name,
		EntityID:   entityID,
		Unit:       unit,
		ActorID:    actorID,
		OccurredAt: a.now(),
	}
	if err := a.events.Publish(ctx, event); err != nil {
		slog.Warn("publish event failed", "event", name, "entity_id", entityID, "err", err)
	}
}
