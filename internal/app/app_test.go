package app

import (
	"context"
	"testing"

	"gatebook/pkg/ai"
	"gatebook/pkg/domain"
	"gatebook/pkg/store"
)

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = store.NewMemorySessionStore()
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func userByRole(t *testing.T, a *App, role domain.Role) domain.User {
	t.Helper()
	users, err := a.store.ListUsers()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	for _, u := range users {
		if u.Role == role {
			return u
		}
	}
	t.Fatalf("no seeded user with role %s", role)
	return domain.User{}
}

type fakeChatClient struct {
	reply  string
	err    error
	onSend func()
}

func (f *fakeChatClient) NewConversation(string) ai.Conversation {
	return &fakeConversation{client: f}
}

type fakeConversation struct {
	client *fakeChatClient
}

func (c *fakeConversation) Send(_ context.Context, _ string) (string, error) {
	if c.client.onSend != nil {
		c.client.onSend()
	}
	return c.client.reply, c.client.err
}
