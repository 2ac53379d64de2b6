package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gatebook/internal/util"
	"gatebook/pkg/ai"
	"gatebook/pkg/domain"
	"gatebook/pkg/events"
)

// apologyReply is appended as the bot message when the chat collaborator
// fails. The thread itself is never failed.
const apologyReply = "Sorry, I'm having trouble answering right now. A staff member will follow up with you shortly."

// StartThread creates a support thread with the user's first message,
// forwards it to the chat collaborator, and appends the reply as the
// second message. The call suspends until the collaborator responds; on
// failure an apology is appended instead.
func (a *App) StartThread(ctx context.Context, user *domain.User, name, unit, initialQuery string) (domain.ChatThread, error) {
	initialQuery = strings.TrimSpace(initialQuery)
	if initialQuery == "" {
		return domain.ChatThread{}, ErrMessageRequired
	}

	a.mu.Lock()
	now := a.now()
	thread := domain.ChatThread{
		ID:           util.NewRecordID(),
		UserName:     strings.TrimSpace(name),
		Unit:         strings.TrimSpace(unit),
		InitialQuery: initialQuery,
		Messages: []domain.ChatMessage{
			{Sender: domain.SenderUser, Text: initialQuery, SentAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	var actorID int64
	if user != nil {
		id := user.ID
		thread.UserID = &id
		actorID = user.ID
		if thread.UserName == "" {
			thread.UserName = user.Username
		}
		if thread.Unit == "" {
			thread.Unit = user.UnitNo
		}
	}
	if err := a.store.SaveThread(thread); err != nil {
		a.mu.Unlock()
		return domain.ChatThread{}, fmt.Errorf("save thread: %w", err)
	}
	a.mu.Unlock()

	a.publish(events.ChatStarted, thread.ID, thread.Unit, actorID)

	conversation := a.conversationFor(thread, true)
	reply := a.askCollaborator(ctx, conversation, initialQuery)
	return a.appendBotReply(thread.ID, reply)
}

// UserReply appends a user message and the collaborator's answer.
// Refused once a staff member has replied; the thread is then read-only
// for the resident, permanently.
func (a *App) UserReply(ctx context.Context, actor domain.User, threadID int64, text string) (domain.ChatThread, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatThread{}, ErrMessageRequired
	}

	a.mu.Lock()
	thread, ok, err := a.store.GetThread(threadID)
	if err != nil {
		a.mu.Unlock()
		return domain.ChatThread{}, fmt.Errorf("fetch thread: %w", err)
	}
	if !ok {
		a.mu.Unlock()
		return domain.ChatThread{}, ErrThreadNotFound
	}
	if thread.UserID == nil || *thread.UserID != actor.ID {
		a.mu.Unlock()
		return domain.ChatThread{}, ErrPermissionDenied
	}
	if thread.AdminReplied {
		a.mu.Unlock()
		return domain.ChatThread{}, ErrThreadLocked
	}
	now := a.now()
	thread.Messages = append(thread.Messages, domain.ChatMessage{Sender: domain.SenderUser, Text: text, SentAt: now})
	thread.UpdatedAt = now
	if err := a.store.SaveThread(thread); err != nil {
		a.mu.Unlock()
		return domain.ChatThread{}, fmt.Errorf("save thread: %w", err)
	}
	a.mu.Unlock()

	a.publish(events.ChatUserReplied, thread.ID, thread.Unit, actor.ID)

	conversation := a.conversationFor(thread, false)
	reply := a.askCollaborator(ctx, conversation, text)
	return a.appendBotReply(thread.ID, reply)
}

// AdminReply appends a staff message and locks the thread against further
// resident replies. The latch never resets.
func (a *App) AdminReply(actor domain.User, threadID int64, text string) (domain.ChatThread, error) {
	if err := a.authorize(actor, OpReplyThread); err != nil {
		return domain.ChatThread{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatThread{}, ErrMessageRequired
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	thread, ok, err := a.store.GetThread(threadID)
	if err != nil {
		return domain.ChatThread{}, fmt.Errorf("fetch thread: %w", err)
	}
	if !ok {
		return domain.ChatThread{}, ErrThreadNotFound
	}
	now := a.now()
	thread.Messages = append(thread.Messages, domain.ChatMessage{Sender: domain.SenderAdmin, Text: text, SentAt: now})
	thread.AdminReplied = true
	thread.UpdatedAt = now
	if err := a.store.SaveThread(thread); err != nil {
		return domain.ChatThread{}, fmt.Errorf("save thread: %w", err)
	}
	a.dropConversation(threadID)
	a.publish(events.ChatAdminReplied, thread.ID, thread.Unit, actor.ID)
	return thread, nil
}

// DismissThread hides a thread from the staff notification list. It does
// not affect the resident's access, and it never resets.
func (a *App) DismissThread(actor domain.User, threadID int64) error {
	if err := a.authorize(actor, OpDismissThread); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	thread, ok, err := a.store.GetThread(threadID)
	if err != nil {
		return fmt.Errorf("fetch thread: %w", err)
	}
	if !ok {
		return ErrThreadNotFound
	}
	thread.Dismissed = true
	thread.UpdatedAt = a.now()
	if err := a.store.SaveThread(thread); err != nil {
		return fmt.Errorf("save thread: %w", err)
	}
	return nil
}

// GetThread returns a thread readable by the actor: its owner, or staff.
func (a *App) GetThread(actor domain.User, threadID int64) (domain.ChatThread, error) {
	thread, ok, err := a.store.GetThread(threadID)
	if err != nil {
		return domain.ChatThread{}, fmt.Errorf("fetch thread: %w", err)
	}
	if !ok {
		return domain.ChatThread{}, ErrThreadNotFound
	}
	if actor.Role == domain.RoleResident {
		if thread.UserID == nil || *thread.UserID != actor.ID {
			return domain.ChatThread{}, ErrThreadNotFound
		}
	}
	return thread, nil
}

// ActiveThread returns the user's single active thread: the most recently
// created one that staff has neither taken over nor dismissed. The active
// thread is always derived, never stored, so it cannot diverge across
// sessions.
func (a *App) ActiveThread(user domain.User) (domain.ChatThread, bool, error) {
	threads, err := a.store.ListThreadsByUser(user.ID)
	if err != nil {
		return domain.ChatThread{}, false, fmt.Errorf("list threads: %w", err)
	}
	for i := len(threads) - 1; i >= 0; i-- {
		if !threads[i].AdminReplied && !threads[i].Dismissed {
			return threads[i], true, nil
		}
	}
	return domain.ChatThread{}, false, nil
}

// StaffThreads returns every thread not yet dismissed, for the staff
// notification list.
func (a *App) StaffThreads(actor domain.User) ([]domain.ChatThread, error) {
	if err := a.authorize(actor, OpDismissThread); err != nil {
		return nil, err
	}
	threads, err := a.store.ListThreads()
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	open := make([]domain.ChatThread, 0, len(threads))
	for _, t := range threads {
		if !t.Dismissed {
			open = append(open, t)
		}
	}
	return open, nil
}

// UserThreads returns all threads started by the user, oldest first.
func (a *App) UserThreads(user domain.User) ([]domain.ChatThread, error) {
	return a.store.ListThreadsByUser(user.ID)
}

// askCollaborator forwards the message and degrades to the apology reply
// on any failure. There is no retry and no cancellation beyond ctx.
func (a *App) askCollaborator(ctx context.Context, conversation ai.Conversation, message string) string {
	if conversation == nil {
		return apologyReply
	}
	reply, err := conversation.Send(ctx, message)
	if err != nil {
		slog.Warn("chat collaborator failed", "err", err)
		return apologyReply
	}
	return reply
}

// conversationFor returns the in-process collaborator handle for a
// thread. When the handle is missing (process restart, staff takeover
// reset) the stored transcript is replayed into the first message so the
// collaborator keeps conversational continuity.
func (a *App) conversationFor(thread domain.ChatThread, fresh bool) ai.Conversation {
	if a.chat == nil {
		return nil
	}
	a.convMu.Lock()
	defer a.convMu.Unlock()
	if !fresh {
		if conv, ok := a.conversations[thread.ID]; ok {
			return conv
		}
	}
	conv := a.chat.NewConversation(a.systemInstruction(thread))
	a.conversations[thread.ID] = conv
	return conv
}

func (a *App) dropConversation(threadID int64) {
	a.convMu.Lock()
	defer a.convMu.Unlock()
	delete(a.conversations, threadID)
}

// appendBotReply records the collaborator (or apology) message. The
// thread is re-read because the state may have moved while the
// collaborator call was suspended.
func (a *App) appendBotReply(threadID int64, reply string) (domain.ChatThread, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	thread, ok, err := a.store.GetThread(threadID)
	if err != nil {
		return domain.ChatThread{}, fmt.Errorf("fetch thread: %w", err)
	}
	if !ok {
		return domain.ChatThread{}, ErrThreadNotFound
	}
	if thread.AdminReplied {
		// A staff member took over while the collaborator call was in
		// flight. The latch wins; drop the machine answer.
		slog.Info("dropping collaborator reply after staff takeover", "thread_id", threadID)
		return thread, nil
	}
	now := a.now()
	thread.Messages = append(thread.Messages, domain.ChatMessage{Sender: domain.SenderBot, Text: reply, SentAt: now})
	thread.UpdatedAt = now
	if err := a.store.SaveThread(thread); err != nil {
		return domain.ChatThread{}, fmt.Errorf("save thread: %w", err)
	}
	return thread, nil
}

// systemInstruction builds the collaborator's grounding: who it speaks
// for and what it may talk about. Visitor status for the user's unit is
// included so status questions can be answered.
func (a *App) systemInstruction(thread domain.ChatThread) string {
	var sb strings.Builder
	info, _, err := a.store.GetCompanyInfo()
	if err != nil || info.Name == "" {
		info = defaultCompanyInfo()
	}
	fmt.Fprintf(&sb, "You are the visitor-management assistant for %s. ", info.Name)
	sb.WriteString("Answer questions about visitor registrations, approvals, check-ins and check-outs. Be brief and helpful. ")
	if thread.Unit != "" {
		visitors, err := a.store.ListVisitorsByUnit(thread.Unit)
		if err == nil && len(visitors) > 0 {
			fmt.Fprintf(&sb, "Current visitors for unit %s:\n", thread.Unit)
			for _, v := range visitors {
				fmt.Fprintf(&sb, "- %s: %s\n", v.Name, v.Status)
			}
		}
	}
	// Replay the transcript so a rebuilt conversation keeps context.
	if len(thread.Messages) > 1 {
		sb.WriteString("Conversation so far:\n")
		for _, msg := range thread.Messages {
			fmt.Fprintf(&sb, "%s: %s\n", msg.Sender, msg.Text)
		}
	}
	return sb.String()
}
