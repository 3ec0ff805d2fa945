// Package feedpulse implements the client-side state engine behind a social
// feed and direct-messaging surface.
package feedpulse

import (
	"context"
)

// Settings is the read-only view of the excluded preferences collaborator.
// The engine consults it to decide whether to emit feedback cues; it never
// writes settings.
type Settings interface {
	ReducedMotion() bool
	SoundEffects() bool
}

// Notifier receives feedback-cue events for state-changing actions. The
// engine owns no audio; playing the cue is the host's concern.
type Notifier interface {
	Notify(event string)
}

// ArchiveStore persists a session's feed and conversations locally so a
// later session can restore them. It is an optional collaborator; the engine
// works entirely in memory without one.
type ArchiveStore interface {
	// SaveFeed replaces the archived feed with the given posts.
	SaveFeed(ctx context.Context, posts []*Post) error

	// LoadFeed returns the archived feed, most recent first.
	LoadFeed(ctx context.Context) ([]*Post, error)

	// SaveConversations replaces the archived chats and their histories.
	SaveConversations(ctx context.Context, chats []*Chat, history map[string][]*Message) error

	// LoadConversations returns the archived chats and histories.
	LoadConversations(ctx context.Context) ([]*Chat, map[string][]*Message, error)
}

// incomingScript is the canned content the simulated inbound-message effect
// cycles through in the absence of a real transport.
var incomingScript = []string{
	"Hey, did you see the latest post?",
	"That course you shared looks great",
	"Are you around later?",
	"Just finished the assignment, finally",
}

// Engine is the top-level coordinator. It owns the engagement store and the
// messenger, routes user intents to their transition functions, and manages
// lifecycle concerns: the simulated new-message effect armed on Start and
// timer cleanup on Close.
type Engine struct {
	actor      Actor
	config     Config
	engagement EngagementStore
	messenger  Messenger
	settings   Settings
	notifier   Notifier
	archive    ArchiveStore
	sched      *effectScheduler
	incoming   int
}

// NewEngine creates an engine for the current actor. The chat list is seeded
// from the participant list and the feed from seedPosts; both are fixed at
// session start.
func NewEngine(actor Actor, participants []Actor, seedPosts []*Post, config Config, settings Settings, notifier Notifier) *Engine {
	return &Engine{
		actor:      actor,
		config:     config,
		engagement: NewInMemoryEngagementStore(actor, seedPosts),
		messenger:  NewInMemoryMessenger(actor, participants, config.DeliveryDelay(), config.TypingWindow()),
		settings:   settings,
		notifier:   notifier,
		sched:      newEffectScheduler(),
	}
}

// RestoreEngine creates an engine from a previously archived session.
func RestoreEngine(ctx context.Context, archive ArchiveStore, actor Actor, config Config, settings Settings, notifier Notifier) (*Engine, error) {
	posts, err := archive.LoadFeed(ctx)
	if err != nil {
		return nil, err
	}
	chats, history, err := archive.LoadConversations(ctx)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		actor:      actor,
		config:     config,
		engagement: NewInMemoryEngagementStore(actor, posts),
		messenger:  NewInMemoryMessengerFromState(actor, chats, history, config.DeliveryDelay(), config.TypingWindow()),
		settings:   settings,
		notifier:   notifier,
		archive:    archive,
		sched:      newEffectScheduler(),
	}
	return engine, nil
}

// AttachArchive sets the archive store used by Snapshot.
func (e *Engine) AttachArchive(store ArchiveStore) {
	e.archive = store
}

// Start arms the simulated inbound-message effect. In production this slot
// would be filled by a real transport subscription.
func (e *Engine) Start(ctx context.Context) {
	e.armIncoming(ctx)
}

func (e *Engine) armIncoming(ctx context.Context) {
	e.sched.Schedule("incoming", e.config.IncomingInterval(), func() {
		e.deliverIncoming(ctx)
		e.armIncoming(ctx)
	})
}

// deliverIncoming appends one canned inbound message to the least recently
// active chat, round-robin over the chat list.
func (e *Engine) deliverIncoming(ctx context.Context) {
	chats := e.messenger.Chats(ctx)
	if len(chats) == 0 {
		return
	}

	chat := chats[e.incoming%len(chats)]
	content := incomingScript[e.incoming%len(incomingScript)]
	e.incoming++

	sender := Actor{}
	for _, participant := range chat.Participants {
		if participant.ID != e.actor.ID {
			sender = participant
			break
		}
	}

	if _, err := e.messenger.ReceiveMessage(ctx, chat.ID, sender, content); err == nil {
		e.notify("message_received")
	}
}

// Close tears the engine down: all outstanding timers are cancelled and
// pending effects are discarded, not queued.
func (e *Engine) Close() {
	e.sched.Close()
	e.messenger.Close()
}

// Snapshot persists the current feed and conversations to the attached
// archive. Without an archive it is a no-op.
func (e *Engine) Snapshot(ctx context.Context) error {
	if e.archive == nil {
		return nil
	}

	if err := e.archive.SaveFeed(ctx, e.engagement.Feed(ctx)); err != nil {
		return err
	}

	chats := e.messenger.Chats(ctx)
	history := make(map[string][]*Message, len(chats))
	for _, chat := range chats {
		history[chat.ID] = e.messenger.Conversation(ctx, chat.ID)
	}
	return e.archive.SaveConversations(ctx, chats, history)
}

// notify emits a feedback cue unless sound effects are disabled.
func (e *Engine) notify(event string) {
	if e.notifier == nil {
		return
	}
	if e.settings != nil && !e.settings.SoundEffects() {
		return
	}
	e.notifier.Notify(event)
}

// CreatePost publishes a new post authored by the current actor.
func (e *Engine) CreatePost(ctx context.Context, content string, media *Media) (*Post, error) {
	post, err := e.engagement.CreatePost(ctx, content, media)
	if post != nil {
		e.notify("post_created")
	}
	return post, err
}

// ToggleLike flips the current actor's like on a post.
func (e *Engine) ToggleLike(ctx context.Context, postID string) error {
	err := e.engagement.ToggleLike(ctx, postID)
	if err == nil {
		e.notify("like_toggled")
	}
	return err
}

// ToggleBookmark flips the current actor's bookmark on a post.
func (e *Engine) ToggleBookmark(ctx context.Context, postID string) error {
	return e.engagement.ToggleBookmark(ctx, postID)
}

// AddComment submits a comment on a post.
func (e *Engine) AddComment(ctx context.Context, postID string, text string) error {
	return e.engagement.AddComment(ctx, postID, text)
}

// RecordShare records a share event and signals the share feedback cue.
func (e *Engine) RecordShare(ctx context.Context, postID string) error {
	err := e.engagement.RecordShare(ctx, postID)
	if err == nil {
		e.notify("post_shared")
	}
	return err
}

// CastVote casts the current actor's poll vote.
func (e *Engine) CastVote(ctx context.Context, postID string, optionIndex int) error {
	return e.engagement.CastVote(ctx, postID, optionIndex)
}

// PollResults returns per-option vote shares for a post's poll.
func (e *Engine) PollResults(ctx context.Context, postID string) []float64 {
	return e.engagement.PollResults(ctx, postID)
}

// Feed returns the feed snapshot, most recent first.
func (e *Engine) Feed(ctx context.Context) []*Post {
	return e.engagement.Feed(ctx)
}

// GetPost returns a snapshot of one post.
func (e *Engine) GetPost(ctx context.Context, postID string) (*Post, error) {
	return e.engagement.GetPost(ctx, postID)
}

// CommentsFor returns the stored comments of a post.
func (e *Engine) CommentsFor(ctx context.Context, postID string) []*Comment {
	return e.engagement.CommentsFor(ctx, postID)
}

// SendMessage sends a message in a chat.
func (e *Engine) SendMessage(ctx context.Context, chatID string, content string) (*Message, error) {
	message, err := e.messenger.SendMessage(ctx, chatID, content)
	if message != nil {
		e.notify("message_sent")
	}
	return message, err
}

// SendReply sends a message replying to an earlier one.
func (e *Engine) SendReply(ctx context.Context, chatID string, content string, replyToID string) (*Message, error) {
	message, err := e.messenger.SendReply(ctx, chatID, content, replyToID)
	if message != nil {
		e.notify("message_sent")
	}
	return message, err
}

// EditMessage edits a sent message.
func (e *Engine) EditMessage(ctx context.Context, chatID string, messageID string, content string) error {
	return e.messenger.EditMessage(ctx, chatID, messageID, content)
}

// DeleteMessage soft-deletes a sent message.
func (e *Engine) DeleteMessage(ctx context.Context, chatID string, messageID string) error {
	return e.messenger.DeleteMessage(ctx, chatID, messageID)
}

// ToggleMessageReaction toggles the current actor's emoji reaction on a
// message.
func (e *Engine) ToggleMessageReaction(ctx context.Context, chatID string, messageID string, emoji string) error {
	return e.messenger.ToggleMessageReaction(ctx, chatID, messageID, emoji)
}

// OpenChat makes a chat the active conversation.
func (e *Engine) OpenChat(chatID string) {
	e.messenger.OpenChat(chatID)
}

// MarkChatRead clears a chat's unread state.
func (e *Engine) MarkChatRead(ctx context.Context, chatID string) error {
	return e.messenger.MarkChatRead(ctx, chatID)
}

// PinChat sets a chat's pinned flag.
func (e *Engine) PinChat(ctx context.Context, chatID string, pinned bool) error {
	return e.messenger.PinChat(ctx, chatID, pinned)
}

// MuteChat sets a chat's muted flag.
func (e *Engine) MuteChat(ctx context.Context, chatID string, muted bool) error {
	return e.messenger.MuteChat(ctx, chatID, muted)
}

// ArchiveChat sets a chat's archived flag.
func (e *Engine) ArchiveChat(ctx context.Context, chatID string, archived bool) error {
	return e.messenger.ArchiveChat(ctx, chatID, archived)
}

// SetComposing feeds the typing indicator for the given chat.
func (e *Engine) SetComposing(ctx context.Context, chatID string, text string) {
	e.messenger.SetComposing(ctx, chatID, text)
}

// IsTyping reports the typing signal for a chat.
func (e *Engine) IsTyping(chatID string) bool {
	return e.messenger.IsTyping(chatID)
}

// Chats returns the chat list snapshot.
func (e *Engine) Chats(ctx context.Context) []*Chat {
	return e.messenger.Chats(ctx)
}

// Conversation returns one chat's history snapshot.
func (e *Engine) Conversation(ctx context.Context, chatID string) []*Message {
	return e.messenger.Conversation(ctx, chatID)
}

// ActiveConversation returns the open chat's history snapshot, or nil when
// no chat is open.
func (e *Engine) ActiveConversation(ctx context.Context) []*Message {
	chatID := e.messenger.ActiveChat()
	if chatID == "" {
		return nil
	}
	return e.messenger.Conversation(ctx, chatID)
}

// ResolveReply resolves a message's reply reference.
func (e *Engine) ResolveReply(ctx context.Context, chatID string, messageID string) *Message {
	return e.messenger.ResolveReply(ctx, chatID, messageID)
}
