// Package feedpulse implements the client-side state engine behind a social
// feed and direct-messaging surface.
package feedpulse

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryMessenger implements Messenger with in-memory storage.
//
// Message histories are strictly append-ordered by local submission order.
// Delivery completion runs on a timer and may fire out of order without
// affecting the displayed order. All timer effects go through a single
// effectScheduler so teardown can cancel them in one place.
type InMemoryMessenger struct {
	mutex         sync.RWMutex
	actor         Actor
	chats         []*Chat
	byID          map[string]*Chat
	history       map[string][]*Message // chatID -> messages, submission order
	activeChat    string
	typing        map[string]bool
	sched         *effectScheduler
	deliveryDelay time.Duration
	typingWindow  time.Duration
	now           func() time.Time
}

// NewInMemoryMessenger creates a messenger for the current actor with one
// direct chat per participant. The chat list is fixed for the session;
// creating new chats is outside this engine.
func NewInMemoryMessenger(actor Actor, participants []Actor, deliveryDelay, typingWindow time.Duration) *InMemoryMessenger {
	m := &InMemoryMessenger{
		actor:         actor,
		byID:          make(map[string]*Chat),
		history:       make(map[string][]*Message),
		typing:        make(map[string]bool),
		sched:         newEffectScheduler(),
		deliveryDelay: deliveryDelay,
		typingWindow:  typingWindow,
		now:           time.Now,
	}
	for _, participant := range participants {
		chat := &Chat{
			ID:           uuid.New().String(),
			Participants: []Actor{actor, participant},
		}
		m.chats = append(m.chats, chat)
		m.byID[chat.ID] = chat
	}
	return m
}

// NewInMemoryMessengerFromState creates a messenger from previously captured
// chats and histories, such as an archive restore. The caller hands over
// ownership of the given values.
func NewInMemoryMessengerFromState(actor Actor, chats []*Chat, history map[string][]*Message, deliveryDelay, typingWindow time.Duration) *InMemoryMessenger {
	m := &InMemoryMessenger{
		actor:         actor,
		chats:         chats,
		byID:          make(map[string]*Chat),
		history:       history,
		typing:        make(map[string]bool),
		sched:         newEffectScheduler(),
		deliveryDelay: deliveryDelay,
		typingWindow:  typingWindow,
		now:           time.Now,
	}
	if m.history == nil {
		m.history = make(map[string][]*Message)
	}
	for _, chat := range chats {
		m.byID[chat.ID] = chat
	}
	return m
}

// SendMessage appends an outbound message to the chat's history and schedules
// its delivery completion. Whitespace-only content and unknown chat ids are
// silent no-ops.
func (m *InMemoryMessenger) SendMessage(ctx context.Context, chatID string, content string) (*Message, error) {
	return m.send(ctx, chatID, content, "")
}

// SendReply is SendMessage carrying a weak reference to an earlier message.
// The reference is resolved by lookup at read time, so replying to a message
// that has since been deleted degrades gracefully.
func (m *InMemoryMessenger) SendReply(ctx context.Context, chatID string, content string, replyToID string) (*Message, error) {
	return m.send(ctx, chatID, content, replyToID)
}

func (m *InMemoryMessenger) send(ctx context.Context, chatID string, content string, replyToID string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	chat, exists := m.byID[chatID]
	if !exists {
		return nil, nil
	}

	message := &Message{
		ID:        uuid.New().String(),
		Sender:    m.actor,
		Recipient: m.otherParticipant(chat),
		Content:   content,
		Kind:      ContentText,
		CreatedAt: m.now(),
		ReplyTo:   replyToID,
	}

	m.history[chatID] = append(m.history[chatID], message)
	chat.LastMessage = message

	// Typing stops once the composed text is committed
	m.typing[chatID] = false
	m.sched.Cancel("typing:" + chatID)

	m.sched.Schedule("deliver:"+message.ID, m.deliveryDelay, func() {
		m.completeDelivery(chatID, message.ID)
	})

	return copyMessage(message), nil
}

// completeDelivery flips IsDelivered for the message if it is still present
// and has not been deleted or edited away. Anything else is a silent no-op;
// the timer may race with a cleared chat or a torn-down messenger.
func (m *InMemoryMessenger) completeDelivery(chatID string, messageID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	message := m.findMessage(chatID, messageID)
	if message == nil || message.Deleted || message.Edited {
		return
	}
	message.IsDelivered = true
}

// ReceiveMessage appends an inbound message, already delivered, and bumps the
// chat's unread counter unless the chat is currently open.
func (m *InMemoryMessenger) ReceiveMessage(ctx context.Context, chatID string, sender Actor, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	chat, exists := m.byID[chatID]
	if !exists {
		return nil, nil
	}

	message := &Message{
		ID:          uuid.New().String(),
		Sender:      sender,
		Recipient:   m.actor,
		Content:     content,
		Kind:        ContentText,
		CreatedAt:   m.now(),
		IsDelivered: true,
		IsRead:      m.activeChat == chatID,
	}

	m.history[chatID] = append(m.history[chatID], message)
	chat.LastMessage = message
	if m.activeChat != chatID {
		chat.Unread++
	}

	return copyMessage(message), nil
}

// EditMessage replaces the message content and sets the edited flag.
// Whitespace-only replacements and unknown ids are silent no-ops.
func (m *InMemoryMessenger) EditMessage(ctx context.Context, chatID string, messageID string, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	message := m.findMessage(chatID, messageID)
	if message == nil || message.Deleted {
		return nil
	}

	message.Content = content
	message.Edited = true
	return nil
}

// DeleteMessage soft-deletes a message. The history keeps its slot so weak
// references from replies stay resolvable as "deleted" rather than dangling.
func (m *InMemoryMessenger) DeleteMessage(ctx context.Context, chatID string, messageID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	message := m.findMessage(chatID, messageID)
	if message == nil {
		return nil
	}

	message.Deleted = true
	m.sched.Cancel("deliver:" + messageID)
	return nil
}

// ToggleMessageReaction adds the current actor to the emoji's reacting set,
// or removes them if already present. Reaction entries with no actors left
// are pruned.
func (m *InMemoryMessenger) ToggleMessageReaction(ctx context.Context, chatID string, messageID string, emoji string) error {
	if emoji == "" {
		return nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	message := m.findMessage(chatID, messageID)
	if message == nil || message.Deleted {
		return nil
	}

	for i := range message.Reactions {
		reaction := &message.Reactions[i]
		if reaction.Emoji != emoji {
			continue
		}
		for j, actorID := range reaction.ActorIDs {
			if actorID == m.actor.ID {
				reaction.ActorIDs = append(reaction.ActorIDs[:j], reaction.ActorIDs[j+1:]...)
				if len(reaction.ActorIDs) == 0 {
					message.Reactions = append(message.Reactions[:i], message.Reactions[i+1:]...)
				}
				return nil
			}
		}
		reaction.ActorIDs = append(reaction.ActorIDs, m.actor.ID)
		return nil
	}

	message.Reactions = append(message.Reactions, Reaction{
		Emoji:    emoji,
		ActorIDs: []string{m.actor.ID},
	})
	return nil
}

// OpenChat makes a chat the active conversation. Switching chats never
// mutates the previous chat's unread counter; that is MarkChatRead's job.
func (m *InMemoryMessenger) OpenChat(chatID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.byID[chatID]; !exists {
		return
	}
	m.activeChat = chatID
}

// MarkChatRead zeroes the unread counter and marks delivered inbound
// messages as read. A message is never marked read before it is delivered.
func (m *InMemoryMessenger) MarkChatRead(ctx context.Context, chatID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	chat, exists := m.byID[chatID]
	if !exists {
		return nil
	}

	chat.Unread = 0
	for _, message := range m.history[chatID] {
		if message.Sender.ID != m.actor.ID && message.IsDelivered {
			message.IsRead = true
		}
	}
	return nil
}

// PinChat sets the chat's pinned flag. Pinned chats sort first in the chat
// list snapshot.
func (m *InMemoryMessenger) PinChat(ctx context.Context, chatID string, pinned bool) error {
	return m.setChatFlag(chatID, func(chat *Chat) { chat.Pinned = pinned })
}

// MuteChat sets the chat's muted flag.
func (m *InMemoryMessenger) MuteChat(ctx context.Context, chatID string, muted bool) error {
	return m.setChatFlag(chatID, func(chat *Chat) { chat.Muted = muted })
}

// ArchiveChat sets the chat's archived flag.
func (m *InMemoryMessenger) ArchiveChat(ctx context.Context, chatID string, archived bool) error {
	return m.setChatFlag(chatID, func(chat *Chat) { chat.Archived = archived })
}

func (m *InMemoryMessenger) setChatFlag(chatID string, apply func(*Chat)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	chat, exists := m.byID[chatID]
	if !exists {
		return nil
	}
	apply(chat)
	return nil
}

// SetComposing feeds the typing indicator with the current uncommitted input
// text. Non-empty text asserts the signal and re-arms the debounce timer;
// every keystroke cancels and re-arms the same token rather than stacking
// timers. Empty text clears the signal immediately.
func (m *InMemoryMessenger) SetComposing(ctx context.Context, chatID string, text string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.byID[chatID]; !exists {
		return
	}

	token := "typing:" + chatID
	if strings.TrimSpace(text) == "" {
		m.typing[chatID] = false
		m.sched.Cancel(token)
		return
	}

	m.typing[chatID] = true
	m.sched.Schedule(token, m.typingWindow, func() {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		m.typing[chatID] = false
	})
}

// ActiveChat returns the id of the open chat, or "" when none is open.
func (m *InMemoryMessenger) ActiveChat() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.activeChat
}

// IsTyping reports whether the typing signal is asserted for a chat.
func (m *InMemoryMessenger) IsTyping(chatID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.typing[chatID]
}

// Chats returns a snapshot of the chat list, pinned chats first, then by most
// recent activity.
func (m *InMemoryMessenger) Chats(ctx context.Context) []*Chat {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Chat, len(m.chats))
	for i, chat := range m.chats {
		result[i] = copyChat(chat)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Pinned != result[j].Pinned {
			return result[i].Pinned
		}
		return lastActivity(result[i]).After(lastActivity(result[j]))
	})

	return result
}

// Conversation returns a snapshot of a chat's message history in submission
// order.
func (m *InMemoryMessenger) Conversation(ctx context.Context, chatID string) []*Message {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	messages := m.history[chatID]
	result := make([]*Message, len(messages))
	for i, message := range messages {
		result[i] = copyMessage(message)
	}
	return result
}

// ResolveReply resolves the reply reference of a message. A missing or
// deleted target yields nil rather than an error; the reference is weak.
func (m *InMemoryMessenger) ResolveReply(ctx context.Context, chatID string, messageID string) *Message {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	message := m.findMessage(chatID, messageID)
	if message == nil || message.ReplyTo == "" {
		return nil
	}

	target := m.findMessage(chatID, message.ReplyTo)
	if target == nil || target.Deleted {
		return nil
	}
	return copyMessage(target)
}

// Close cancels all outstanding timers owned by the messenger. Pending
// delivery completions are discarded, not queued.
func (m *InMemoryMessenger) Close() {
	m.sched.Close()
}

// findMessage locates a message in a chat's history. Callers hold the lock.
func (m *InMemoryMessenger) findMessage(chatID string, messageID string) *Message {
	for _, message := range m.history[chatID] {
		if message.ID == messageID {
			return message
		}
	}
	return nil
}

// otherParticipant returns the chat participant that is not the current
// actor. Callers hold the lock.
func (m *InMemoryMessenger) otherParticipant(chat *Chat) Actor {
	for _, participant := range chat.Participants {
		if participant.ID != m.actor.ID {
			return participant
		}
	}
	return Actor{}
}

func lastActivity(chat *Chat) time.Time {
	if chat.LastMessage == nil {
		return time.Time{}
	}
	return chat.LastMessage.CreatedAt
}

// copyMessage returns a copy deep enough to prevent modifications to the
// stored message through a snapshot.
func copyMessage(message *Message) *Message {
	messageCopy := *message
	if len(message.Reactions) > 0 {
		messageCopy.Reactions = make([]Reaction, len(message.Reactions))
		for i, reaction := range message.Reactions {
			messageCopy.Reactions[i] = Reaction{
				Emoji:    reaction.Emoji,
				ActorIDs: append([]string(nil), reaction.ActorIDs...),
			}
		}
	}
	return &messageCopy
}

// copyChat copies a chat together with its last-message reference.
func copyChat(chat *Chat) *Chat {
	chatCopy := *chat
	chatCopy.Participants = append([]Actor(nil), chat.Participants...)
	if chat.LastMessage != nil {
		chatCopy.LastMessage = copyMessage(chat.LastMessage)
	}
	return &chatCopy
}
