// Package feedpulse implements the client-side state engine behind a social
// feed and direct-messaging surface.
//
// The package tracks posts, polls, likes/bookmarks/comments/shares, chats,
// messages, delivery and read receipts, and a typing-indicator signal. All
// state lives in memory; asynchronous effects (message delivery, typing
// debounce) are simulated with cancellable timers.
package feedpulse

import (
	"context"
	"time"
)

// ContentKind tags the kind of content a post or message carries.
type ContentKind uint8

const (
	ContentText   ContentKind = 0
	ContentImage  ContentKind = 1
	ContentVideo  ContentKind = 2
	ContentStory  ContentKind = 3
	ContentReel   ContentKind = 4
	ContentThread ContentKind = 5
	ContentPoll   ContentKind = 6
	ContentLive   ContentKind = 7
)

// MediaKind represents the type of media attached to a post or message.
type MediaKind uint8

const (
	MediaImage MediaKind = 1
	MediaVideo MediaKind = 2
	MediaAudio MediaKind = 3
	MediaFile  MediaKind = 4
)

// Media describes an attachment: one or more source locations plus optional
// thumbnail and duration for timed media.
type Media struct {
	Kind         MediaKind `json:"kind"`
	URLs         []string  `json:"urls"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Duration     int       `json:"duration,omitempty"` // seconds, for video/audio
}

// Actor is any user-like identity: an author, a recipient, or a chat
// participant. Identity fields are immutable once constructed; only the
// presence fields (Online, LastSeen) are refreshed externally.
type Actor struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Verified    bool       `json:"verified"`
	Followers   int        `json:"followers"`
	Following   int        `json:"following"`
	Online      bool       `json:"online"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
}

// PollOption is one choice in a poll with its running vote count.
type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll is an optional sub-entity of a Post. Its option list is fixed at
// creation; only vote counts change, and only until expiry.
//
// Invariant: TotalVotes equals the sum of all option votes, and at most one
// option index is attributed to the current actor via UserVote.
type Poll struct {
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	TotalVotes int          `json:"total_votes"`
	ExpiresAt  time.Time    `json:"expires_at"`
	UserVote   *int         `json:"user_vote,omitempty"`
}

// Post is a feed entry owned by one author. The IsLiked and IsBookmarked
// flags are the current actor's personal engagement state; the counters are
// the aggregate ones shown in the UI.
type Post struct {
	ID           string      `json:"id"`
	Author       Actor       `json:"author"`
	Content      string      `json:"content"`
	Kind         ContentKind `json:"kind"`
	Media        *Media      `json:"media,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	Likes        int         `json:"likes"`
	Comments     int         `json:"comments"`
	Shares       int         `json:"shares"`
	Bookmarks    int         `json:"bookmarks"`
	IsLiked      bool        `json:"is_liked"`
	IsBookmarked bool        `json:"is_bookmarked"`
	Hashtags     []string    `json:"hashtags,omitempty"`
	Mentions     []string    `json:"mentions,omitempty"`
	Poll         *Poll       `json:"poll,omitempty"`
}

// Comment is a single accepted comment submission on a post. The post's
// Comments counter stays authoritative; the stored texts back snapshots.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    Actor     `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Reaction groups the actors who reacted to a message with one emoji.
type Reaction struct {
	Emoji    string   `json:"emoji"`
	ActorIDs []string `json:"actor_ids"`
}

// Message belongs to exactly one chat.
//
// IsDelivered and IsRead are independent booleans, but IsRead is never true
// while IsDelivered is false. ReplyTo is a weak reference by id: the target
// may have been deleted, and resolution degrades to "not found" rather than
// a dangling pointer. Deletion is a soft flag; messages are never removed
// from the history.
type Message struct {
	ID          string      `json:"id"`
	Sender      Actor       `json:"sender"`
	Recipient   Actor       `json:"recipient"`
	Content     string      `json:"content"`
	Kind        ContentKind `json:"kind"`
	Media       *Media      `json:"media,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	IsDelivered bool        `json:"is_delivered"`
	IsRead      bool        `json:"is_read"`
	ReplyTo     string      `json:"reply_to,omitempty"`
	Reactions   []Reaction  `json:"reactions,omitempty"`
	Edited      bool        `json:"edited"`
	Deleted     bool        `json:"deleted"`
}

// Chat is a conversation with a fixed participant set. The chat list is
// seeded at session start; creating new chats is outside this engine.
type Chat struct {
	ID           string   `json:"id"`
	Participants []Actor  `json:"participants"`
	LastMessage  *Message `json:"last_message,omitempty"`
	Unread       int      `json:"unread"`
	Pinned       bool     `json:"pinned"`
	Muted        bool     `json:"muted"`
	Archived     bool     `json:"archived"`
}

// EngagementStore maintains the post list and applies the per-click
// engagement transitions. Action methods are total: an unknown post id is a
// silent no-op, never an error, because UI actions may race with a list
// refresh.
type EngagementStore interface {
	// CreatePost constructs a new post authored by the current actor and
	// prepends it to the feed. Empty content yields no post and no error.
	CreatePost(ctx context.Context, content string, media *Media) (*Post, error)

	// ToggleLike flips the personal like flag and adjusts the like counter.
	ToggleLike(ctx context.Context, postID string) error

	// ToggleBookmark flips the personal bookmark flag and adjusts the
	// bookmark counter.
	ToggleBookmark(ctx context.Context, postID string) error

	// AddComment increments the comment counter by one per accepted
	// submission. Empty or whitespace-only text is rejected without any
	// state change.
	AddComment(ctx context.Context, postID string, text string) error

	// RecordShare increments the share counter unconditionally. Shares are
	// cumulative events, not personal state, so there is no toggle.
	RecordShare(ctx context.Context, postID string) error

	// CastVote applies a poll vote with single-current-vote semantics.
	// Voting at or after expiry returns ErrPollExpired.
	CastVote(ctx context.Context, postID string, optionIndex int) error

	// PollResults returns per-option percentages for a post's poll. A poll
	// with zero total votes yields all zeros.
	PollResults(ctx context.Context, postID string) []float64

	// GetPost retrieves a snapshot copy of a post by id.
	GetPost(ctx context.Context, postID string) (*Post, error)

	// Feed returns a snapshot of the post list, most recent first.
	Feed(ctx context.Context) []*Post

	// CommentsFor returns the stored comments of a post, oldest first.
	CommentsFor(ctx context.Context, postID string) []*Comment
}

// Messenger manages the chat list, per-chat message histories, the outbound
// delivery simulation and the typing-indicator signal.
type Messenger interface {
	// SendMessage appends an outbound message to a chat's history and
	// schedules its delivery completion. Whitespace-only content yields no
	// message and no error.
	SendMessage(ctx context.Context, chatID string, content string) (*Message, error)

	// SendReply is SendMessage with a weak reference to an earlier message.
	SendReply(ctx context.Context, chatID string, content string, replyToID string) (*Message, error)

	// ReceiveMessage appends an inbound message, already delivered, and
	// bumps the chat's unread counter unless the chat is open.
	ReceiveMessage(ctx context.Context, chatID string, sender Actor, content string) (*Message, error)

	// EditMessage replaces a message's content and sets its edited flag.
	EditMessage(ctx context.Context, chatID string, messageID string, content string) error

	// DeleteMessage soft-deletes a message; the history keeps its slot.
	DeleteMessage(ctx context.Context, chatID string, messageID string) error

	// ToggleMessageReaction adds or removes the current actor from the
	// emoji's reacting set.
	ToggleMessageReaction(ctx context.Context, chatID string, messageID string, emoji string) error

	// OpenChat makes a chat the active conversation. It does not touch the
	// unread counter; that is MarkChatRead's job.
	OpenChat(chatID string)

	// MarkChatRead zeroes the unread counter and marks delivered inbound
	// messages as read.
	MarkChatRead(ctx context.Context, chatID string) error

	// PinChat sets the chat's pinned flag.
	PinChat(ctx context.Context, chatID string, pinned bool) error

	// MuteChat sets the chat's muted flag.
	MuteChat(ctx context.Context, chatID string, muted bool) error

	// ArchiveChat sets the chat's archived flag.
	ArchiveChat(ctx context.Context, chatID string, archived bool) error

	// SetComposing feeds the typing indicator with the current uncommitted
	// input text.
	SetComposing(ctx context.Context, chatID string, text string)

	// IsTyping reports whether the typing signal is asserted for a chat.
	IsTyping(chatID string) bool

	// ActiveChat returns the id of the open chat, or "" when none is open.
	ActiveChat() string

	// Chats returns a snapshot of the chat list, pinned chats first, then
	// by most recent activity.
	Chats(ctx context.Context) []*Chat

	// Conversation returns a snapshot of a chat's message history in
	// submission order.
	Conversation(ctx context.Context, chatID string) []*Message

	// ResolveReply resolves a message's reply reference. A deleted or
	// missing target yields nil.
	ResolveReply(ctx context.Context, chatID string, messageID string) *Message

	// Close cancels all outstanding timers owned by the messenger.
	Close()
}
