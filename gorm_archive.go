// Package feedpulse implements the client-side state engine behind a social
// feed and direct-messaging surface.
package feedpulse

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// GormArchiveStore implements ArchiveStore with GORM as the underlying
// storage. It keeps a local on-device snapshot of the session; there is no
// server behind it. Each save replaces the previous snapshot wholesale.
type GormArchiveStore struct {
	db *gorm.DB
}

// ActorModel is the GORM model for storing actors referenced by posts and
// chats.
type ActorModel struct {
	ID          string `gorm:"primaryKey"`
	Username    string
	DisplayName string
	AvatarURL   string
	Verified    bool
	Followers   int
	Following   int
}

// PostModel is the GORM model for storing feed posts. Derived fields
// (hashtags, mentions) are not persisted; they are re-extracted on load.
type PostModel struct {
	ID           string `gorm:"primaryKey"`
	Position     int    `gorm:"index"` // feed order, 0 = most recent
	AuthorID     string `gorm:"index"`
	Content      string
	Kind         uint8
	CreatedAt    time.Time
	Likes        int
	Comments     int
	Shares       int
	Bookmarks    int
	IsLiked      bool
	IsBookmarked bool
	HasMedia     bool
	MediaKind    uint8
	MediaURLs    string // newline-joined, ordered
	ThumbnailURL string
	MediaLength  int
	HasPoll      bool
	PollQuestion string
	PollExpires  time.Time
	PollTotal    int
	PollUserVote *int
}

// PollOptionModel is the GORM model for storing poll options in order.
type PollOptionModel struct {
	PostID string `gorm:"primaryKey"`
	Idx    int    `gorm:"primaryKey"`
	Text   string
	Votes  int
}

// ChatModel is the GORM model for storing chats.
type ChatModel struct {
	ID            string `gorm:"primaryKey"`
	Position      int    `gorm:"index"`
	Unread        int
	Pinned        bool
	Muted         bool
	Archived      bool
	LastMessageID string
}

// ChatParticipantModel links chats to their participant actors in order.
type ChatParticipantModel struct {
	ChatID   string `gorm:"primaryKey"`
	ActorID  string `gorm:"primaryKey"`
	Position int
}

// MessageModel is the GORM model for storing chat messages.
type MessageModel struct {
	ID          string `gorm:"primaryKey"`
	ChatID      string `gorm:"index"`
	Position    int    `gorm:"index"` // submission order within the chat
	SenderID    string
	RecipientID string
	Content     string
	Kind        uint8
	CreatedAt   time.Time
	IsDelivered bool
	IsRead      bool
	ReplyTo     string
	Edited      bool
	Deleted     bool
}

// MessageReactionModel is the GORM model for storing emoji reactions.
type MessageReactionModel struct {
	MessageID string `gorm:"primaryKey"`
	Emoji     string `gorm:"primaryKey"`
	ActorID   string `gorm:"primaryKey"`
	Position  int
}

// NewGormArchiveStore creates a new instance of GormArchiveStore.
func NewGormArchiveStore(db *gorm.DB) (*GormArchiveStore, error) {
	err := db.AutoMigrate(
		&ActorModel{},
		&PostModel{},
		&PollOptionModel{},
		&ChatModel{},
		&ChatParticipantModel{},
		&MessageModel{},
		&MessageReactionModel{},
	)
	if err != nil {
		return nil, err
	}

	return &GormArchiveStore{db: db}, nil
}

func toActorModel(actor Actor) ActorModel {
	return ActorModel{
		ID:          actor.ID,
		Username:    actor.Username,
		DisplayName: actor.DisplayName,
		AvatarURL:   actor.AvatarURL,
		Verified:    actor.Verified,
		Followers:   actor.Followers,
		Following:   actor.Following,
	}
}

func toActor(model ActorModel) Actor {
	return Actor{
		ID:          model.ID,
		Username:    model.Username,
		DisplayName: model.DisplayName,
		AvatarURL:   model.AvatarURL,
		Verified:    model.Verified,
		Followers:   model.Followers,
		Following:   model.Following,
	}
}

// SaveFeed replaces the archived feed with the given posts.
func (s *GormArchiveStore) SaveFeed(ctx context.Context, posts []*Post) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&PostModel{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&PollOptionModel{}).Error; err != nil {
			return err
		}

		for position, post := range posts {
			model := PostModel{
				ID:           post.ID,
				Position:     position,
				AuthorID:     post.Author.ID,
				Content:      post.Content,
				Kind:         uint8(post.Kind),
				CreatedAt:    post.CreatedAt,
				Likes:        post.Likes,
				Comments:     post.Comments,
				Shares:       post.Shares,
				Bookmarks:    post.Bookmarks,
				IsLiked:      post.IsLiked,
				IsBookmarked: post.IsBookmarked,
			}

			if post.Media != nil {
				model.HasMedia = true
				model.MediaKind = uint8(post.Media.Kind)
				model.MediaURLs = strings.Join(post.Media.URLs, "\n")
				model.ThumbnailURL = post.Media.ThumbnailURL
				model.MediaLength = post.Media.Duration
			}

			if post.Poll != nil {
				model.HasPoll = true
				model.PollQuestion = post.Poll.Question
				model.PollExpires = post.Poll.ExpiresAt
				model.PollTotal = post.Poll.TotalVotes
				if post.Poll.UserVote != nil {
					vote := *post.Poll.UserVote
					model.PollUserVote = &vote
				}

				for idx, option := range post.Poll.Options {
					optionModel := PollOptionModel{
						PostID: post.ID,
						Idx:    idx,
						Text:   option.Text,
						Votes:  option.Votes,
					}
					if err := tx.Create(&optionModel).Error; err != nil {
						return err
					}
				}
			}

			if err := tx.Create(&model).Error; err != nil {
				return err
			}

			actorModel := toActorModel(post.Author)
			if err := tx.Save(&actorModel).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// LoadFeed returns the archived feed, most recent first.
func (s *GormArchiveStore) LoadFeed(ctx context.Context) ([]*Post, error) {
	var models []PostModel
	if err := s.db.WithContext(ctx).Order("position asc").Find(&models).Error; err != nil {
		return nil, err
	}

	posts := make([]*Post, 0, len(models))
	for _, model := range models {
		post, err := s.toPost(ctx, model)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *GormArchiveStore) toPost(ctx context.Context, model PostModel) (*Post, error) {
	author, err := s.loadActor(ctx, model.AuthorID)
	if err != nil {
		return nil, err
	}

	post := &Post{
		ID:           model.ID,
		Author:       author,
		Content:      model.Content,
		Kind:         ContentKind(model.Kind),
		CreatedAt:    model.CreatedAt,
		Likes:        model.Likes,
		Comments:     model.Comments,
		Shares:       model.Shares,
		Bookmarks:    model.Bookmarks,
		IsLiked:      model.IsLiked,
		IsBookmarked: model.IsBookmarked,
		Hashtags:     hashtagPattern.FindAllString(model.Content, -1),
		Mentions:     mentionPattern.FindAllString(model.Content, -1),
	}

	if model.HasMedia {
		media := &Media{
			Kind:         MediaKind(model.MediaKind),
			ThumbnailURL: model.ThumbnailURL,
			Duration:     model.MediaLength,
		}
		if model.MediaURLs != "" {
			media.URLs = strings.Split(model.MediaURLs, "\n")
		}
		post.Media = media
	}

	if model.HasPoll {
		poll := &Poll{
			Question:   model.PollQuestion,
			ExpiresAt:  model.PollExpires,
			TotalVotes: model.PollTotal,
		}
		if model.PollUserVote != nil {
			vote := *model.PollUserVote
			poll.UserVote = &vote
		}

		var optionModels []PollOptionModel
		err := s.db.WithContext(ctx).Where("post_id = ?", model.ID).Order("idx asc").Find(&optionModels).Error
		if err != nil {
			return nil, err
		}
		for _, optionModel := range optionModels {
			poll.Options = append(poll.Options, PollOption{
				Text:  optionModel.Text,
				Votes: optionModel.Votes,
			})
		}
		post.Poll = poll
	}

	return post, nil
}

func (s *GormArchiveStore) loadActor(ctx context.Context, actorID string) (Actor, error) {
	if actorID == "" {
		return Actor{}, nil
	}
	var model ActorModel
	err := s.db.WithContext(ctx).Where("id = ?", actorID).First(&model).Error
	if err != nil {
		return Actor{}, err
	}
	return toActor(model), nil
}

// SaveConversations replaces the archived chats and their histories.
func (s *GormArchiveStore) SaveConversations(ctx context.Context, chats []*Chat, history map[string][]*Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&ChatModel{}, &ChatParticipantModel{}, &MessageModel{}, &MessageReactionModel{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}

		for position, chat := range chats {
			model := ChatModel{
				ID:       chat.ID,
				Position: position,
				Unread:   chat.Unread,
				Pinned:   chat.Pinned,
				Muted:    chat.Muted,
				Archived: chat.Archived,
			}
			if chat.LastMessage != nil {
				model.LastMessageID = chat.LastMessage.ID
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}

			for idx, participant := range chat.Participants {
				participantModel := ChatParticipantModel{
					ChatID:   chat.ID,
					ActorID:  participant.ID,
					Position: idx,
				}
				if err := tx.Create(&participantModel).Error; err != nil {
					return err
				}
				actorModel := toActorModel(participant)
				if err := tx.Save(&actorModel).Error; err != nil {
					return err
				}
			}

			for position, message := range history[chat.ID] {
				if err := s.saveMessage(tx, chat.ID, position, message); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func (s *GormArchiveStore) saveMessage(tx *gorm.DB, chatID string, position int, message *Message) error {
	model := MessageModel{
		ID:          message.ID,
		ChatID:      chatID,
		Position:    position,
		SenderID:    message.Sender.ID,
		RecipientID: message.Recipient.ID,
		Content:     message.Content,
		Kind:        uint8(message.Kind),
		CreatedAt:   message.CreatedAt,
		IsDelivered: message.IsDelivered,
		IsRead:      message.IsRead,
		ReplyTo:     message.ReplyTo,
		Edited:      message.Edited,
		Deleted:     message.Deleted,
	}
	if err := tx.Create(&model).Error; err != nil {
		return err
	}

	for _, actor := range []Actor{message.Sender, message.Recipient} {
		if actor.ID == "" {
			continue
		}
		actorModel := toActorModel(actor)
		if err := tx.Save(&actorModel).Error; err != nil {
			return err
		}
	}

	for _, reaction := range message.Reactions {
		for position, actorID := range reaction.ActorIDs {
			reactionModel := MessageReactionModel{
				MessageID: message.ID,
				Emoji:     reaction.Emoji,
				ActorID:   actorID,
				Position:  position,
			}
			if err := tx.Create(&reactionModel).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// LoadConversations returns the archived chats and histories.
func (s *GormArchiveStore) LoadConversations(ctx context.Context) ([]*Chat, map[string][]*Message, error) {
	var chatModels []ChatModel
	if err := s.db.WithContext(ctx).Order("position asc").Find(&chatModels).Error; err != nil {
		return nil, nil, err
	}

	chats := make([]*Chat, 0, len(chatModels))
	history := make(map[string][]*Message, len(chatModels))

	for _, chatModel := range chatModels {
		chat := &Chat{
			ID:       chatModel.ID,
			Unread:   chatModel.Unread,
			Pinned:   chatModel.Pinned,
			Muted:    chatModel.Muted,
			Archived: chatModel.Archived,
		}

		var participantModels []ChatParticipantModel
		err := s.db.WithContext(ctx).Where("chat_id = ?", chatModel.ID).Order("position asc").Find(&participantModels).Error
		if err != nil {
			return nil, nil, err
		}
		for _, participantModel := range participantModels {
			actor, err := s.loadActor(ctx, participantModel.ActorID)
			if err != nil {
				return nil, nil, err
			}
			chat.Participants = append(chat.Participants, actor)
		}

		messages, err := s.loadMessages(ctx, chatModel.ID)
		if err != nil {
			return nil, nil, err
		}
		history[chat.ID] = messages

		for _, message := range messages {
			if message.ID == chatModel.LastMessageID {
				chat.LastMessage = message
			}
		}

		chats = append(chats, chat)
	}

	return chats, history, nil
}

func (s *GormArchiveStore) loadMessages(ctx context.Context, chatID string) ([]*Message, error) {
	var models []MessageModel
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("position asc").Find(&models).Error
	if err != nil {
		return nil, err
	}

	messages := make([]*Message, 0, len(models))
	for _, model := range models {
		sender, err := s.loadActor(ctx, model.SenderID)
		if err != nil {
			return nil, err
		}
		recipient, err := s.loadActor(ctx, model.RecipientID)
		if err != nil {
			return nil, err
		}

		message := &Message{
			ID:          model.ID,
			Sender:      sender,
			Recipient:   recipient,
			Content:     model.Content,
			Kind:        ContentKind(model.Kind),
			CreatedAt:   model.CreatedAt,
			IsDelivered: model.IsDelivered,
			IsRead:      model.IsRead,
			ReplyTo:     model.ReplyTo,
			Edited:      model.Edited,
			Deleted:     model.Deleted,
		}

		var reactionModels []MessageReactionModel
		err = s.db.WithContext(ctx).Where("message_id = ?", model.ID).Order("emoji asc, position asc").Find(&reactionModels).Error
		if err != nil {
			return nil, err
		}
		message.Reactions = groupReactions(reactionModels)

		messages = append(messages, message)
	}

	return messages, nil
}

// groupReactions folds reaction rows back into per-emoji actor sets.
func groupReactions(models []MessageReactionModel) []Reaction {
	if len(models) == 0 {
		return nil
	}

	byEmoji := make(map[string][]MessageReactionModel)
	var order []string
	for _, model := range models {
		if _, seen := byEmoji[model.Emoji]; !seen {
			order = append(order, model.Emoji)
		}
		byEmoji[model.Emoji] = append(byEmoji[model.Emoji], model)
	}

	reactions := make([]Reaction, 0, len(order))
	for _, emoji := range order {
		rows := byEmoji[emoji]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
		actorIDs := make([]string, len(rows))
		for i, row := range rows {
			actorIDs[i] = row.ActorID
		}
		reactions = append(reactions, Reaction{Emoji: emoji, ActorIDs: actorIDs})
	}
	return reactions
}
