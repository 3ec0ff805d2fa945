// Package feedpulse implements the client-side state engine behind a social
// feed and direct-messaging surface.
package feedpulse

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPostNotFound is returned when a post is not found
	ErrPostNotFound = errors.New("post not found")

	// ErrChatNotFound is returned when a chat is not found
	ErrChatNotFound = errors.New("chat not found")

	// ErrPollExpired is returned when a vote is cast at or after the poll's
	// expiry timestamp
	ErrPollExpired = errors.New("poll expired")
)

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// InMemoryEngagementStore implements EngagementStore with in-memory storage.
// The feed slice is kept most-recent-first; the index map backs id lookups.
type InMemoryEngagementStore struct {
	mutex    sync.RWMutex
	actor    Actor
	feed     []*Post          // most recent first
	byID     map[string]*Post // postID -> Post
	comments map[string][]*Comment
	now      func() time.Time
}

// NewInMemoryEngagementStore creates a new engagement store for the given
// current actor, seeded with the provided posts in feed order.
func NewInMemoryEngagementStore(actor Actor, seed []*Post) *InMemoryEngagementStore {
	s := &InMemoryEngagementStore{
		actor:    actor,
		byID:     make(map[string]*Post),
		comments: make(map[string][]*Comment),
		now:      time.Now,
	}
	for _, post := range seed {
		postCopy := *post
		s.feed = append(s.feed, &postCopy)
		s.byID[postCopy.ID] = &postCopy
	}
	return s
}

// CreatePost constructs a new post authored by the current actor and prepends
// it to the feed. Hashtags and mentions are derived from the content.
func (s *InMemoryEngagementStore) CreatePost(ctx context.Context, content string, media *Media) (*Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	kind := ContentText
	if media != nil {
		switch media.Kind {
		case MediaVideo:
			kind = ContentVideo
		default:
			kind = ContentImage
		}
	}

	post := &Post{
		ID:        uuid.New().String(),
		Author:    s.actor,
		Content:   content,
		Kind:      kind,
		Media:     media,
		CreatedAt: s.now(),
		Hashtags:  hashtagPattern.FindAllString(content, -1),
		Mentions:  mentionPattern.FindAllString(content, -1),
	}

	// Prepend: the feed's only defined order is most-recent-first
	s.feed = append([]*Post{post}, s.feed...)
	s.byID[post.ID] = post

	postCopy := *post
	return &postCopy, nil
}

// ToggleLike flips the personal like flag and adjusts the like counter.
// Unknown post ids are a silent no-op.
func (s *InMemoryEngagementStore) ToggleLike(ctx context.Context, postID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	post, exists := s.byID[postID]
	if !exists {
		return nil
	}

	if post.IsLiked {
		post.IsLiked = false
		if post.Likes > 0 {
			post.Likes--
		}
	} else {
		post.IsLiked = true
		post.Likes++
	}

	return nil
}

// ToggleBookmark flips the personal bookmark flag and adjusts the bookmark
// counter. Independent of the like state.
func (s *InMemoryEngagementStore) ToggleBookmark(ctx context.Context, postID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	post, exists := s.byID[postID]
	if !exists {
		return nil
	}

	if post.IsBookmarked {
		post.IsBookmarked = false
		if post.Bookmarks > 0 {
			post.Bookmarks--
		}
	} else {
		post.IsBookmarked = true
		post.Bookmarks++
	}

	return nil
}

// AddComment increments the comment counter by exactly one per accepted
// submission and stores the comment text. Empty or whitespace-only text is
// rejected without any state change.
func (s *InMemoryEngagementStore) AddComment(ctx context.Context, postID string, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	post, exists := s.byID[postID]
	if !exists {
		return nil
	}

	post.Comments++
	s.comments[postID] = append(s.comments[postID], &Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		Author:    s.actor,
		Text:      text,
		CreatedAt: s.now(),
	})

	return nil
}

// RecordShare increments the share counter unconditionally. Shares are
// cumulative events, not personal state, so there is no toggle and no
// decrement path.
func (s *InMemoryEngagementStore) RecordShare(ctx context.Context, postID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	post, exists := s.byID[postID]
	if !exists {
		return nil
	}

	post.Shares++
	return nil
}

// GetPost retrieves a post by its ID.
func (s *InMemoryEngagementStore) GetPost(ctx context.Context, postID string) (*Post, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	post, exists := s.byID[postID]
	if !exists {
		return nil, ErrPostNotFound
	}

	return copyPost(post), nil
}

// Feed returns a snapshot of the post list, most recent first.
func (s *InMemoryEngagementStore) Feed(ctx context.Context) []*Post {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]*Post, len(s.feed))
	for i, post := range s.feed {
		result[i] = copyPost(post)
	}
	return result
}

// CommentsFor returns the stored comments of a post, oldest first.
func (s *InMemoryEngagementStore) CommentsFor(ctx context.Context, postID string) []*Comment {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stored := s.comments[postID]
	result := make([]*Comment, len(stored))
	for i, comment := range stored {
		commentCopy := *comment
		result[i] = &commentCopy
	}
	return result
}

// copyPost returns a deep enough copy to prevent modifications to the stored
// post through a snapshot. Poll and option slices are duplicated because vote
// transitions mutate them in place.
func copyPost(post *Post) *Post {
	postCopy := *post
	if post.Poll != nil {
		pollCopy := *post.Poll
		pollCopy.Options = append([]PollOption(nil), post.Poll.Options...)
		if post.Poll.UserVote != nil {
			vote := *post.Poll.UserVote
			pollCopy.UserVote = &vote
		}
		postCopy.Poll = &pollCopy
	}
	return &postCopy
}
