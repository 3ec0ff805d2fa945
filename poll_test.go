package feedpulse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollPost builds a post carrying a two-option poll expiring at the given
// time
func pollPost(expiresAt time.Time) *Post {
	return &Post{
		ID:        uuid.New().String(),
		Author:    testActor("author1", "author1"),
		Content:   "Which one?",
		Kind:      ContentPoll,
		CreatedAt: time.Now(),
		Poll: &Poll{
			Question: "Which one?",
			Options: []PollOption{
				{Text: "A"},
				{Text: "B"},
			},
			ExpiresAt: expiresAt,
		},
	}
}

// setupPollStore creates a store seeded with one open poll post
func setupPollStore() (*InMemoryEngagementStore, string) {
	post := pollPost(time.Now().Add(time.Hour))
	store := NewInMemoryEngagementStore(testActor("me", "me"), []*Post{post})
	return store, post.ID
}

// assertPollInvariant checks that TotalVotes equals the sum of option votes
func assertPollInvariant(t *testing.T, store *InMemoryEngagementStore, postID string) {
	t.Helper()
	post, err := store.GetPost(context.Background(), postID)
	require.NoError(t, err)
	require.NotNil(t, post.Poll)

	sum := 0
	for _, option := range post.Poll.Options {
		assert.GreaterOrEqual(t, option.Votes, 0)
		sum += option.Votes
	}
	assert.Equal(t, post.Poll.TotalVotes, sum)
}

// TestCastVoteFirstTime tests the first-time vote path
func TestCastVoteFirstTime(t *testing.T) {
	store, postID := setupPollStore()
	ctx := context.Background()

	err := store.CastVote(ctx, postID, 0)
	assert.NoError(t, err)

	post, err := store.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 1, post.Poll.Options[0].Votes)
	assert.Equal(t, 0, post.Poll.Options[1].Votes)
	assert.Equal(t, 1, post.Poll.TotalVotes)
	require.NotNil(t, post.Poll.UserVote)
	assert.Equal(t, 0, *post.Poll.UserVote)
}

// TestVoteTransfer tests that switching options moves exactly one vote and
// leaves the total unchanged
func TestVoteTransfer(t *testing.T) {
	store, postID := setupPollStore()
	ctx := context.Background()

	// {[{A,0},{B,0}], total:0} -> castVote(0) -> {[{A,1},{B,0}], total:1}
	err := store.CastVote(ctx, postID, 0)
	assert.NoError(t, err)

	post, err := store.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 1, post.Poll.Options[0].Votes)
	assert.Equal(t, 0, post.Poll.Options[1].Votes)
	assert.Equal(t, 1, post.Poll.TotalVotes)

	// castVote(1) -> {[{A,0},{B,1}], total:1}
	err = store.CastVote(ctx, postID, 1)
	assert.NoError(t, err)

	post, err = store.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 0, post.Poll.Options[0].Votes)
	assert.Equal(t, 1, post.Poll.Options[1].Votes)
	assert.Equal(t, 1, post.Poll.TotalVotes)
	require.NotNil(t, post.Poll.UserVote)
	assert.Equal(t, 1, *post.Poll.UserVote)
}

// TestIdempotentRevote tests that casting the same option twice changes no
// counters
func TestIdempotentRevote(t *testing.T) {
	store, postID := setupPollStore()
	ctx := context.Background()

	err := store.CastVote(ctx, postID, 1)
	assert.NoError(t, err)
	err = store.CastVote(ctx, postID, 1)
	assert.NoError(t, err)

	post, err := store.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 0, post.Poll.Options[0].Votes)
	assert.Equal(t, 1, post.Poll.Options[1].Votes)
	assert.Equal(t, 1, post.Poll.TotalVotes)
}

// TestPollInvariantUnderSequences tests that the total equals the option sum
// after every call of an arbitrary vote sequence
func TestPollInvariantUnderSequences(t *testing.T) {
	store, postID := setupPollStore()
	ctx := context.Background()

	sequence := []int{0, 0, 1, 0, 1, 1, 0, 1, 0, 0}
	for _, optionIndex := range sequence {
		err := store.CastVote(ctx, postID, optionIndex)
		assert.NoError(t, err)
		assertPollInvariant(t, store, postID)
	}

	// One actor, one attributed vote
	post, err := store.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 1, post.Poll.TotalVotes)
}

// TestCastVoteExpired tests that a vote at or after expiry is rejected and
// leaves the poll unchanged
func TestCastVoteExpired(t *testing.T) {
	post := pollPost(time.Now().Add(-time.Minute))
	store := NewInMemoryEngagementStore(testActor("me", "me"), []*Post{post})
	ctx := context.Background()

	err := store.CastVote(ctx, post.ID, 0)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPollExpired)

	unchanged, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unchanged.Poll.Options[0].Votes)
	assert.Equal(t, 0, unchanged.Poll.Options[1].Votes)
	assert.Equal(t, 0, unchanged.Poll.TotalVotes)
	assert.Nil(t, unchanged.Poll.UserVote)
}

// TestCastVoteEdgeCases tests the silent no-op paths
func TestCastVoteEdgeCases(t *testing.T) {
	store, postID := setupPollStore()
	ctx := context.Background()

	// Unknown post
	err := store.CastVote(ctx, "nonexistent-id", 0)
	assert.NoError(t, err)

	// Out-of-range option index
	err = store.CastVote(ctx, postID, 5)
	assert.NoError(t, err)
	err = store.CastVote(ctx, postID, -1)
	assert.NoError(t, err)
	assertPollInvariant(t, store, postID)

	// Post without a poll
	plain := seedPost()
	plainStore := NewInMemoryEngagementStore(testActor("me", "me"), []*Post{plain})
	err = plainStore.CastVote(ctx, plain.ID, 0)
	assert.NoError(t, err)
}

// TestPollResults tests the percentage computation and its zero-vote
// convention
func TestPollResults(t *testing.T) {
	store, postID := setupPollStore()
	ctx := context.Background()

	// No votes: all zeros, never a division by zero
	results := store.PollResults(ctx, postID)
	require.Len(t, results, 2)
	assert.Equal(t, 0.0, results[0])
	assert.Equal(t, 0.0, results[1])

	err := store.CastVote(ctx, postID, 0)
	require.NoError(t, err)

	results = store.PollResults(ctx, postID)
	require.Len(t, results, 2)
	assert.Equal(t, 1.0, results[0])
	assert.Equal(t, 0.0, results[1])

	// Unknown post or no poll yields nil
	assert.Nil(t, store.PollResults(ctx, "nonexistent-id"))
}
