// Package feedpulse implements the client-side state engine behind a social
// feed and direct-messaging surface.
package feedpulse

import (
	"context"
)

// CastVote applies a poll vote with single-current-vote-per-actor semantics.
//
// Re-voting the current option is a no-op, which shields the counters from
// duplicate UI events. Switching options transfers the vote: the old option
// loses one, the new option gains one, and TotalVotes is unchanged. A first
// vote increments TotalVotes. Votes at or after the expiry timestamp return
// ErrPollExpired and leave all poll fields unchanged; expiry is an inclusive
// cutoff. Unknown posts, posts without a poll, and out-of-range option
// indexes are silent no-ops.
func (s *InMemoryEngagementStore) CastVote(ctx context.Context, postID string, optionIndex int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	post, exists := s.byID[postID]
	if !exists || post.Poll == nil {
		return nil
	}

	poll := post.Poll
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return nil
	}

	if !s.now().Before(poll.ExpiresAt) {
		return ErrPollExpired
	}

	if poll.UserVote != nil {
		if *poll.UserVote == optionIndex {
			return nil
		}

		// Vote transfer: TotalVotes stays put
		if poll.Options[*poll.UserVote].Votes > 0 {
			poll.Options[*poll.UserVote].Votes--
		}
	} else {
		// First-time vote
		poll.TotalVotes++
	}

	poll.Options[optionIndex].Votes++
	vote := optionIndex
	poll.UserVote = &vote

	return nil
}

// PollResults returns the per-option vote share of a post's poll as fractions
// in [0,1]. A poll with zero total votes yields all zeros rather than
// dividing by zero. Posts without a poll yield nil.
func (s *InMemoryEngagementStore) PollResults(ctx context.Context, postID string) []float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	post, exists := s.byID[postID]
	if !exists || post.Poll == nil {
		return nil
	}

	poll := post.Poll
	result := make([]float64, len(poll.Options))
	if poll.TotalVotes == 0 {
		return result
	}

	for i, option := range poll.Options {
		result[i] = float64(option.Votes) / float64(poll.TotalVotes)
	}
	return result
}
