package thread

import (
	"context"
	"errors"
	"fmt"

	"opacity-verifier/internal/types"

	"go.uber.org/zap"
)

// ErrMalformed reports a reply reference that cannot be followed.
var ErrMalformed = errors.New("thread: malformed reference chain")

// TweetGetter fetches a single tweet. Implementations return an error wrapping a
// not-found sentinel when the tweet does not exist.
type TweetGetter interface {
	GetTweet(ctx context.Context, id string) (*types.Tweet, error)
}

// Resolution is the outcome of ascending a reply chain.
type Resolution struct {
	// Origin is the tweet the ascent started from.
	Origin types.Tweet
	// Root is the last tweet reached.
	Root types.Tweet
	// Complete is false when ascent stopped before reaching a tweet without a parent.
	Complete bool
	Hops     int
}

// Resolver ascends replied_to references to the thread root.
type Resolver struct {
	Tweets TweetGetter
	Log    *zap.Logger
}

// NewResolver returns a Resolver over the given tweet source.
func NewResolver(tweets TweetGetter, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{Tweets: tweets, Log: log}
}

// Resolve walks from tweetID to the root of its reply chain, following at most maxDepth
// replied_to references. Only a failure to fetch tweetID itself is an error; a missing
// parent, a cycle or the depth bound yield a truncated Resolution.
func (r *Resolver) Resolve(ctx context.Context, tweetID string, maxDepth int) (Resolution, error) {
	origin, err := r.Tweets.GetTweet(ctx, tweetID)
	if err != nil {
		return Resolution{}, fmt.Errorf("fetch tweet %s: %w", tweetID, err)
	}

	res := Resolution{Origin: *origin, Root: *origin}
	seen := map[string]bool{origin.ID: true}
	current := origin
	for {
		parentID, ok := current.Parent()
		if !ok {
			res.Complete = true
			return res, nil
		}
		if parentID == "" {
			return res, fmt.Errorf("tweet %s: %w", current.ID, ErrMalformed)
		}
		if res.Hops >= maxDepth {
			r.Log.Warn("thread ascent hit depth bound",
				zap.String("tweet_id", tweetID), zap.Int("max_depth", maxDepth))
			return res, nil
		}
		if seen[parentID] {
			r.Log.Warn("thread ascent found a cycle",
				zap.String("tweet_id", tweetID), zap.String("parent_id", parentID))
			return res, nil
		}

		parent, err := r.Tweets.GetTweet(ctx, parentID)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			r.Log.Warn("parent tweet unavailable, using last fetched tweet as root",
				zap.String("tweet_id", tweetID), zap.String("parent_id", parentID), zap.Error(err))
			return res, nil
		}
		res.Hops++
		seen[parent.ID] = true
		current = parent
		res.Root = *parent
	}
}
