package thread

import (
	"context"
	"errors"
	"testing"

	"opacity-verifier/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errMissing = errors.New("missing")

type fakeTweets struct {
	tweets map[string]types.Tweet
	calls  []string
}

func (f *fakeTweets) GetTweet(_ context.Context, id string) (*types.Tweet, error) {
	f.calls = append(f.calls, id)
	tw, ok := f.tweets[id]
	if !ok {
		return nil, errMissing
	}
	return &tw, nil
}

func reply(id, parent string) types.Tweet {
	return types.Tweet{
		ID:         id,
		AuthorID:   "author-" + id,
		References: []types.Reference{{Type: types.RefRepliedTo, ID: parent}},
	}
}

func newFake(tweets ...types.Tweet) *fakeTweets {
	f := &fakeTweets{tweets: map[string]types.Tweet{}}
	for _, tw := range tweets {
		f.tweets[tw.ID] = tw
	}
	return f
}

func TestResolve_Chain(t *testing.T) {
	f := newFake(types.Tweet{ID: "1", AuthorID: "a1"}, reply("2", "1"), reply("3", "2"))
	r := NewResolver(f, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), "3", 10)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, "1", res.Root.ID)
	assert.Equal(t, "3", res.Origin.ID)
	assert.Equal(t, 2, res.Hops)
}

func TestResolve_RootIsRequest(t *testing.T) {
	f := newFake(types.Tweet{ID: "1"})
	res, err := NewResolver(f, nil).Resolve(context.Background(), "1", 10)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, "1", res.Root.ID)
	assert.Equal(t, 0, res.Hops)
}

func TestResolve_IgnoresQuotes(t *testing.T) {
	quote := types.Tweet{
		ID:         "2",
		References: []types.Reference{{Type: types.RefQuoted, ID: "1"}},
	}
	f := newFake(types.Tweet{ID: "1"}, quote)
	res, err := NewResolver(f, nil).Resolve(context.Background(), "2", 10)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, "2", res.Root.ID)
}

func TestResolve_FollowsFirstReplyReference(t *testing.T) {
	mixed := types.Tweet{
		ID: "3",
		References: []types.Reference{
			{Type: types.RefQuoted, ID: "9"},
			{Type: types.RefRepliedTo, ID: "1"},
		},
	}
	f := newFake(types.Tweet{ID: "1"}, mixed)
	res, err := NewResolver(f, nil).Resolve(context.Background(), "3", 10)
	require.NoError(t, err)
	assert.Equal(t, "1", res.Root.ID)
	assert.Equal(t, []string{"3", "1"}, f.calls)
}

func TestResolve_MissingParentTruncates(t *testing.T) {
	f := newFake(reply("2", "1"), reply("3", "2"))
	res, err := NewResolver(f, zaptest.NewLogger(t)).Resolve(context.Background(), "3", 10)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, "2", res.Root.ID)
}

func TestResolve_RequestNotFound(t *testing.T) {
	_, err := NewResolver(newFake(), nil).Resolve(context.Background(), "404", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, errMissing)
}

func TestResolve_EmptyReferenceIsMalformed(t *testing.T) {
	f := newFake(reply("2", ""))
	_, err := NewResolver(f, nil).Resolve(context.Background(), "2", 10)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestResolve_TerminatesOnBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		tweets []types.Tweet
		start  string
		depth  int
		root   string
		maxGet int
	}{
		{name: "self reference", tweets: []types.Tweet{reply("1", "1")}, start: "1", depth: 50, root: "1", maxGet: 1},
		{name: "two cycle", tweets: []types.Tweet{reply("1", "2"), reply("2", "1")}, start: "1", depth: 50, root: "2", maxGet: 2},
		{name: "depth bound", tweets: []types.Tweet{reply("4", "3"), reply("3", "2"), reply("2", "1"), {ID: "1"}}, start: "4", depth: 2, root: "2", maxGet: 3},
		{name: "zero depth", tweets: []types.Tweet{reply("2", "1"), {ID: "1"}}, start: "2", depth: 0, root: "2", maxGet: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake(tt.tweets...)
			res, err := NewResolver(f, zaptest.NewLogger(t)).Resolve(context.Background(), tt.start, tt.depth)
			require.NoError(t, err)
			assert.False(t, res.Complete)
			assert.Equal(t, tt.root, res.Root.ID)
			assert.LessOrEqual(t, len(f.calls), tt.maxGet)
			assert.LessOrEqual(t, res.Hops, tt.depth)
		})
	}
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &cancellingTweets{fakeTweets: newFake(reply("2", "1"), types.Tweet{ID: "1"}), cancel: cancel}
	_, err := NewResolver(f, nil).Resolve(ctx, "2", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

type cancellingTweets struct {
	*fakeTweets
	cancel context.CancelFunc
}

func (c *cancellingTweets) GetTweet(ctx context.Context, id string) (*types.Tweet, error) {
	if len(c.calls) == 1 {
		c.cancel()
		c.calls = append(c.calls, id)
		return nil, ctx.Err()
	}
	return c.fakeTweets.GetTweet(ctx, id)
}
