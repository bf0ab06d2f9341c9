package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"opacity-verifier/internal/opacity"
	"opacity-verifier/internal/proof"
	"opacity-verifier/internal/reply"
	"opacity-verifier/internal/thread"
	"opacity-verifier/internal/trading"
	"opacity-verifier/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Feed is the social feed the orchestrator reads threads from and replies to.
type Feed interface {
	GetTweet(ctx context.Context, id string) (*types.Tweet, error)
	GetUser(ctx context.Context, id string) (*types.User, error)
	PostReply(ctx context.Context, targetID, text string) (string, error)
}

// Prover fetches proof blobs and judges them.
type Prover interface {
	FetchProof(ctx context.Context, token string) (json.RawMessage, error)
	Verify(ctx context.Context, blob json.RawMessage) (bool, error)
}

// Gateway moves money in response to a verdict.
type Gateway interface {
	IssueTrust(ctx context.Context) (types.Receipt, error)
	IssueDistrust(ctx context.Context) (types.Receipt, error)
	RevokeTrust(ctx context.Context) (types.Receipt, error)
	TransferBounty(ctx context.Context, address string) (types.Receipt, error)
}

// Ledger records authors that have been verified. Record must check and insert
// atomically and report whether the identity was new.
type Ledger interface {
	Contains(identity string) bool
	Record(identity string) (bool, error)
}

// State is a step of a verification attempt.
type State string

const (
	StateResolvingThread   State = "RESOLVING_THREAD"
	StateExtractingProof   State = "EXTRACTING_PROOF"
	StateFetchingProof     State = "FETCHING_PROOF"
	StateVerifying         State = "VERIFYING"
	StateDispatchingAction State = "DISPATCHING_ACTION"
	StateReplying          State = "REPLYING"
	StateDone              State = "DONE"
	StateFailed            State = "FAILED"
)

// Status is the terminal status of an attempt.
type Status string

const (
	StatusDone   Status = "DONE"
	StatusFailed Status = "FAILED"
)

// Payload carries whatever identifiers an attempt resolved.
type Payload struct {
	AttemptID       string `json:"attempt_id"`
	Valid           *bool  `json:"valid,omitempty"`
	OriginalTweetID string `json:"original_tweet_id,omitempty"`
	ProofID         string `json:"proof_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Kind            Kind   `json:"kind,omitempty"`
}

// Result is the outcome of one attempt.
type Result struct {
	Status  Status  `json:"status"`
	Message string  `json:"message"`
	Payload Payload `json:"payload"`
}

// Options tune the orchestrator.
type Options struct {
	// MaxDepth bounds thread ascent.
	MaxDepth int
	// CallTimeout applies to every collaborator call. Zero disables it.
	CallTimeout time.Duration
	Composer    reply.Composer
}

// Orchestrator runs verification attempts. It is safe for concurrent use as long as
// its collaborators are.
type Orchestrator struct {
	feed     Feed
	prover   Prover
	gateway  Gateway
	ledger   Ledger
	resolver *thread.Resolver
	opts     Options
	log      *zap.Logger
}

// New wires an Orchestrator.
func New(feed Feed, prover Prover, gateway Gateway, ledger Ledger, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		feed:    feed,
		prover:  prover,
		gateway: gateway,
		ledger:  ledger,
		opts:    opts,
		log:     log,
	}
	o.resolver = thread.NewResolver(timedTweets{o}, log)
	return o
}

type attempt struct {
	requestID string
	state     State
	payload   Payload
	log       *zap.Logger
}

func (a *attempt) enter(s State) {
	a.state = s
	a.log.Debug("attempt state", zap.String("state", string(s)))
}

// Verify runs one attempt for the thread containing tweetID and replies under
// tweetID. It never returns an error: failures are reported in the Result.
func (o *Orchestrator) Verify(ctx context.Context, tweetID string) Result {
	id := uuid.NewString()
	a := &attempt{
		requestID: tweetID,
		payload:   Payload{AttemptID: id},
		log:       o.log.With(zap.String("attempt_id", id), zap.String("tweet_id", tweetID)),
	}
	res, f := o.run(ctx, a)
	if f != nil {
		a.enter(StateFailed)
		a.log.Warn("verification failed",
			zap.String("kind", string(f.Kind)), zap.String("reason", f.Reason), zap.Error(f.Err))
		a.payload.Reason = f.Reason
		a.payload.Kind = f.Kind
		return Result{Status: StatusFailed, Message: f.Message, Payload: a.payload}
	}
	return res
}

func (o *Orchestrator) run(ctx context.Context, a *attempt) (Result, *Failure) {
	if a.requestID == "" {
		return Result{}, fail(KindMalformed, ReasonInvalidTweetID, "Invalid tweet ID provided", nil)
	}

	a.enter(StateResolvingThread)
	th, err := o.resolver.Resolve(ctx, a.requestID, o.opts.MaxDepth)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return Result{}, fail(KindInternal, ReasonCancelled, "Verification cancelled", err)
	case errors.Is(err, thread.ErrMalformed):
		return Result{}, fail(KindMalformed, ReasonMalformedThread, "Could not follow the reply chain", err)
	default:
		return Result{}, fail(KindNotFound, ReasonTweetNotFound, "Could not retrieve tweet", err)
	}
	root := th.Root
	a.payload.OriginalTweetID = root.ID
	a.log = a.log.With(zap.String("root_id", root.ID))
	if !th.Complete {
		a.log.Info("using truncated thread root", zap.Int("hops", th.Hops))
	}
	if root.AuthorID == "" {
		return Result{}, fail(KindMalformed, ReasonNoAuthor, "Could not determine tweet author", nil)
	}

	a.enter(StateExtractingProof)
	proofID, ok := proof.ExtractProof(root.Text)
	if !ok {
		return Result{}, fail(KindMalformed, ReasonNoProofID, "No proof ID found in the original tweet", nil)
	}
	a.payload.ProofID = proofID
	address, ok := proof.ExtractAddress(root.Text)
	if !ok && th.Origin.ID != root.ID {
		address, _ = proof.ExtractAddress(th.Origin.Text)
	}

	a.enter(StateFetchingProof)
	blob, err := o.fetchProof(ctx, proofID)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fail(KindInternal, ReasonCancelled, "Verification cancelled", err)
		}
		kind := KindUpstream
		if errors.Is(err, opacity.ErrNotFound) {
			kind = KindNotFound
		}
		return Result{}, fail(kind, ReasonFetchError, fmt.Sprintf("Error fetching proof data: %v", err), err)
	}

	a.enter(StateVerifying)
	valid, err := o.verifyProof(ctx, blob)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fail(KindInternal, ReasonCancelled, "Verification cancelled", err)
		}
		return Result{}, fail(KindUpstream, ReasonInternalError, fmt.Sprintf("Error during proof verification: %v", err), err)
	}
	a.payload.Valid = &valid

	// Cancellation is honoured up to here. Dispatch and reply run to completion.
	if err := ctx.Err(); err != nil {
		return Result{}, fail(KindInternal, ReasonCancelled, "Verification cancelled", err)
	}
	ctx = context.WithoutCancel(ctx)

	a.enter(StateDispatchingAction)
	d, f := o.dispatch(ctx, a, root.AuthorID, valid, address)
	if f != nil {
		return Result{}, f
	}

	a.enter(StateReplying)
	in := reply.Input{
		Valid:              valid,
		PreviouslyVerified: d.previously,
		ProofID:            proofID,
		PayoutAddress:      address,
		Transfer:           d.receipt,
		TransferFailure:    d.transferFailure,
	}
	if a.requestID != root.ID {
		in.Mention = o.handle(ctx, a, root.AuthorID)
		in.FromParent = true
	}
	message := "Proof verification completed and responses posted"
	if err := o.postReply(ctx, a.requestID, o.opts.Composer.Compose(in)); err != nil {
		a.log.Warn("reply not posted", zap.Error(err))
		message = "Proof verification completed; reply could not be posted"
	}

	a.enter(StateDone)
	a.log.Info("verification done", zap.Bool("valid", valid), zap.Bool("previously_verified", d.previously))
	return Result{Status: StatusDone, Message: message, Payload: a.payload}, nil
}

// dispatched is what the action step hands to the reply.
type dispatched struct {
	previously      bool
	receipt         *types.Receipt
	transferFailure string
}

// dispatch applies the verdict matrix. For a valid proof the ledger Record call is the
// membership check, so two concurrent first-time attempts for one author cannot both
// pay the bounty. Gateway errors are logged and do not fail the attempt.
func (o *Orchestrator) dispatch(ctx context.Context, a *attempt, author string, valid bool, address string) (dispatched, *Failure) {
	var d dispatched
	if valid {
		first, err := o.ledger.Record(author)
		if err != nil {
			return d, fail(KindInternal, ReasonInternalError, "Could not record verified author", err)
		}
		d.previously = !first
	} else {
		d.previously = o.ledger.Contains(author)
	}
	a.log.Debug("ledger checked", zap.String("author_id", author), zap.Bool("previously_verified", d.previously))

	switch {
	case valid && !d.previously:
		o.act(ctx, a, "issue_trust", o.gateway.IssueTrust)
		if address == "" {
			break
		}
		r, err := o.transfer(ctx, address)
		if err != nil {
			d.transferFailure = trading.FailureReason(err)
			a.log.Warn("bounty transfer failed", zap.String("address", address),
				zap.String("class", d.transferFailure), zap.Error(err))
			break
		}
		d.receipt = &r
	case valid:
		o.act(ctx, a, "issue_trust", o.gateway.IssueTrust)
	case !d.previously:
		o.act(ctx, a, "issue_distrust", o.gateway.IssueDistrust)
	default:
		o.act(ctx, a, "revoke_trust", o.gateway.RevokeTrust)
	}
	return d, nil
}

func (o *Orchestrator) act(ctx context.Context, a *attempt, name string, fn func(context.Context) (types.Receipt, error)) {
	ctx, cancel := o.callCtx(ctx)
	defer cancel()
	r, err := fn(ctx)
	if err != nil {
		a.log.Warn("trading action failed", zap.String("action", name), zap.Error(err))
		return
	}
	a.log.Info("trading action done", zap.String("action", name), zap.String("tx", r.TxReference))
}

// handle returns the root author's username, or the raw id when the lookup fails.
func (o *Orchestrator) handle(ctx context.Context, a *attempt, authorID string) string {
	ctx, cancel := o.callCtx(ctx)
	defer cancel()
	u, err := o.feed.GetUser(ctx, authorID)
	if err != nil || u == nil || u.Username == "" {
		a.log.Debug("author lookup failed, mentioning raw id", zap.String("author_id", authorID), zap.Error(err))
		return authorID
	}
	return u.Username
}

func (o *Orchestrator) fetchProof(ctx context.Context, token string) (json.RawMessage, error) {
	ctx, cancel := o.callCtx(ctx)
	defer cancel()
	return o.prover.FetchProof(ctx, token)
}

func (o *Orchestrator) verifyProof(ctx context.Context, blob json.RawMessage) (bool, error) {
	ctx, cancel := o.callCtx(ctx)
	defer cancel()
	return o.prover.Verify(ctx, blob)
}

func (o *Orchestrator) transfer(ctx context.Context, address string) (types.Receipt, error) {
	ctx, cancel := o.callCtx(ctx)
	defer cancel()
	return o.gateway.TransferBounty(ctx, address)
}

func (o *Orchestrator) postReply(ctx context.Context, target, text string) error {
	ctx, cancel := o.callCtx(ctx)
	defer cancel()
	_, err := o.feed.PostReply(ctx, target, text)
	return err
}

func (o *Orchestrator) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.opts.CallTimeout)
}

// timedTweets applies the call timeout to each tweet fetch made during ascent.
type timedTweets struct{ o *Orchestrator }

func (t timedTweets) GetTweet(ctx context.Context, id string) (*types.Tweet, error) {
	ctx, cancel := t.o.callCtx(ctx)
	defer cancel()
	return t.o.feed.GetTweet(ctx, id)
}
