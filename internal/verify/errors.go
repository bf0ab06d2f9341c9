package verify

import "fmt"

// Kind classifies why an attempt failed.
type Kind string

const (
	KindNotFound  Kind = "NOT_FOUND"
	KindMalformed Kind = "MALFORMED"
	KindUpstream  Kind = "UPSTREAM"
	KindInternal  Kind = "INTERNAL"
)

// Failure reasons reported in FAILED results.
const (
	ReasonInvalidTweetID  = "invalid tweet id"
	ReasonTweetNotFound   = "tweet not found"
	ReasonMalformedThread = "malformed thread"
	ReasonNoAuthor        = "no author"
	ReasonNoProofID       = "no proof id"
	ReasonFetchError      = "fetch error"
	ReasonInternalError   = "internal error"
	ReasonCancelled       = "cancelled"
)

// Failure aborts an attempt.
type Failure struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(kind Kind, reason, message string, err error) *Failure {
	return &Failure{Kind: kind, Reason: reason, Message: message, Err: err}
}
