package types

// Mention represents one mention payload item.
type Mention struct {
	TweetID        string `json:"tweet_id"`
	Text           string `json:"text"`
	AuthorID       string `json:"author_id"`
	AuthorUsername string `json:"author_username"`
	ConversationID string `json:"conversation_id"`
	CreatedAt      string `json:"created_at"`
}

// MentionsPayload is the full body the webhook receives.
type MentionsPayload struct {
	Count    int            `json:"count"`
	Mentions []Mention      `json:"mentions"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Reference relation types as reported by the X API.
const (
	RefRepliedTo = "replied_to"
	RefQuoted    = "quoted"
	RefRetweeted = "retweeted"
)

// Reference points from a tweet to a related tweet.
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Tweet is the subset of tweet fields the verifier reads.
type Tweet struct {
	ID             string      `json:"id"`
	Text           string      `json:"text"`
	AuthorID       string      `json:"author_id"`
	ConversationID string      `json:"conversation_id,omitempty"`
	References     []Reference `json:"referenced_tweets,omitempty"`
}

// Parent returns the id of the first replied_to reference, if any.
// Quote and retweet references are not part of a reply chain.
func (t Tweet) Parent() (string, bool) {
	for _, r := range t.References {
		if r.Type == RefRepliedTo {
			return r.ID, true
		}
	}
	return "", false
}

// User is an X account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Receipt identifies a completed wallet or market transaction.
type Receipt struct {
	TxReference string `json:"tx_reference"`
}
