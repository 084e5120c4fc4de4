package lead

// Sentiment is the overall tone of a conversation.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment maps s onto a known sentiment. Unknown or empty values
// report ok=false and return SentimentNeutral.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return Sentiment(s), true
	}
	return SentimentNeutral, false
}

// Summary describes a finished conversation.
//
// Duration (seconds) and MessageCount always come from local measurement at
// conversation end; values reported by the model are overwritten.
type Summary struct {
	TopicsDiscussed []string  `json:"topicsDiscussed"`
	KeyQuestions    []string  `json:"keyQuestions"`
	FollowUpActions []string  `json:"followUpActions"`
	Sentiment       Sentiment `json:"sentiment"`
	Duration        int       `json:"duration"`
	MessageCount    int       `json:"messageCount"`
}

// Clone returns a deep copy of s. A nil receiver returns nil.
func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	c := *s
	c.TopicsDiscussed = append([]string(nil), s.TopicsDiscussed...)
	c.KeyQuestions = append([]string(nil), s.KeyQuestions...)
	c.FollowUpActions = append([]string(nil), s.FollowUpActions...)
	return &c
}
