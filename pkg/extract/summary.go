package extract

import (
	"regexp"
	"strings"

	"github.com/haivivi/voiceagent/pkg/lead"
)

// GeneralInquiry is the topic reported when no keyword matches.
const GeneralInquiry = "general inquiry"

type topicRule struct {
	topic    string
	keywords []string
	followUp string
}

var topicRules = []topicRule{
	{topic: "branding", keywords: []string{"brand", "logo"}},
	{topic: "web design", keywords: []string{"web", "site"}},
	{topic: "marketing", keywords: []string{"market", "advertis"}},
	{topic: "consultation", keywords: []string{"consult", "meeting", "schedule"}, followUp: "schedule consultation"},
	{topic: "pricing", keywords: []string{"price", "cost", "quote"}, followUp: "send pricing information"},
}

var (
	// Negative phrases are matched first and removed so that "not
	// interested" does not also count as "interested".
	negativePattern = wordPattern("not interested", "too expensive", "cancel", "no")
	positivePattern = wordPattern("thank you", "sounds good", "interested", "yes", "great", "perfect", "awesome", "thanks")
)

func wordPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Summary derives topics, follow-up actions and sentiment from caller text.
// Duration and MessageCount are left zero; the caller fills them in.
func Summary(messages []lead.Message) lead.Summary {
	text := strings.ToLower(callerText(messages))

	s := lead.Summary{
		TopicsDiscussed: []string{},
		KeyQuestions:    []string{},
		FollowUpActions: []string{},
	}
	for _, r := range topicRules {
		if !containsAny(text, r.keywords) {
			continue
		}
		s.TopicsDiscussed = append(s.TopicsDiscussed, r.topic)
		if r.followUp != "" {
			s.FollowUpActions = append(s.FollowUpActions, r.followUp)
		}
	}
	if len(s.TopicsDiscussed) == 0 {
		s.TopicsDiscussed = append(s.TopicsDiscussed, GeneralInquiry)
	}
	s.Sentiment = Sentiment(text)
	return s
}

// Sentiment returns the majority tone of lowercased text, neutral on a tie.
func Sentiment(text string) lead.Sentiment {
	negative := len(negativePattern.FindAllStringIndex(text, -1))
	rest := negativePattern.ReplaceAllString(text, " ")
	positive := len(positivePattern.FindAllStringIndex(rest, -1))
	switch {
	case positive > negative:
		return lead.SentimentPositive
	case negative > positive:
		return lead.SentimentNegative
	}
	return lead.SentimentNeutral
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
