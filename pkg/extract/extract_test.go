package extract

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/haivivi/voiceagent/pkg/lead"
)

func userMessages(texts ...string) []lead.Message {
	msgs := make([]lead.Message, len(texts))
	for i, t := range texts {
		msgs[i] = lead.Message{
			ID:        "m" + string(rune('a'+i)),
			Role:      lead.RoleUser,
			Content:   t,
			Timestamp: time.Date(2024, 1, 15, 10, 30, i, 0, time.UTC),
		}
	}
	return msgs
}

func TestLead(t *testing.T) {
	tests := []struct {
		name string
		text string
		want lead.Data
	}{
		{
			name: "name and email",
			text: "My name is Dana and my email is dana@example.com",
			want: lead.Data{Name: "Dana", Email: "dana@example.com"},
		},
		{
			name: "stoplisted affirmation",
			text: "Yes, I am interested",
			want: lead.Data{},
		},
		{
			name: "stoplisted capitalized word",
			text: "I am Interested in a logo",
			want: lead.Data{},
		},
		{
			name: "speaking phrasing",
			text: "Hello, it's Morgan Lee speaking.",
			want: lead.Data{Name: "Morgan Lee"},
		},
		{
			name: "here phrasing",
			text: "Hi, Jordan here.",
			want: lead.Data{Name: "Jordan"},
		},
		{
			name: "phone with country code",
			text: "you can reach me at +1 (555) 123-4567",
			want: lead.Data{Phone: "+1 (555) 123-4567"},
		},
		{
			name: "company",
			text: "I work at Bright Ideas Studio, and we need a site",
			want: lead.Data{Company: "Bright Ideas Studio"},
		},
		{
			name: "company is phrasing",
			text: "our company is Nimbus Coffee.",
			want: lead.Data{Company: "Nimbus Coffee"},
		},
		{
			name: "lowercase name",
			text: "my name is dana",
			want: lead.Data{Name: "Dana"},
		},
		{
			name: "lowercase full name",
			text: "hi this is dana smith",
			want: lead.Data{Name: "Dana Smith"},
		},
		{
			name: "name stops at conjunction",
			text: "i'm dana and i need a logo",
			want: lead.Data{Name: "Dana"},
		},
		{
			name: "lowercase company",
			text: "I work at acme corp.",
			want: lead.Data{Company: "Acme Corp"},
		},
		{
			name: "lowercase stoplisted phrasing",
			text: "i am excited about a new site, this is great",
			want: lead.Data{},
		},
		{
			name: "help with is not a company",
			text: "I need help with my website.",
			want: lead.Data{},
		},
		{
			name: "company too long",
			text: "I am with Aaaaaaaaaa Bbbbbbbbbb Cccccccccc Dddddddddd Eeeeeeeeee.",
			want: lead.Data{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lead(userMessages(tt.text))
			if got != tt.want {
				t.Errorf("Lead(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLead_IgnoresAssistant(t *testing.T) {
	msgs := []lead.Message{
		{Role: lead.RoleAssistant, Content: "My name is Aria, reach us at hello@studio.com"},
		{Role: lead.RoleUser, Content: "ok"},
	}
	if got := Lead(msgs); !got.IsEmpty() {
		t.Fatalf("Lead picked up assistant text: %+v", got)
	}
}

func TestSummary(t *testing.T) {
	s := Summary(userMessages(
		"We need a new logo and a website.",
		"What would it cost? Could we schedule a meeting?",
		"Sounds good, thanks!",
	))

	wantTopics := []string{"branding", "web design", "consultation", "pricing"}
	if !reflect.DeepEqual(s.TopicsDiscussed, wantTopics) {
		t.Errorf("topics = %v, want %v", s.TopicsDiscussed, wantTopics)
	}
	wantFollowUps := []string{"schedule consultation", "send pricing information"}
	if !reflect.DeepEqual(s.FollowUpActions, wantFollowUps) {
		t.Errorf("follow-ups = %v, want %v", s.FollowUpActions, wantFollowUps)
	}
	if s.Sentiment != lead.SentimentPositive {
		t.Errorf("sentiment = %q, want positive", s.Sentiment)
	}
	if s.Duration != 0 || s.MessageCount != 0 {
		t.Errorf("duration/messageCount should be left zero, got %d/%d", s.Duration, s.MessageCount)
	}
}

func TestSummary_GeneralInquiry(t *testing.T) {
	s := Summary(nil)
	if !reflect.DeepEqual(s.TopicsDiscussed, []string{GeneralInquiry}) {
		t.Fatalf("topics = %v", s.TopicsDiscussed)
	}
	if s.Sentiment != lead.SentimentNeutral {
		t.Fatalf("sentiment = %q", s.Sentiment)
	}
}

func TestSentiment(t *testing.T) {
	tests := []struct {
		text string
		want lead.Sentiment
	}{
		{"i'm not interested, it's too expensive", lead.SentimentNegative},
		{"yes, that sounds good", lead.SentimentPositive},
		{"yes but no", lead.SentimentNeutral},
		{"i know what you mean", lead.SentimentNeutral},
		{"", lead.SentimentNeutral},
	}
	for _, tt := range tests {
		if got := Sentiment(tt.text); got != tt.want {
			t.Errorf("Sentiment(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDeterministic(t *testing.T) {
	msgs := userMessages(
		"This is Casey Park from Harbor Labs.",
		"Email casey@harbor.io or call 555.987.6543, we want branding",
	)
	first, _ := json.Marshal([]any{Lead(msgs), Summary(msgs)})
	for i := 0; i < 10; i++ {
		again, _ := json.Marshal([]any{Lead(msgs), Summary(msgs)})
		if string(again) != string(first) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}
}
