package tools

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/haivivi/voiceagent/pkg/lead"
	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
)

// Tool names.
const (
	NameCaptureLead      = "capture_lead"
	NameGenerateSummary  = "generate_summary"
	NameScheduleCallback = "schedule_callback"
)

type captureLeadArgs struct {
	Name                   string `json:"name" jsonschema:"The caller's full name"`
	Email                  string `json:"email,omitempty" jsonschema:"Email address"`
	Phone                  string `json:"phone,omitempty" jsonschema:"Phone number"`
	Company                string `json:"company,omitempty" jsonschema:"Company or business name"`
	Interest               string `json:"interest,omitempty" jsonschema:"Service or product the caller is interested in"`
	PreferredContactMethod string `json:"preferredContactMethod,omitempty" jsonschema:"How the caller prefers to be contacted"`
	PreferredTime          string `json:"preferredTime,omitempty" jsonschema:"When the caller prefers to be contacted"`
	Notes                  string `json:"notes,omitempty" jsonschema:"Anything else worth remembering"`
}

type generateSummaryArgs struct {
	TopicsDiscussed string `json:"topicsDiscussed" jsonschema:"Comma-separated topics discussed in the call"`
	KeyQuestions    string `json:"keyQuestions,omitempty" jsonschema:"Comma-separated questions the caller asked"`
	FollowUpActions string `json:"followUpActions,omitempty" jsonschema:"Comma-separated follow-up actions"`
	Sentiment       string `json:"sentiment" jsonschema:"Overall caller sentiment"`
}

type scheduleCallbackArgs struct {
	PreferredDate string `json:"preferredDate,omitempty" jsonschema:"Preferred callback date"`
	PreferredTime string `json:"preferredTime,omitempty" jsonschema:"Preferred callback time"`
	Reason        string `json:"reason" jsonschema:"Why the caller wants a callback"`
}

var definitions = []openairealtime.Tool{
	{
		Type:        "function",
		Name:        NameCaptureLead,
		Description: "Save the caller's contact information as soon as they share any of it. Call again when more details come up.",
		Parameters: withEnum(mustSchema[captureLeadArgs](), "preferredContactMethod",
			lead.ContactEmail, lead.ContactPhone, lead.ContactSMS),
	},
	{
		Type:        "function",
		Name:        NameGenerateSummary,
		Description: "Summarize the conversation when it is wrapping up or when asked to.",
		Parameters: withEnum(mustSchema[generateSummaryArgs](), "sentiment",
			string(lead.SentimentPositive), string(lead.SentimentNeutral), string(lead.SentimentNegative)),
	},
	{
		Type:        "function",
		Name:        NameScheduleCallback,
		Description: "Record a request for a callback or a consultation.",
		Parameters:  mustSchema[scheduleCallbackArgs](),
	},
}

// Definitions returns the tool definitions for the session configuration.
// The returned slice may be modified by the caller.
func Definitions() []openairealtime.Tool {
	out := make([]openairealtime.Tool, len(definitions))
	copy(out, definitions)
	return out
}

func mustSchema[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		panic(fmt.Sprintf("tools: schema for %T: %v", *new(T), err))
	}
	return s
}

func withEnum(s *jsonschema.Schema, property string, values ...string) *jsonschema.Schema {
	prop, ok := s.Properties[property]
	if !ok {
		panic("tools: no property " + property)
	}
	for _, v := range values {
		prop.Enum = append(prop.Enum, v)
	}
	return s
}
