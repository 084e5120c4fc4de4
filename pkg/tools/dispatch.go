package tools

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/haivivi/voiceagent/pkg/lead"
)

// Call is one tool invocation received from the model.
type Call struct {
	Name      string
	CallID    string
	Arguments string
}

// Result is the outcome of Dispatch. It is one of *LeadCaptured,
// *SummaryGenerated, *CallbackScheduled, *Unknown or *Failed.
type Result interface {
	isResult()
}

// LeadCaptured carries the fields of a capture_lead call. Absent fields are
// empty; merge them with lead.Data.Merge.
type LeadCaptured struct {
	Call    Call
	Lead    lead.Data
	Skipped []string
}

// SummaryGenerated carries a generate_summary call. Duration and
// MessageCount are zero; they are measured locally when the conversation ends.
type SummaryGenerated struct {
	Call    Call
	Summary lead.Summary
	Skipped []string
}

// CallbackScheduled carries a schedule_callback call as lead fields: Notes
// holds the callback note, PreferredTime the cleaned date and time if any.
type CallbackScheduled struct {
	Call    Call
	Lead    lead.Data
	Skipped []string
}

// Unknown is a call to a tool that is not defined.
type Unknown struct {
	Call Call
}

// Failed is a call whose arguments could not be parsed at all.
type Failed struct {
	Call Call
	Err  error
}

func (*LeadCaptured) isResult()      {}
func (*SummaryGenerated) isResult()  {}
func (*CallbackScheduled) isResult() {}
func (*Unknown) isResult()           {}
func (*Failed) isResult()            {}

// Dispatch interprets call. It never panics on bad input; unusable calls
// come back as *Unknown or *Failed.
func Dispatch(call Call) Result {
	switch call.Name {
	case NameCaptureLead, NameGenerateSummary, NameScheduleCallback:
	default:
		slog.Warn("unknown tool call", "name", call.Name, "call_id", call.CallID)
		return &Unknown{Call: call}
	}

	args, err := Parse(call.Arguments)
	if err != nil {
		slog.Warn("drop tool call", "name", call.Name, "call_id", call.CallID, "error", err)
		return &Failed{Call: call, Err: err}
	}

	var result Result
	switch call.Name {
	case NameCaptureLead:
		d := captureLead(args)
		result = &LeadCaptured{Call: call, Lead: d, Skipped: args.Skipped}
	case NameGenerateSummary:
		s := generateSummary(args)
		result = &SummaryGenerated{Call: call, Summary: s, Skipped: args.Skipped}
	default:
		d := scheduleCallback(args)
		result = &CallbackScheduled{Call: call, Lead: d, Skipped: args.Skipped}
	}
	if len(args.Skipped) > 0 {
		slog.Debug("tool call fields skipped", "name", call.Name, "fields", args.Skipped)
	}
	return result
}

func captureLead(args *Parsed) lead.Data {
	d := lead.Data{
		Name:          args.String("name"),
		Email:         args.String("email"),
		Phone:         args.String("phone"),
		Company:       args.String("company"),
		Interest:      args.String("interest"),
		PreferredTime: args.String("preferredTime"),
		Notes:         args.String("notes"),
	}
	switch m := strings.ToLower(args.String("preferredContactMethod")); m {
	case "":
	case lead.ContactEmail, lead.ContactPhone, lead.ContactSMS:
		d.PreferredContactMethod = m
	default:
		args.skip("preferredContactMethod")
	}
	return d
}

func generateSummary(args *Parsed) lead.Summary {
	sentiment, _ := lead.ParseSentiment(strings.ToLower(args.String("sentiment")))
	return lead.Summary{
		TopicsDiscussed: nonNil(args.List("topicsDiscussed")),
		KeyQuestions:    nonNil(args.List("keyQuestions")),
		FollowUpActions: nonNil(args.List("followUpActions")),
		Sentiment:       sentiment,
	}
}

func scheduleCallback(args *Parsed) lead.Data {
	reason := args.String("reason")
	when := CleanTime(args.String("preferredDate") + " " + args.String("preferredTime"))

	note := "Callback requested"
	if reason != "" {
		note += ": " + reason
	}
	if when != "" {
		note += " (" + when + ")"
	}
	return lead.Data{Notes: note, PreferredTime: when}
}

var fillerWord = regexp.MustCompile(`(?i)\b(?:call|calls|calling|back|please|me|us|you|him|her|them|i|we|he|she|they|it|my|our|your)\b`)

// minMeaningful is the fewest letters or digits a cleaned time must keep.
const minMeaningful = 3

// CleanTime strips filler words from a spoken date or time and collapses
// whitespace. It returns "" when fewer than three letters or digits remain.
func CleanTime(s string) string {
	s = strings.Join(strings.Fields(fillerWord.ReplaceAllString(s, " ")), " ")
	s = strings.Trim(s, " ,.;:-")
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	if n < minMeaningful {
		return ""
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
