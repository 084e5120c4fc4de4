package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/haivivi/voiceagent/pkg/conversation"
	"github.com/haivivi/voiceagent/pkg/history"
	"github.com/haivivi/voiceagent/pkg/lead"
	"github.com/haivivi/voiceagent/pkg/tools"
)

var (
	primary = lipgloss.Color("#00ff9f")
	dim     = lipgloss.Color("#6e7681")
	warn    = lipgloss.Color("#ff6b6b")

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(primary)
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(primary)
	assistantStyle = lipgloss.NewStyle().Foreground(primary)
	userStyle      = lipgloss.NewStyle().Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(dim)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(warn)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1)
)

// transcript prints conversation changes as they happen: new messages,
// state changes and errors.
type transcript struct {
	w io.Writer

	mu       sync.Mutex
	shown    int
	state    conversation.State
	activity conversation.Activity
}

func newTranscript(w io.Writer) *transcript {
	return &transcript{w: w, state: conversation.StateIdle}
}

func (t *transcript) update(r conversation.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.State != t.state {
		t.state = r.State
		switch r.State {
		case conversation.StateConnecting:
			fmt.Fprintln(t.w, statusStyle.Render("connecting..."))
		case conversation.StateActive:
			fmt.Fprintln(t.w, statusStyle.Render("connected"))
		case conversation.StateError:
			fmt.Fprintln(t.w, errorStyle.Render("error: "+r.Error))
		case conversation.StateEnded:
			fmt.Fprintln(t.w, statusStyle.Render("conversation ended"))
		}
	}
	if len(r.Messages) < t.shown {
		t.shown = 0
	}
	for _, m := range r.Messages[t.shown:] {
		fmt.Fprintln(t.w, formatMessage(m))
	}
	t.shown = len(r.Messages)
	if verbose && r.State == conversation.StateActive && r.Activity != t.activity {
		fmt.Fprintln(t.w, statusStyle.Render("["+string(r.Activity)+"]"))
	}
	t.activity = r.Activity
}

func (t *transcript) toolCall(call tools.Call, result tools.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch r := result.(type) {
	case *tools.LeadCaptured:
		fmt.Fprintln(t.w, statusStyle.Render("lead captured: "+leadLine(r.Lead)))
	case *tools.CallbackScheduled:
		fmt.Fprintln(t.w, statusStyle.Render("callback: "+r.Lead.Notes))
	case *tools.SummaryGenerated:
		fmt.Fprintln(t.w, statusStyle.Render("summary received"))
	case *tools.Failed:
		fmt.Fprintln(t.w, errorStyle.Render(fmt.Sprintf("tool %s failed: %v", call.Name, r.Err)))
	case *tools.Unknown:
		fmt.Fprintln(t.w, statusStyle.Render("unknown tool "+call.Name))
	}
}

func formatMessage(m lead.Message) string {
	ts := statusStyle.Render(m.Timestamp.Format("15:04:05"))
	switch m.Role {
	case lead.RoleAssistant:
		return ts + " " + assistantStyle.Render("agent: ") + m.Content
	case lead.RoleUser:
		return ts + " " + userStyle.Render("you:   ") + m.Content
	}
	return ts + " " + statusStyle.Render(string(m.Role)+": "+m.Content)
}

func leadLine(d lead.Data) string {
	var parts []string
	for _, f := range leadFields(d) {
		parts = append(parts, f[0]+"="+f[1])
	}
	return strings.Join(parts, " ")
}

func leadFields(d lead.Data) [][2]string {
	var out [][2]string
	add := func(k, v string) {
		if v != "" {
			out = append(out, [2]string{k, v})
		}
	}
	add("name", d.Name)
	add("email", d.Email)
	add("phone", d.Phone)
	add("company", d.Company)
	add("interest", d.Interest)
	add("contact", d.PreferredContactMethod)
	add("time", d.PreferredTime)
	add("notes", d.Notes)
	return out
}

// renderOutcome draws the captured lead and the summary in a box.
func renderOutcome(title string, s history.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	b.WriteString("\n" + labelStyle.Render("Lead") + "\n")
	if s.Lead == nil || s.Lead.IsEmpty() {
		b.WriteString(statusStyle.Render("  (none captured)") + "\n")
	} else {
		for _, f := range leadFields(*s.Lead) {
			fmt.Fprintf(&b, "  %-9s %s\n", f[0]+":", f[1])
		}
	}

	b.WriteString("\n" + labelStyle.Render("Summary") + "\n")
	if s.Summary == nil {
		b.WriteString(statusStyle.Render("  (none)") + "\n")
	} else {
		sum := s.Summary
		list := func(name string, items []string) {
			if len(items) > 0 {
				fmt.Fprintf(&b, "  %-10s %s\n", name+":", strings.Join(items, ", "))
			}
		}
		list("topics", sum.TopicsDiscussed)
		list("questions", sum.KeyQuestions)
		list("follow-up", sum.FollowUpActions)
		fmt.Fprintf(&b, "  %-10s %s\n", "sentiment:", sum.Sentiment)
		fmt.Fprintf(&b, "  %-10s %ds, %d messages\n", "duration:", sum.Duration, sum.MessageCount)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
