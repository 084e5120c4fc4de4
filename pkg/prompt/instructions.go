package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/haivivi/voiceagent/pkg/tools"

	_ "embed"
)

// DefaultAgentName is the persona used when the knowledge base names none.
const DefaultAgentName = "Aria"

// MaxFAQ is the number of FAQ entries included in the instructions.
const MaxFAQ = 5

//go:embed instructions.gotmpl
var instructionsTpl string

var instructions = template.Must(template.New("instructions").Funcs(template.FuncMap{
	"first": func(faq []FAQ) []FAQ {
		if len(faq) > MaxFAQ {
			return faq[:MaxFAQ]
		}
		return faq
	},
	"serviceList": serviceList,
}).Parse(instructionsTpl))

type toolNames struct {
	CaptureLead      string
	GenerateSummary  string
	ScheduleCallback string
}

type instructionsData struct {
	Knowledge
	Tools toolNames
}

// Instructions renders the system instructions for k.
func Instructions(k Knowledge) (string, error) {
	if k.Agent.Name == "" {
		k.Agent.Name = DefaultAgentName
	}
	var buf bytes.Buffer
	err := instructions.Execute(&buf, instructionsData{
		Knowledge: k,
		Tools: toolNames{
			CaptureLead:      tools.NameCaptureLead,
			GenerateSummary:  tools.NameGenerateSummary,
			ScheduleCallback: tools.NameScheduleCallback,
		},
	})
	if err != nil {
		return "", fmt.Errorf("prompt: render instructions: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// serviceList joins lowercased service titles as "a, b, and c".
func serviceList(services Services) string {
	names := make([]string, 0, len(services))
	for _, s := range services {
		if s.Title != "" {
			names = append(names, strings.ToLower(s.Title))
		}
	}
	switch len(names) {
	case 0:
		return "services"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}
