package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/haivivi/voiceagent/cmd/voiceagent/internal/config"
	"github.com/haivivi/voiceagent/pkg/agent"
	"github.com/haivivi/voiceagent/pkg/conversation"
	"github.com/haivivi/voiceagent/pkg/history"
	"github.com/haivivi/voiceagent/pkg/media"
	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
	"github.com/haivivi/voiceagent/pkg/prompt"
	"github.com/haivivi/voiceagent/pkg/realtime"
	"github.com/haivivi/voiceagent/pkg/token"
)

// apiClient builds the provider client from the openai service config.
func apiClient(c config.OpenAI) *openairealtime.Client {
	var opts []openairealtime.Option
	if c.Organization != "" {
		opts = append(opts, openairealtime.WithOrganization(c.Organization))
	}
	if c.Project != "" {
		opts = append(opts, openairealtime.WithProject(c.Project))
	}
	if base := strings.TrimRight(c.BaseURL, "/"); base != "" {
		opts = append(opts, openairealtime.WithHTTPURL(base))
		ws := strings.Replace(base, "https://", "wss://", 1)
		ws = strings.Replace(ws, "http://", "ws://", 1)
		opts = append(opts, openairealtime.WithWebSocketURL(ws))
	}
	return openairealtime.NewClient(c.APIKey, opts...)
}

// tokenSource tries the configured token endpoint first, then the provider.
func tokenSource(r *config.Resolved, api *openairealtime.Client) token.Source {
	direct := &token.Direct{API: api, Model: r.OpenAI.Model, Voice: r.Agent.Voice}
	if r.Agent.TokenURL == "" {
		return direct
	}
	return &token.Chain{
		Primary:  &token.Endpoint{URL: r.Agent.TokenURL},
		Fallback: direct,
	}
}

func instructions(r *config.Resolved) (string, error) {
	k := prompt.Default()
	if r.Agent.KnowledgeBase != "" {
		var err error
		if k, err = prompt.Load(r.Agent.KnowledgeBase); err != nil {
			return "", err
		}
	}
	return prompt.Instructions(k)
}

func openHistory(r *config.Resolved) (*history.History, func(), error) {
	store, err := history.OpenBadger(history.BadgerOptions{Dir: r.Agent.HistoryDir})
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	return history.New(store), func() { store.Close() }, nil
}

type sessionOptions struct {
	input  string
	loop   bool
	output string
}

// newAgent wires an agent from the resolved configuration. The returned
// function releases the history store.
func newAgent(r *config.Resolved, o sessionOptions, tr *transcript) (*agent.Agent, func(), error) {
	if r.Agent.Voice != "" && !realtime.ValidVoice(r.Agent.Voice) {
		return nil, nil, fmt.Errorf("invalid voice %q (want one of %s)", r.Agent.Voice, strings.Join(realtime.Voices, ", "))
	}
	instr, err := instructions(r)
	if err != nil {
		return nil, nil, err
	}
	hist, closeHistory, err := openHistory(r)
	if err != nil {
		return nil, nil, err
	}

	api := apiClient(r.OpenAI)
	opts := []realtime.Option{
		realtime.WithAPI(api),
		realtime.WithInstructions(instr),
	}
	if r.OpenAI.Model != "" {
		opts = append(opts, realtime.WithModel(r.OpenAI.Model))
	}
	if r.Agent.Voice != "" {
		opts = append(opts, realtime.WithVoice(r.Agent.Voice))
	}
	if o.input != "" {
		opts = append(opts, realtime.WithMicrophone(&media.FileMicrophone{Path: o.input, Loop: o.loop}))
	}
	if o.output != "" {
		opts = append(opts, realtime.WithPlayer(&media.OggPlayer{Path: o.output}))
	}

	a := agent.New(
		agent.Client(tokenSource(r, api), opts...),
		agent.WithHistory(hist),
		agent.WithToolObserver(tr.toolCall),
	)
	a.Subscribe(tr.update)
	return a, closeHistory, nil
}

// finished returns a channel closed once the conversation ends. An error
// reported by the model leaves the call running; the transcript shows it.
func finished(a *agent.Agent) <-chan struct{} {
	done := make(chan struct{})
	var once sync.Once
	a.Subscribe(func(r conversation.Record) {
		if r.State == conversation.StateEnded {
			once.Do(func() { close(done) })
		}
	})
	return done
}

// finish ends the conversation and prints the outcome.
func finish(w io.Writer, a *agent.Agent) error {
	rec := a.End(context.Background())
	if rec.State == conversation.StateError {
		return fmt.Errorf("conversation failed: %s", rec.Error)
	}
	if formatOutput != "text" {
		return output(w, snapshotView(history.Snapshot{Messages: rec.Messages, Lead: rec.Lead, Summary: rec.Summary}))
	}
	fmt.Fprintln(w, renderOutcome("Conversation outcome", history.Snapshot{Lead: rec.Lead, Summary: rec.Summary}))
	return nil
}
