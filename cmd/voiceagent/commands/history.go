package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/voiceagent/pkg/history"
	"github.com/haivivi/voiceagent/pkg/lead"
)

// snapshot is the json/yaml form of a saved conversation.
type snapshot struct {
	ID       string         `json:"id,omitempty" yaml:"id,omitempty"`
	Messages []lead.Message `json:"messages" yaml:"messages"`
	Lead     *lead.Data     `json:"leadData" yaml:"leadData"`
	Summary  *lead.Summary  `json:"summary" yaml:"summary"`
}

func snapshotView(s history.Snapshot) snapshot {
	msgs := s.Messages
	if msgs == nil {
		msgs = []lead.Message{}
	}
	return snapshot{Messages: msgs, Lead: s.Lead, Summary: s.Summary}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear saved conversations",
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(h *history.History) error {
			s, err := h.Load(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if formatOutput != "text" {
				return output(out, snapshotView(s))
			}
			if s.IsEmpty() {
				fmt.Fprintln(out, "No saved conversation.")
				return nil
			}
			for _, m := range s.Messages {
				fmt.Fprintln(out, formatMessage(m))
			}
			fmt.Fprintln(out, renderOutcome("Last conversation", s))
			return nil
		})
	},
}

var historyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List archived conversations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(h *history.History) error {
			list, err := h.Archived(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if formatOutput != "text" {
				views := make([]snapshot, len(list))
				for i, a := range list {
					views[i] = snapshotView(a.Snapshot)
					views[i].ID = a.ID
				}
				return output(out, views)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No archived conversations.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCONTACT\tMESSAGES\tSENTIMENT")
			for _, a := range list {
				var name, contact string
				if a.Lead != nil {
					name = a.Lead.Name
					contact = a.Lead.Email
					if contact == "" {
						contact = a.Lead.Phone
					}
				}
				sentiment := ""
				if a.Summary != nil {
					sentiment = string(a.Summary.Sentiment)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", a.ID, dash(name), dash(contact), len(a.Messages), dash(sentiment))
			}
			return w.Flush()
		})
	},
}

var historyClearAll bool

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the last conversation (--all: and the archive)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(h *history.History) error {
			ctx := context.Background()
			if historyClearAll {
				if err := h.Purge(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			}
			if err := h.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Last conversation cleared.")
			return nil
		})
	},
}

func withHistory(fn func(*history.History) error) error {
	r, err := resolve()
	if err != nil {
		return err
	}
	h, closeHistory, err := openHistory(r)
	if err != nil {
		return err
	}
	defer closeHistory()
	return fn(h)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	historyClearCmd.Flags().BoolVar(&historyClearAll, "all", false, "also delete archived conversations")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
