package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	callInput    string
	callLoop     bool
	callOutput   string
	callDuration time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Hold a voice conversation",
	Long: `Hold a voice conversation with the agent over WebRTC.

Caller audio is read from an Ogg/Opus file (or silence when --input is not
given) and the agent's audio is written to an Ogg/Opus file. The call runs
until interrupted, until --duration elapses, or until the session drops.
On exit the model is asked for its final tool calls, and the captured lead
and summary are printed and saved to history.

Examples:
  voiceagent call --input caller.ogg --output agent.ogg
  voiceagent call --input caller.ogg --loop --duration 2m`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := resolve()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		tr := newTranscript(out)
		a, closeHistory, err := newAgent(r, sessionOptions{input: callInput, loop: callLoop, output: callOutput}, tr)
		if err != nil {
			return err
		}
		defer closeHistory()
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		done := finished(a)
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("start conversation: %w", err)
		}

		var limit <-chan time.Time
		if callDuration > 0 {
			t := time.NewTimer(callDuration)
			defer t.Stop()
			limit = t.C
		}
		select {
		case <-ctx.Done():
		case <-limit:
		case <-done:
		}
		return finish(out, a)
	},
}

func init() {
	callCmd.Flags().StringVarP(&callInput, "input", "i", "", "Ogg/Opus file to use as the caller's microphone (default: silence)")
	callCmd.Flags().BoolVar(&callLoop, "loop", false, "repeat the input file")
	callCmd.Flags().StringVarP(&callOutput, "output", "w", "", "Ogg/Opus file to record the agent's audio to")
	callCmd.Flags().DurationVarP(&callDuration, "duration", "d", 0, "end the call after this long (0: until interrupted)")

	rootCmd.AddCommand(callCmd)
}

