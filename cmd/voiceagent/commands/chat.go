package commands

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Hold a text conversation",
	Long: `Hold a text conversation with the agent over the WebSocket transport.

Each line read from stdin is sent as a caller message. Type /end or close
stdin to finish; the captured lead and summary are then printed and saved
to history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := resolve()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		tr := newTranscript(out)
		a, closeHistory, err := newAgent(r, sessionOptions{}, tr)
		if err != nil {
			return err
		}
		defer closeHistory()
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		done := finished(a)
		if err := a.StartText(ctx); err != nil {
			return fmt.Errorf("start conversation: %w", err)
		}

		lines := make(chan string)
		quit := make(chan struct{})
		defer close(quit)
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				select {
				case lines <- sc.Text():
				case <-quit:
					return
				}
			}
		}()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-done:
				break loop
			case line, ok := <-lines:
				if !ok {
					break loop
				}
				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "/end", "/quit":
					break loop
				}
				if err := a.Say(line); err != nil {
					fmt.Fprintln(out, errorStyle.Render("send: "+err.Error()))
				}
			}
		}
		return finish(out, a)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
