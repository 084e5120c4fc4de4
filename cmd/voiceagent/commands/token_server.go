package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/voiceagent/cmd/voiceagent/internal/config"
	"github.com/haivivi/voiceagent/pkg/token"
)

var (
	tokenAddr string
	tokenPath string
	tokenTTL  time.Duration
)

var tokenServerCmd = &cobra.Command{
	Use:   "token-server",
	Short: "Serve ephemeral session tokens",
	Long: `Serve ephemeral realtime session tokens over HTTP.

GET <path> answers {"token": "...", "expiresAt": <epoch ms>} using the
configured OpenAI key, so browser and device clients never see the key.
Point agent.token_url of other contexts at this server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := resolve()
		if err != nil {
			return err
		}
		if r.OpenAI.APIKey == "" {
			slog.Warn("no OpenAI API key configured; token requests will fail")
		}
		srv := &http.Server{
			Addr:              tokenAddr,
			Handler:           tokenMux(r, tokenPath, tokenTTL),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving tokens on http://%s%s\n", displayAddr(tokenAddr), tokenPath)

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// tokenMux routes path to a token handler. Without an API key the handler
// reports the missing configuration to clients.
func tokenMux(r *config.Resolved, path string, ttl time.Duration) http.Handler {
	h := &token.Handler{TTL: ttl}
	if r.OpenAI.APIKey != "" {
		h.Source = &token.Direct{API: apiClient(r.OpenAI), Model: r.OpenAI.Model, Voice: r.Agent.Voice}
	}
	mux := http.NewServeMux()
	mux.Handle(path, h)
	return mux
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func init() {
	tokenServerCmd.Flags().StringVar(&tokenAddr, "addr", ":8787", "listen address")
	tokenServerCmd.Flags().StringVar(&tokenPath, "path", "/api/token", "token endpoint path")
	tokenServerCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Minute, "token lifetime reported to clients")

	rootCmd.AddCommand(tokenServerCmd)
}
