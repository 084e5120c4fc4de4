package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/voiceagent/cmd/voiceagent/internal/config"
)

var (
	verbose      bool
	contextName  string
	formatOutput string

	globalConfig  *config.Config
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "voiceagent",
	Short: "Realtime voice agent for lead capture",
	Long: `voiceagent - talk to a realtime voice model that captures leads.

The agent greets the caller, answers questions from a knowledge base and
records contact details, callback requests and a conversation summary as
the model reports them through its tools.

Configuration is stored in the OS config directory (override with
$VOICEAGENT_CONFIG_DIR):
  macOS:   ~/Library/Application Support/voiceagent/
  Linux:   ~/.config/voiceagent/
  Windows: %AppData%/voiceagent/

Examples:
  # Configure a context
  voiceagent config add-context dev
  voiceagent config use-context dev
  voiceagent config set dev openai api_key sk-xxxx
  voiceagent config set dev agent voice coral

  # Talk by text, or place a voice call from a recording
  voiceagent chat
  voiceagent call --input caller.ogg --output agent.ogg

  # Serve ephemeral tokens for browser clients
  voiceagent token-server --addr :8787`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default: current context)")
	rootCmd.PersistentFlags().StringVarP(&formatOutput, "format", "o", "text", "output format: text, json or yaml")
}

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the loaded configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// resolve returns the effective configuration for this run.
func resolve() (*config.Resolved, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Resolve(contextName)
}
