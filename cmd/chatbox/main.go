// Command chatbox serves the chat web BFF, runs the same chat in a terminal,
// or exports a stored conversation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"chatbox/web/internal/config"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "chatbox",
	Short: "Chat client for the conversation backend",
	Long: `chatbox talks to the chat and conversation REST backend.

  serve   run the browser-facing HTTP server
  tui     chat in the terminal
  export  write a stored conversation to PDF or text`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("backend-url", "", "base URL of the chat backend (BACKEND_URL)")
	pf.Duration("timeout", 0, "per-request backend timeout (REQUEST_TIMEOUT)")
	pf.String("log-level", "", "DEBUG, INFO, WARN or ERROR (LOG_LEVEL)")
	bindFlag(pf.Lookup("backend-url"), "BACKEND_URL")
	bindFlag(pf.Lookup("timeout"), "REQUEST_TIMEOUT")
	bindFlag(pf.Lookup("log-level"), "LOG_LEVEL")

	rootCmd.AddCommand(serveCmd, tuiCmd, exportCmd)
}

func bindFlag(f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

// loadConfig resolves flags, .env and environment into a Config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
