package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"chatbox/web/internal/app"
	"chatbox/web/internal/service"
	"chatbox/web/internal/session"
	"chatbox/web/internal/tui"
)

var (
	tuiLogFile string
	tuiEmail   string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Chat in the terminal",
	Long: `Starts a full-screen chat. Without --email the chat runs as a guest and
nothing is saved. The password is read from CHATBOX_PASSWORD.`,
	RunE: runTUI,
}

func init() {
	f := tuiCmd.Flags()
	f.StringVar(&tuiLogFile, "log-file", "chatbox.log", "file the log is written to while the screen is in use")
	f.StringVarP(&tuiEmail, "email", "e", "", "log in with this email before starting")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	app.SetupLogger(cfg.LogLevel, logFile)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	changes := tui.NewNotifier()
	ws, err := service.NewWorkspace(ctx, uuid.NewString(), session.NewMemoryStore(),
		app.NewBackendDeps(cfg, nil), changes.Notify)
	if err != nil {
		return err
	}
	defer ws.Close()

	if tuiEmail != "" {
		if err := login(ctx, ws, tuiEmail, os.Getenv("CHATBOX_PASSWORD")); err != nil {
			return err
		}
	}
	return tui.Run(ctx, ws, changes)
}

func login(ctx context.Context, ws *service.Workspace, email, password string) error {
	acct, err := ws.Login(ctx, service.LoginInput{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Logged in as %s\n", acct.Email)
	return nil
}
