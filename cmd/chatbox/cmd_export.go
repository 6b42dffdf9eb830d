package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chatbox/web/internal/app"
	"chatbox/web/internal/export"
	"chatbox/web/internal/model"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <conversation-id>",
	Short: "Write a stored conversation to PDF or text",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportFormat, "format", "f", string(export.FormatPDF), "pdf or txt")
	f.StringVarP(&exportOut, "out", "o", "", "output file (default conversation-<ms>.<format>, - for stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app.SetupLogger(cfg.LogLevel, os.Stderr)

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	id := model.NormalizeID(args[0])
	if id == "" {
		return fmt.Errorf("conversation id is required")
	}

	deps := app.NewBackendDeps(cfg, nil)
	convo, err := deps.Conversations.GetConversation(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("could not load conversation %s: %w", id, err)
	}
	if convo == nil {
		return fmt.Errorf("conversation %s not found", id)
	}

	now := time.Now()
	var buf bytes.Buffer
	doc := export.Document{
		Title:      strings.TrimSpace(convo.Title()),
		Messages:   model.FromTurns(convo.Turns()),
		ExportedAt: now,
	}
	if err := export.Write(&buf, format, doc); err != nil {
		return err
	}

	if exportOut == "-" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	path := exportOut
	if path == "" {
		path = export.Filename(format, now)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}
