package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatbox/web/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser-facing HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if code := app.RunWithConfig(cfg); code != 0 {
			return fmt.Errorf("server exited with code %d", code)
		}
		return nil
	},
}

func init() {
	f := serveCmd.Flags()
	f.Int("port", 0, "listen port (APP_PORT)")
	f.String("session-db", "", "SQLite file for browser sessions (SESSION_DB_PATH)")
	f.String("static-dir", "", "directory of the built browser page (STATIC_DIR)")
	bindFlag(f.Lookup("port"), "APP_PORT")
	bindFlag(f.Lookup("session-db"), "SESSION_DB_PATH")
	bindFlag(f.Lookup("static-dir"), "STATIC_DIR")
}
