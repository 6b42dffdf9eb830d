// Command server runs the chat web BFF with configuration taken from the
// environment and an optional .env file.
package main

import (
	"os"

	"chatbox/web/internal/app"
)

// @title        Chatbox Web API
// @version      1.0
// @description  Backend-for-frontend of the chat web client: chat panel state, conversation sidebar, archive, export and login.
// @host         localhost:4200
// @BasePath     /api
func main() {
	os.Exit(app.Run())
}
