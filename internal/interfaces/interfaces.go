package interfaces

import (
	"context"

	"chatbox/web/internal/service"
)

// WorkspaceProvider resolves the workspace a browser session works in. The
// API layer depends on this instead of the concrete registry.
type WorkspaceProvider interface {
	Get(ctx context.Context, sessionID string) (*service.Workspace, error)
}
