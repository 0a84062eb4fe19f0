package preprocess

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WorkspacePrefix names every per-request scratch directory.
const WorkspacePrefix = "salesbook-verify-"

// workspace is a per-request scratch directory, unique per request.
type workspace struct {
	dir    string
	logger *slog.Logger
}

func newWorkspace(base string, logger *slog.Logger) (*workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, WorkspacePrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	logger.Debug("workspace created", "dir", dir)
	return &workspace{dir: dir, logger: logger}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) write(name string, buf []byte) (string, error) {
	p := w.path(name)
	if err := os.WriteFile(p, buf, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return p, nil
}

// cleanup removes the directory and everything in it. Failures are logged only.
func (w *workspace) cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Warn("failed to remove workspace", "dir", w.dir, "error", err)
		return
	}
	w.logger.Debug("workspace removed", "dir", w.dir)
}
