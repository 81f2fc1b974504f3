package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/errclass"
)

// hintFor returns a follow-up suggestion for an error class, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, errclass.ErrLockConflict):
		return fmt.Sprintf("Another run is in progress. Run %s to see who holds the lock.", color.Info("tidy doctor"))
	case errors.Is(err, errclass.ErrArtifactCorrupt):
		return "The ledger artifact could not be decoded; nothing was changed."
	case errors.Is(err, errclass.ErrHistoryChainBroken):
		return fmt.Sprintf("Run %s for details.", color.Info("tidy history --verify"))
	}
	return ""
}

// suggestArtifacts provides helpful suggestions when an artifact is not found.
// Returns a formatted suggestion string.
func suggestArtifacts(query string, logDir string) string {
	infos, err := ledger.List(logDir)
	if err != nil || len(infos) == 0 {
		return fmt.Sprintf("No change ledgers in %s. Run %s first.", color.Path(logDir), color.Info("tidy organize"))
	}

	base := strings.TrimSuffix(filepath.Base(query), ".json")
	var matches []string
	for i := len(infos) - 1; i >= 0 && len(matches) < 3; i-- {
		if strings.Contains(infos[i].Name, base) {
			matches = append(matches, color.Path(infos[i].Name))
		}
	}

	if len(matches) > 0 {
		hint := "Did you mean"
		if len(matches) > 1 {
			hint += " one of"
		}
		return fmt.Sprintf("%s: %s?", hint, strings.Join(matches, ", "))
	}

	return fmt.Sprintf("Run %s to see available change ledgers.", color.Info("tidy logs list"))
}
