package commands

import (
	"os"
	"path/filepath"

	"github.com/connectorhq/transferproc/pkg/errors"
)

// ensureDirectories creates the directories the store and the
// provisioning FSM database need before either is opened.
func ensureDirectories(storePath, fsmDBPath string) error {
	if err := os.MkdirAll(filepath.Dir(storePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create store directory")
	}
	if fsmDBPath != "" {
		if err := os.MkdirAll(filepath.Dir(fsmDBPath), 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}
	return nil
}
