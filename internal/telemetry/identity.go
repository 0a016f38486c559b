// Package telemetry sends opt-in, anonymous usage events to PostHog. Events
// carry counts and durations only, never document or feature content.
package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// IDFileName holds the anonymous install id inside the config directory.
const IDFileName = "telemetry_id"

// LoadAnonymousID returns the install id stored under dir, creating and
// saving a random one on first use.
func LoadAnonymousID(fs afero.Fs, dir string) (string, error) {
	path := filepath.Join(dir, IDFileName)
	data, err := afero.ReadFile(fs, path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); uuid.Validate(id) == nil {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	if err := afero.WriteFile(fs, path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return id, nil
}
