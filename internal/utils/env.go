package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvironment loads .env from the working directory and then from the
// executable's directory. Variables that are already set are never replaced,
// so the first file wins. It runs before the logger exists and returns the
// files it loaded for the caller to log.
func LoadEnvironment() ([]string, error) {
	candidates := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), ".env"))
	}

	var (
		loaded []string
		errs   []error
	)
	seen := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		abs, err := filepath.Abs(path)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true

		if err := godotenv.Load(abs); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("failed to load %s: %w", abs, err))
			}
			continue
		}
		loaded = append(loaded, abs)
	}

	return loaded, errors.Join(errs...)
}
