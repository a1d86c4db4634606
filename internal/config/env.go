package config

import (
	"os"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
)

// EnvFiles are loaded in order when present. Variables already set in the
// process environment are never overwritten.
var EnvFiles = []string{".env", ".env.local"}

func loadEnvFile() error {
	for _, path := range EnvFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "failed to load environment file").
				WithContext("path", path).
				Build()
		}
	}
	return nil
}
