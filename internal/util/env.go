package util

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if one exists. A missing file
// is not an error; deployments may set everything in the environment.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
