package wlconfig

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenv loads key=value pairs from path into the process
// environment without overwriting anything already set, so that a
// sample CLI can be pointed at a `.env` file during development
// instead of exporting WAYLAND_DISPLAY/WL_PROXY_DEBUG/etc. by hand. A
// missing file is not an error; any other read or parse failure is
// returned.
func LoadDotenv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
