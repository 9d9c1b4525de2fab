package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CheckNativeLibs verifies that every required client library is present and non-empty.
// A missing library means no connection can ever succeed, so callers treat it as fatal.
func (c *Config) CheckNativeLibs() error {
	dir := c.NativeLibs.Dir
	if dir == "" {
		dir = "."
	}

	var missing []string
	for _, lib := range c.NativeLibs.Required {
		info, err := os.Stat(filepath.Join(dir, lib))
		if err != nil || info.IsDir() || info.Size() == 0 {
			missing = append(missing, lib)
		}
	}

	if len(missing) > 0 {
		return ConfigurationError{
			Key:    "NATIVE_LIBS",
			Reason: fmt.Sprintf("missing or empty in %s: %s", dir, strings.Join(missing, ", ")),
		}
	}
	return nil
}
