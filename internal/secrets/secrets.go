// Package secrets resolves credentials from files or environment references.
// Secret values are never logged.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/logger"
)

// maxSecretFileSize limits secret file reads; secrets are tokens and passwords
const maxSecretFileSize = 64 * 1024

// GetLogger returns the secrets module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("secrets")
}

// ExpandString expands ${VAR} and ${VAR:-default} references. A reference
// without a default to an unset variable is an error.
func ExpandString(s string) (string, error) {
	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})
	if len(missing) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missing, ", ")).
			Category(errors.CategoryConfiguration).
			Component("secrets").
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret from a regular file such as a Docker or Kubernetes
// mounted secret. Trailing newlines are trimmed; an empty secret is an error.
func ReadFile(path string) (string, error) {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return "", errors.FileError(fmt.Errorf("stat secret file: %w", err), clean)
	}
	if !info.Mode().IsRegular() {
		return "", fileError("secret path is not a regular file", clean)
	}
	if info.Size() > maxSecretFileSize {
		return "", fileError(fmt.Sprintf("secret file larger than %d bytes", maxSecretFileSize), clean)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		GetLogger().Warn("secret file is readable by group or others",
			logger.String("path", clean),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", errors.FileError(fmt.Errorf("read secret file: %w", err), clean)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError("secret file is empty", clean)
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	if value == "" {
		return "", nil
	}
	return ExpandString(value)
}

func fileError(msg, path string) error {
	return errors.Newf("%s", msg).
		Category(errors.CategoryConfiguration).
		Component("secrets").
		FileContext(path).
		Build()
}
