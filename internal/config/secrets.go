package config

import (
	"context"
	"errors"
	"strings"
)

// SecretPrefix marks a configuration value that must be fetched from Vault.
// The remainder is `<mount>/<path>#<key>`, e.g. `vault:secret/adept/db#password`.
const SecretPrefix = "vault:"

// ErrBadSecretRef is returned for references without a `#key` part.
var ErrBadSecretRef = errors.New("malformed secret reference")

// SecretResolver turns a `vault:` reference into its plain value.  The
// vault.Client satisfies it.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// IsSecretRef reports whether s carries the vault prefix.
func IsSecretRef(s string) bool { return strings.HasPrefix(s, SecretPrefix) }

// ParseSecretRef splits `vault:path#key` into its path and key.
func ParseSecretRef(ref string) (path, key string, err error) {
	body := strings.TrimPrefix(ref, SecretPrefix)
	path, key, ok := strings.Cut(body, "#")
	if !ok || path == "" || key == "" {
		return "", "", ErrBadSecretRef
	}
	return path, key, nil
}
