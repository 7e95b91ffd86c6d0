// internal/vault/vault.go
//
// Vault client wrapper for Rebound.
//
// Context
// -------
//   - Thin, concurrency-safe wrapper around the HashiCorp Vault Go SDK.
//   - Adds simple KV-v2 reads with per-key caching so repeated config
//     reloads do not hammer the server.
//   - The config loader resolves any `vault:<mount/path>#<key>` value
//     through GetKV before unmarshalling.
//
// Environment expectations
// ------------------------
//   - VAULT_ADDR  – scheme and host of the Vault server.
//   - VAULT_TOKEN – initial token (falls back to ~/.vault-token).
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// Client is safe for concurrent use.  Create once at startup.  Zero value
// is invalid.
type Client struct {
	api *vault.Client

	cacheMu sync.RWMutex
	cache   map[string]cached // "path#key" → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client from the standard environment variables.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	return &Client{
		api:   apiCli,
		cache: make(map[string]cached),
	}, nil
}

// GetKV reads one field from a KV-v2 secret, caching the value for ttl.
// The path is "<mount>/<secret-path>", for example "secret/rebound/db".
func (c *Client) GetKV(ctx context.Context, path, key string, ttl time.Duration) (string, error) {
	cacheKey := path + "#" + key

	c.cacheMu.RLock()
	if ent, ok := c.cache[cacheKey]; ok && time.Now().Before(ent.exp) {
		c.cacheMu.RUnlock()
		return ent.val, nil
	}
	c.cacheMu.RUnlock()

	mount, rest, ok := strings.Cut(path, "/")
	if !ok {
		return "", fmt.Errorf("vault: path %q needs <mount>/<secret-path>", path)
	}

	sec, err := c.api.KVv2(mount).Get(ctx, rest)
	if err != nil {
		return "", fmt.Errorf("vault read %q: %w", path, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", errors.New("vault: key " + key + " absent at " + path)
	}
	val, ok := raw.(string)
	if !ok {
		return "", errors.New("vault: key " + key + " at " + path + " is not a string")
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = cached{val: val, exp: time.Now().Add(ttl)}
	c.cacheMu.Unlock()

	return val, nil
}
