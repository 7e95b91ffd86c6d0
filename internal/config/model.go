// internal/config/model.go
//
// Typed configuration model for Rebound.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `REBOUND_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs—only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Database section
//

// Database holds the control-plane DSN.  The DSN template lives in YAML;
// a secret password portion may be supplied as a `vault:` URI and is
// resolved before unmarshal.
type Database struct {
	DSN string `koanf:"dsn" validate:"required"`
}

//
// Redirect section
//

// Redirect holds the resolution-engine tunables.
//
// AppendSlash mirrors the site-wide trailing-slash policy: when true,
// `/foo` and `/foo/` are the same literal source for matching, for
// uniqueness, and for miss dedup.  ExcludeInactive decides whether
// rules toggled inactive still participate in matching; the historical
// behavior is that they do, so the default is false.
type Redirect struct {
	AppendSlash     bool          `koanf:"append_slash"`
	ExcludeInactive bool          `koanf:"exclude_inactive"`
	CacheTTL        time.Duration `koanf:"cache_ttl" validate:"required"`
	IgnoredPaths    []string      `koanf:"ignored_paths"`
}

//
// Cache section
//

// Cache selects the key-value backend behind the rule cache.  The
// in-process memory store needs no settings; the redis backend shares
// cached rule lists across replicas.
type Cache struct {
	Backend   string `koanf:"backend" validate:"required,oneof=memory redis"`
	RedisAddr string `koanf:"redis_addr" validate:"required_if=Backend redis,omitempty,hostname_port"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or REBOUND_ROOT override) so later code
// can build absolute file paths.
type Paths struct {
	Root string // REBOUND_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Redirect Redirect `koanf:"redirect"`
	Cache    Cache    `koanf:"cache"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
