package config

import (
	"strings"
	"time"
)

// Defaults mirror the bounds and limits the mobile client shipped with.
const (
	DefaultUploadTimeout      = 10 * time.Second
	DefaultWriteTimeout       = 15 * time.Second
	DefaultDownloadURLTimeout = 10 * time.Second

	DefaultRefetchAttempts = 5
	DefaultRefetchInterval = 500 * time.Millisecond

	DefaultJPEGQuality    = 25
	DefaultMaxImageBytes  = 10 << 20
	DefaultMaxImagePixels = 4096 * 4096
	DefaultImagePrefix    = "images"

	DefaultMaxPostLength = 500
	DefaultMaxBioLength  = 150

	DefaultSessionTTL        = 24 * time.Hour
	DefaultMinPasswordLength = 6
)

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if cfg.Env.ServiceName == "" {
		cfg.Env.ServiceName = "threads"
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.Provider == "" {
		cfg.Auth.Provider = AuthProviderLocal
	}
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = DefaultSessionTTL
	}
	if cfg.Auth.MinPasswordLength <= 0 {
		cfg.Auth.MinPasswordLength = DefaultMinPasswordLength
	}

	if cfg.DocStore == nil {
		cfg.DocStore = &DocStoreConfig{}
	}
	if cfg.DocStore.UsersURL == "" {
		cfg.DocStore.UsersURL = "mem://users/id"
	}
	if cfg.DocStore.ThreadsURL == "" {
		cfg.DocStore.ThreadsURL = "mem://threads/threadId"
	}
	if cfg.DocStore.IdentitiesURL == "" {
		cfg.DocStore.IdentitiesURL = "mem://identities/email"
	}

	if cfg.Storage == nil {
		cfg.Storage = &StorageConfig{}
	}
	if cfg.Storage.BucketURL == "" {
		cfg.Storage.BucketURL = "mem://"
	}
	if cfg.Storage.ImagePrefix == "" {
		cfg.Storage.ImagePrefix = DefaultImagePrefix
	}
	if cfg.Storage.JPEGQuality <= 0 || cfg.Storage.JPEGQuality > 100 {
		cfg.Storage.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Storage.MaxImageBytes <= 0 {
		cfg.Storage.MaxImageBytes = DefaultMaxImageBytes
	}
	if cfg.Storage.MaxImagePixels <= 0 {
		cfg.Storage.MaxImagePixels = DefaultMaxImagePixels
	}

	if cfg.Timeouts == nil {
		cfg.Timeouts = &TimeoutsConfig{}
	}
	if cfg.Timeouts.Upload <= 0 {
		cfg.Timeouts.Upload = DefaultUploadTimeout
	}
	if cfg.Timeouts.Write <= 0 {
		cfg.Timeouts.Write = DefaultWriteTimeout
	}
	if cfg.Timeouts.DownloadURL <= 0 {
		cfg.Timeouts.DownloadURL = DefaultDownloadURLTimeout
	}

	if cfg.Session == nil {
		cfg.Session = &SessionConfig{}
	}
	if cfg.Session.RefetchAttempts <= 0 {
		cfg.Session.RefetchAttempts = DefaultRefetchAttempts
	}
	if cfg.Session.RefetchInterval <= 0 {
		cfg.Session.RefetchInterval = DefaultRefetchInterval
	}

	if cfg.Content == nil {
		cfg.Content = &ContentConfig{}
	}
	if cfg.Content.MaxPostLength <= 0 {
		cfg.Content.MaxPostLength = DefaultMaxPostLength
	}
	if cfg.Content.MaxBioLength <= 0 {
		cfg.Content.MaxBioLength = DefaultMaxBioLength
	}

	if cfg.Events == nil {
		cfg.Events = &EventsConfig{}
	}
	if cfg.Collaborators == nil {
		cfg.Collaborators = &CollaboratorsConfig{}
	}
}

// Default returns a fully defaulted configuration for the local provider.
// Tests and tools build on it instead of reading a file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Env.Log.Level = "info"

	return cfg
}
