package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "10MB"

	// AuthProviderLocal keeps identities in the document store and signs its own tokens.
	AuthProviderLocal = "local"
	// AuthProviderFirebase delegates identities to Firebase Authentication.
	AuthProviderFirebase = "firebase"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// Firebase project settings, required when auth.provider is "firebase"
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	DocStore *DocStoreConfig `json:"docstore" yaml:"docstore"`

	Storage *StorageConfig `json:"storage" yaml:"storage"`

	// Timeouts bound each collaborator call individually
	Timeouts *TimeoutsConfig `json:"timeouts" yaml:"timeouts"`

	Session *SessionConfig `json:"session" yaml:"session"`

	Content *ContentConfig `json:"content" yaml:"content"`

	Events *EventsConfig `json:"events" yaml:"events"`

	// Collaborators toggles verbose logging of every auth/document/object store call
	Collaborators *CollaboratorsConfig `json:"collaborators" yaml:"collaborators"`
}

type Log struct {
	Pretty bool     `json:"pretty" yaml:"pretty"`
	Level  string   `json:"level" yaml:"level"`
	File   *LogFile `json:"file" yaml:"file"`
}

// LogFile enables a rotating log file next to stdout.
type LogFile struct {
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// AuthConfig selects and tunes the authentication collaborator
type AuthConfig struct {
	Provider          string        `json:"provider" yaml:"provider"`
	APIKey            string        `json:"apiKey" yaml:"apiKey"` // Web API key for password sign-in against Firebase
	JWTSecret         string        `json:"jwtSecret" yaml:"jwtSecret"`
	SessionTTL        time.Duration `json:"sessionTTL" yaml:"sessionTTL"`
	BcryptCost        int           `json:"bcryptCost" yaml:"bcryptCost"`
	MinPasswordLength int           `json:"minPasswordLength" yaml:"minPasswordLength"`
}

// FirebaseConfig defines the Firebase project the client talks to
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
	StorageBucket   string `json:"storageBucket" yaml:"storageBucket"`
}

// DocStoreConfig holds gocloud docstore collection URLs,
// e.g. "mem://users/id" or "firestore://projects/p/databases/(default)/documents/users?name_field=id".
type DocStoreConfig struct {
	UsersURL      string `json:"usersURL" yaml:"usersURL"`
	ThreadsURL    string `json:"threadsURL" yaml:"threadsURL"`
	IdentitiesURL string `json:"identitiesURL" yaml:"identitiesURL"`
}

// StorageConfig defines where profile images go
type StorageConfig struct {
	// gocloud blob URL, e.g. "mem://", "file:///tmp/threads", "gs://my-bucket"
	BucketURL string `json:"bucketURL" yaml:"bucketURL"`

	// Base of the download URLs handed to clients, e.g.
	// "https://firebasestorage.googleapis.com/v0/b/my-bucket/o"
	DownloadBaseURL string `json:"downloadBaseURL" yaml:"downloadBaseURL"`

	ImagePrefix   string `json:"imagePrefix" yaml:"imagePrefix"`
	JPEGQuality   int    `json:"jpegQuality" yaml:"jpegQuality"`
	MaxImageBytes int    `json:"maxImageBytes" yaml:"maxImageBytes"`

	// Width times height allowed before decoding. Bounds memory for images
	// that compress well but decode huge.
	MaxImagePixels int `json:"maxImagePixels" yaml:"maxImagePixels"`
}

// TimeoutsConfig bounds each network call. A flow of N calls may take up to N bounds.
type TimeoutsConfig struct {
	Upload      time.Duration `json:"upload" yaml:"upload"`
	Write       time.Duration `json:"write" yaml:"write"`
	DownloadURL time.Duration `json:"downloadURL" yaml:"downloadURL"`
}

// SessionConfig tunes the self-healing profile re-fetch of the session store
type SessionConfig struct {
	RefetchAttempts int           `json:"refetchAttempts" yaml:"refetchAttempts"`
	RefetchInterval time.Duration `json:"refetchInterval" yaml:"refetchInterval"`
}

// ContentConfig limits user-authored text
type ContentConfig struct {
	MaxPostLength int `json:"maxPostLength" yaml:"maxPostLength"`
	MaxBioLength  int `json:"maxBioLength" yaml:"maxBioLength"`
}

// EventsConfig points at the gocloud pubsub topic for domain events.
// An empty TopicURL disables publishing.
type EventsConfig struct {
	TopicURL string `json:"topicURL" yaml:"topicURL"`
}

// CollaboratorsConfig controls debug verbosity of the collaborator adapters
type CollaboratorsConfig struct {
	Debug bool `json:"debug" yaml:"debug"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			if filepath.IsAbs(path) {
				searchPaths = append(searchPaths, path)

				continue
			}
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	var configFile string
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate

			break
		}
	}

	if configFile == "" {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to a path aligned with existing YAML keys.
			// Example: TIMEOUTS_DOWNLOADURL -> timeouts.downloadURL
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Auth.Provider {
	case AuthProviderLocal:
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwtSecret is required for the local auth provider")
		}
	case AuthProviderFirebase:
		if cfg.Firebase == nil || cfg.Firebase.ProjectID == "" {
			return errors.New("firebase.projectId is required for the firebase auth provider")
		}
		if cfg.Auth.APIKey == "" {
			return errors.New("auth.apiKey is required for the firebase auth provider")
		}
	default:
		return errors.Errorf("unknown auth provider: %s", cfg.Auth.Provider)
	}

	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
