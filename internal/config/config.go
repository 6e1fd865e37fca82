package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/revdeploy/internal/revision"
	"github.com/andresuchdata/revdeploy/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Store    StoreConfig
	Revision RevisionConfig
	Server   ServerConfig
	Log      LogConfig
	Journal  JournalConfig
}

type StoreConfig struct {
	Driver          string
	Region          string
	Bucket          string
	Endpoint        string
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	CredentialsFile string
	LocalRoot       string
}

type RevisionConfig struct {
	// Key is the active pointer object.
	Key    string
	Prefix string
	Suffix string
	// Revision is the revision to activate when none is given explicitly.
	Revision string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type JournalConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	MaxEntries    int
}

// Load reads configuration from defaults, an optional .env file, an optional
// config file at path and the environment, in increasing precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	cfg := &Config{
		Store: StoreConfig{
			Driver:          v.GetString("STORE_DRIVER"),
			Region:          v.GetString("STORE_REGION"),
			Bucket:          v.GetString("STORE_BUCKET"),
			Endpoint:        v.GetString("STORE_ENDPOINT"),
			UseSSL:          v.GetBool("STORE_USE_SSL"),
			AccessKeyID:     v.GetString("STORE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("STORE_SECRET_ACCESS_KEY"),
			SessionToken:    v.GetString("STORE_SESSION_TOKEN"),
			CredentialsFile: v.GetString("STORE_CREDENTIALS_FILE"),
			LocalRoot:       v.GetString("STORE_LOCAL_ROOT"),
		},
		Revision: RevisionConfig{
			Key:      v.GetString("REVISION_ACTIVE_KEY"),
			Prefix:   v.GetString("REVISION_PREFIX"),
			Suffix:   v.GetString("REVISION_SUFFIX"),
			Revision: v.GetString("REVISION_KEY"),
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Journal: JournalConfig{
			Enabled:       v.GetBool("JOURNAL_ENABLED"),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			MaxEntries:    v.GetInt("JOURNAL_MAX_ENTRIES"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("STORE_DRIVER", string(storage.DriverMinio))
	v.SetDefault("STORE_REGION", "us-east-1")
	v.SetDefault("STORE_USE_SSL", true)
	v.SetDefault("STORE_LOCAL_ROOT", "./data/store")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("JOURNAL_ENABLED", false)
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JOURNAL_MAX_ENTRIES", 100)
}

// Validate reports missing settings required to reach the store.
func (c *Config) Validate() error {
	var errs []error
	driver := storage.Driver(strings.ToLower(c.Store.Driver))
	if c.Store.Bucket == "" && driver != storage.DriverLocal {
		errs = append(errs, errors.New("STORE_BUCKET is required"))
	}
	if c.Revision.Key == "" {
		errs = append(errs, errors.New("REVISION_ACTIVE_KEY is required"))
	}
	return errors.Join(errs...)
}

// StorageConfig converts the store section for storage.New.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:          storage.Driver(c.Store.Driver),
		Bucket:          c.Store.Bucket,
		Region:          c.Store.Region,
		Endpoint:        c.Store.Endpoint,
		UseSSL:          c.Store.UseSSL,
		AccessKeyID:     c.Store.AccessKeyID,
		SecretAccessKey: c.Store.SecretAccessKey,
		SessionToken:    c.Store.SessionToken,
		CredentialsFile: c.Store.CredentialsFile,
		LocalRoot:       c.Store.LocalRoot,
	}
}

// Naming resolves the revision key convention. Prefix and suffix default to
// the ones derived from the active key when neither is configured.
func (c *Config) Naming() (revision.Naming, error) {
	if c.Revision.Prefix == "" && c.Revision.Suffix == "" {
		return revision.DeriveNaming(c.Revision.Key)
	}
	return revision.NewNaming(c.Revision.Prefix, c.Revision.Suffix, c.Revision.Key)
}
