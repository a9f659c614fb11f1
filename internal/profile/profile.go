package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/fixitapp/fixit/internal/version"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory (sqlite file, uploaded images)
	Data string
	// DSN points to where fixit stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Secret signs access tokens
	Secret string
	// Version is the current version of server
	Version string

	// AI configuration. The AI surface is disabled when no API key is set.
	AIAPIKey  string // FIXIT_AI_API_KEY
	AIBaseURL string // FIXIT_AI_BASE_URL (default: https://api.openai.com/v1)
	AIModel   string // FIXIT_AI_MODEL (default: gpt-4o-mini)
	// AIEmbeddingModel is used for similar-question search (postgres only).
	AIEmbeddingModel string // FIXIT_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an AI API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

func (p *Profile) Validate() error {
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrapf(err, "invalid data directory %q", p.Data)
	}
	p.Data = dataDir

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q, expected sqlite or postgres", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("fixit_%s.db", p.Mode)
		p.DSN = filepath.Join(p.Data, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}
	return nil
}

// GetProfile reads the profile from viper-bound flags and FIXIT_* env vars.
func GetProfile() (*Profile, error) {
	profile := &Profile{
		Mode:             viper.GetString("mode"),
		Addr:             viper.GetString("addr"),
		Port:             viper.GetInt("port"),
		Data:             viper.GetString("data"),
		DSN:              viper.GetString("dsn"),
		Driver:           viper.GetString("driver"),
		Secret:           viper.GetString("secret"),
		AIAPIKey:         viper.GetString("ai-api-key"),
		AIBaseURL:        viper.GetString("ai-base-url"),
		AIModel:          viper.GetString("ai-model"),
		AIEmbeddingModel: viper.GetString("ai-embedding-model"),
	}
	profile.Version = version.GetCurrentVersion(profile.Mode)

	if profile.Mode != "dev" && profile.Mode != "prod" {
		profile.Mode = "dev"
	}
	if profile.Secret == "" {
		profile.Secret = "fixit"
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if a relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data directory %q", dataDir)
	}
	return dataDir, nil
}
