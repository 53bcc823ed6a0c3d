package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// DefaultLanguage is the TMDB locale the frontend was built for.
const DefaultLanguage = "es-ES"

// Settings holds every runtime option of the server.
type Settings struct {
	Server      ServerSettings      `json:"server"`
	Backend     BackendSettings     `json:"backend"`
	TMDB        TMDBSettings        `json:"tmdb"`
	IGDB        IGDBSettings        `json:"igdb"`
	OpenLibrary OpenLibrarySettings `json:"openLibrary"`
	Cache       CacheSettings       `json:"cache"`
	Logging     LoggingSettings     `json:"logging"`
}

type ServerSettings struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	StorageDir string `json:"storageDir"`

	// CORSOrigins are the exact SPA origins allowed to call the API.
	CORSOrigins []string `json:"corsOrigins"`

	// CORSAllowPrivate also admits localhost and private-network origins on
	// any port. Development only.
	CORSAllowPrivate bool `json:"corsAllowPrivate"`
}

// BackendSettings points at the ReviewVerso REST API (`/api/v1`).
type BackendSettings struct {
	BaseURL        string `json:"baseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type TMDBSettings struct {
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl"`
	Language string `json:"language"`
}

type IGDBSettings struct {
	ClientID    string `json:"clientId"`
	AccessToken string `json:"accessToken"`
	BaseURL     string `json:"baseUrl"`
}

type OpenLibrarySettings struct {
	BaseURL      string `json:"baseUrl"`
	RetryDelayMS int    `json:"retryDelayMs"`
}

type CacheSettings struct {
	Size       int `json:"size"`
	TTLMinutes int `json:"ttlMinutes"`
}

type LoggingSettings struct {
	File       string `json:"file"`
	MaxSizeMB  int    `json:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host:       "0.0.0.0",
			Port:       7777,
			StorageDir: "cache",
		},
		Backend: BackendSettings{
			BaseURL:        "http://localhost:8080/api/v1",
			TimeoutSeconds: 10,
		},
		TMDB: TMDBSettings{
			BaseURL:  "https://api.themoviedb.org/3",
			Language: DefaultLanguage,
		},
		IGDB: IGDBSettings{
			BaseURL: "https://api.igdb.com/v4",
		},
		OpenLibrary: OpenLibrarySettings{
			BaseURL:      "https://openlibrary.org",
			RetryDelayMS: 1000,
		},
		Cache: CacheSettings{
			Size:       512,
			TTLMinutes: 30,
		},
		Logging: LoggingSettings{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Addr returns the listen address.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Timeout returns the backend client timeout.
func (b BackendSettings) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// RetryDelay is the base OpenLibrary backoff step.
func (o OpenLibrarySettings) RetryDelay() time.Duration {
	if o.RetryDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(o.RetryDelayMS) * time.Millisecond
}

// TTL returns the details cache lifetime.
func (c CacheSettings) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Manager loads and persists the settings file.
type Manager struct {
	mu   sync.RWMutex
	path string
}

// NewManager creates a settings manager for the given JSON file path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the settings file, fills defaults for missing fields and applies
// environment overrides. A missing file is not an error.
func (m *Manager) Load() (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	settings := DefaultSettings()
	data, err := os.ReadFile(m.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parse settings %s: %w", m.path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Settings{}, fmt.Errorf("read settings %s: %w", m.path, err)
	}

	applyEnv(&settings)
	settings.TMDB.Language = NormalizeLanguage(settings.TMDB.Language)
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Save writes the settings file atomically.
func (m *Manager) Save(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, m.path)
}

// Validate checks the settings needed to start the server.
func (s Settings) Validate() error {
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", s.Server.Port)
	}
	if strings.TrimSpace(s.Backend.BaseURL) == "" {
		return errors.New("backend base url is required")
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(s *Settings) {
	setString(&s.Server.Host, "REVIEWVERSO_HOST")
	setInt(&s.Server.Port, "REVIEWVERSO_PORT")
	setString(&s.Server.StorageDir, "REVIEWVERSO_STORAGE_DIR")
	setString(&s.Backend.BaseURL, "REVIEWVERSO_BACKEND_URL")
	setInt(&s.Backend.TimeoutSeconds, "REVIEWVERSO_BACKEND_TIMEOUT")
	setString(&s.TMDB.APIKey, "TMDB_API_KEY")
	setString(&s.TMDB.BaseURL, "TMDB_BASE_URL")
	setString(&s.TMDB.Language, "TMDB_LANGUAGE")
	setString(&s.IGDB.ClientID, "IGDB_CLIENT_ID")
	setString(&s.IGDB.AccessToken, "IGDB_ACCESS_TOKEN")
	setString(&s.IGDB.BaseURL, "IGDB_BASE_URL")
	setString(&s.OpenLibrary.BaseURL, "OPENLIBRARY_BASE_URL")
	setInt(&s.Cache.Size, "REVIEWVERSO_CACHE_SIZE")
	setInt(&s.Cache.TTLMinutes, "REVIEWVERSO_CACHE_TTL_MINUTES")
	setString(&s.Logging.File, "REVIEWVERSO_LOG_FILE")
	setBool(&s.Server.CORSAllowPrivate, "REVIEWVERSO_CORS_ALLOW_PRIVATE")
	if v := strings.TrimSpace(os.Getenv("REVIEWVERSO_CORS_ORIGINS")); v != "" {
		s.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				s.Server.CORSOrigins = append(s.Server.CORSOrigins, origin)
			}
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

// NormalizeLanguage turns loose locale input ("es", "es_es", "") into a
// BCP 47 tag with a region, defaulting to es-ES.
func NormalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if lang == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return DefaultLanguage
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	return base.String() + "-" + region.String()
}
