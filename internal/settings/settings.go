// Package settings loads the store-admin settings of the Machool method and
// reloads them when the settings file changes.
package settings

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Settings are the values an admin enters on the method settings page.
type Settings struct {
	StoreDomain string `mapstructure:"store_domain" json:"store_domain"`
	APIKey      string `mapstructure:"api_key" json:"api_key"`
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
}

// Validate checks the required fields.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.StoreDomain) == "" {
		errs = append(errs, errors.New("store_domain is required"))
	}
	if strings.TrimSpace(s.APIKey) == "" {
		errs = append(errs, errors.New("api_key is required"))
	}
	return errors.Join(errs...)
}

// FormField describes one field of the settings form.
type FormField struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
}

// FormFields returns the settings form shown to store admins.
func FormFields() []FormField {
	return []FormField{
		{
			Key:         "store_domain",
			Title:       "Store Domain",
			Type:        "text",
			Description: "Enter the domain of your store. This is used to identify your store when communicating with the Machool API.",
			Placeholder: "example.com",
			Required:    true,
		},
		{
			Key:         "api_key",
			Title:       "API Key",
			Type:        "text",
			Description: "Retrieve your API key from the Machool e-commerce portal",
			Placeholder: "XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX",
			Required:    true,
		},
	}
}

// settleDelay is how long the watcher waits after the last write event
// before re-reading, so a truncate followed by a write reloads once.
const settleDelay = 100 * time.Millisecond

// Store holds the settings read from a file. All viper access happens
// under mu.
type Store struct {
	path    string
	v       *viper.Viper
	logger  *otelzap.Logger
	mu      sync.RWMutex
	current Settings
	watcher *fsnotify.Watcher
}

// Load reads the settings file. The format follows the file extension.
func Load(path string, logger *otelzap.Logger) (*Store, error) {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings file: %w", err)
	}

	v := newViper(abs)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := &Store{path: abs, v: v, logger: logger}
	next, err := s.decodeLocked()
	if err != nil {
		return nil, err
	}
	s.current = next
	return s, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("store_domain", "")
	v.SetDefault("api_key", "")
	v.SetDefault("enabled", true)
	return v
}

// Current returns the last loaded settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the settings file. changed reports whether the result
// differs from the settings held before the call.
func (s *Store) Reload() (Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.ReadInConfig(); err != nil {
		return s.current, false, fmt.Errorf("failed to read settings file: %w", err)
	}
	next, err := s.decodeLocked()
	if err != nil {
		return s.current, false, err
	}
	changed := next != s.current
	s.current = next
	return next, changed, nil
}

// Save writes new settings back to the file. The watcher sees the write but
// finds nothing changed, so callers apply saved settings themselves.
func (s *Store) Save(next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A scratch instance keeps Set overrides out of s.v, which would
	// otherwise mask later edits to the file.
	w := newViper(s.path)
	w.Set("store_domain", strings.TrimSpace(next.StoreDomain))
	w.Set("api_key", strings.TrimSpace(next.APIKey))
	w.Set("enabled", next.Enabled)
	if err := w.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	decoded, err := s.decodeLocked()
	if err != nil {
		return err
	}
	s.current = decoded
	return nil
}

// Watch calls onChange when an edit to the file changes the settings.
// Writes made through Save do not trigger it.
func (s *Store) Watch(onChange func(Settings)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are seen.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch settings file: %w", err)
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.mu.Unlock()
		w.Close()
		return errors.New("settings file is already watched")
	}
	s.watcher = w
	s.mu.Unlock()

	go s.watch(w, onChange)
	return nil
}

func (s *Store) watch(w *fsnotify.Watcher, onChange func(Settings)) {
	var settle <-chan time.Time
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != s.path || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			settle = time.After(settleDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("Settings watcher failed", zap.String("file", s.path), zap.Error(err))
		case <-settle:
			settle = nil
			next, changed, err := s.Reload()
			if err != nil {
				s.logger.Error("Failed to reload settings", zap.String("file", s.path), zap.Error(err))
				continue
			}
			if !changed {
				continue
			}
			s.logger.Info("Settings reloaded", zap.String("file", s.path))
			onChange(next)
		}
	}
}

// Close stops the watcher started by Watch.
func (s *Store) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

func (s *Store) decodeLocked() (Settings, error) {
	var next Settings
	if err := s.v.Unmarshal(&next); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	next.StoreDomain = strings.TrimSpace(next.StoreDomain)
	next.APIKey = strings.TrimSpace(next.APIKey)
	return next, nil
}
