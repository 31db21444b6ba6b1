// Package syncconfig reads the JSON files describing the recurring
// product-sync and order-sync jobs and projects them into the job
// registry. The files are the only durable job source; the registry
// itself is rebuilt from them on every reload.
package syncconfig

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/olmedhq/erp-gateway/internal/domain"
	"github.com/olmedhq/erp-gateway/internal/registry"
)

// JobConfig is one entry of a sync-config file.
type JobConfig struct {
	ID              string            `json:"id"`
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	IntervalSeconds int               `json:"interval_seconds"`
	UseSharedAuth   bool              `json:"use_shared_auth"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            string            `json:"body,omitempty"`
	Active          bool              `json:"active"`
}

// Store reads one sync-config file (products or orders).
type Store struct {
	name   string
	path   string
	logger *slog.Logger
}

func NewStore(name, path string, logger *slog.Logger) *Store {
	return &Store{
		name:   name,
		path:   path,
		logger: logger.With("component", "syncconfig", "store", name),
	}
}

// Load reads and parses the whole file.
func (s *Store) Load() ([]JobConfig, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s config: %w", s.name, err)
	}

	var configs []JobConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("parse %s config: %w", s.name, err)
	}
	return configs, nil
}

// Apply loads every store and reconciles the registry against it:
// active entries are upserted as interval jobs, deactivated entries are
// removed. All files are read before the registry is touched, so a
// load failure leaves it exactly as it was. One malformed entry is
// logged and skipped; it never blocks the rest of the reload.
func Apply(reg *registry.Registry, logger *slog.Logger, stores ...*Store) (added, removed int, err error) {
	loaded := make([][]JobConfig, len(stores))
	for i, store := range stores {
		configs, loadErr := store.Load()
		if loadErr != nil {
			return 0, 0, loadErr
		}
		loaded[i] = configs
	}

	for i, store := range stores {
		for _, cfg := range loaded[i] {
			if !cfg.Active {
				if reg.Remove(cfg.ID) {
					removed++
					store.logger.Info("deactivated job removed", "job_id", cfg.ID)
				}
				continue
			}

			schedule := domain.Schedule{
				Kind:            domain.KindInterval,
				IntervalSeconds: cfg.IntervalSeconds,
				Request: domain.RequestTemplate{
					Method:        cfg.Method,
					URL:           cfg.URL,
					Headers:       cfg.Headers,
					Body:          cfg.Body,
					UseSharedAuth: cfg.UseSharedAuth,
				},
			}

			if _, upsertErr := reg.AddOrUpdate(cfg.ID, schedule); upsertErr != nil {
				logger.Error("skipping invalid sync job", "job_id", cfg.ID, "error", upsertErr)
				continue
			}
			added++
		}
	}
	return added, removed, nil
}
