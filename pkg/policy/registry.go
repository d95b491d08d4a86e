package policy

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry caches loaded pack snapshots keyed by "{policy_id}@{version}".
// Packs are process-lifetime, read-only inputs; a reload swaps the whole
// snapshot atomically so concurrent resolutions always see one consistent
// pack.
type Registry struct {
	mu      sync.RWMutex
	packs   map[string]*Pack
	current *Pack
	baseQ   string
	logger  *slog.Logger
}

// NewRegistry creates an empty pack registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		packs:  make(map[string]*Pack),
		logger: logger.With("component", "policy.registry"),
	}
}

// Load loads the pack at basePath and makes it the current snapshot.
func (r *Registry) Load(basePath string) (*Pack, error) {
	pack, err := LoadPack(basePath)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.packs[packKey(pack)] = pack
	r.current = pack
	r.baseQ = basePath
	r.mu.Unlock()

	r.logger.Info("policy pack loaded",
		"policy_id", pack.PolicyID,
		"version", pack.Version,
		"districts", len(pack.districtFiles),
	)
	return pack, nil
}

// Reload re-reads the current pack from disk. The previous snapshot stays
// current if the reload fails, so a bad deploy cannot take out in-flight
// resolutions.
func (r *Registry) Reload() (*Pack, error) {
	r.mu.RLock()
	basePath := r.baseQ
	r.mu.RUnlock()

	if basePath == "" {
		return nil, fmt.Errorf("no pack loaded")
	}
	return r.Load(basePath)
}

// Current returns the current pack snapshot, or nil if none is loaded.
func (r *Registry) Current() *Pack {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Get returns a cached pack by policy id and version.
func (r *Registry) Get(policyID, version string) (*Pack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packs[policyID+"@"+version]
	return p, ok
}

func packKey(p *Pack) string {
	return p.PolicyID + "@" + p.Version
}
