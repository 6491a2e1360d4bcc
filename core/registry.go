package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// refreshSuppressWindow rate-limits non-forced refreshes that follow a
// recent successful one.
const refreshSuppressWindow = 30 * time.Second

// registryState is the registry's refresh state machine.
type registryState int

const (
	registryIdle registryState = iota
	registryRefreshing
)

// SettingsStore is the configuration surface the registry needs: the
// current settings snapshot plus persistence for the default model choice.
type SettingsStore interface {
	SettingsSource
	SaveDefaultModel(id string) error
}

// ModelRegistry is the single source of truth for model state. It is the
// only component that mutates the model list; every read hands out a value
// copy.
type ModelRegistry struct {
	transport Transport
	settings  SettingsStore
	logger    *Logger
	bus       *EventBus

	mu          sync.Mutex
	models      []Model
	state       registryState
	lastRefresh time.Time
	inflight    chan struct{} // closed when the in-flight refresh completes
}

// NewModelRegistry creates a registry over the given transport
func NewModelRegistry(transport Transport, settings SettingsStore, logger *Logger) *ModelRegistry {
	return &ModelRegistry{
		transport: transport,
		settings:  settings,
		logger:    logger,
		bus:       NewEventBus(),
	}
}

// Subscribe registers an observer for model list change notifications.
func (r *ModelRegistry) Subscribe() <-chan ModelsEvent {
	return r.bus.Subscribe()
}

// Close shuts down change notification delivery.
func (r *ModelRegistry) Close() {
	r.bus.Close()
}

func copyModels(models []Model) []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// Refresh reconciles the cache with the daemon's catalog.
//
// At most one refresh round-trip is in flight per registry; a call that
// arrives while one is running awaits its completion and returns the merged
// result instead of starting a second round-trip. Non-forced calls inside
// the suppression window return the cache untouched. A daemon that is
// unreachable leaves the cache as-is and returns the stale list without an
// error; a malformed catalog surfaces as a ProtocolError alongside the
// stale list.
func (r *ModelRegistry) Refresh(ctx context.Context, force bool) ([]Model, error) {
	r.mu.Lock()

	if r.state == registryRefreshing {
		wait := r.inflight
		r.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return r.Models(), nil
	}

	if !force && !r.lastRefresh.IsZero() && time.Since(r.lastRefresh) < refreshSuppressWindow {
		snapshot := copyModels(r.models)
		r.mu.Unlock()
		return snapshot, nil
	}

	r.state = registryRefreshing
	done := make(chan struct{})
	r.inflight = done
	r.mu.Unlock()

	fetched, err := r.transport.ListModels(ctx)

	r.mu.Lock()
	r.state = registryIdle
	r.inflight = nil

	if err != nil {
		stale := copyModels(r.models)
		r.mu.Unlock()
		close(done)

		var protoErr *ProtocolError
		if errors.As(err, &protoErr) {
			r.logger.Errorf("Model refresh failed on malformed catalog: %v", err)
			return stale, err
		}
		// Serve stale, don't crash the UI: an unreachable daemon is not an
		// error for observers of the cache.
		r.logger.Warnf("Model refresh failed, serving %d cached models: %v", len(stale), err)
		return stale, nil
	}

	r.applyCatalogLocked(fetched)
	snapshot := copyModels(r.models)
	r.mu.Unlock()
	close(done)

	r.bus.Emit(snapshot)
	r.logger.Infof("Model refresh completed: %d models", len(snapshot))
	return snapshot, nil
}

// applyCatalogLocked replaces the cached list with the daemon's result. The
// daemon is authoritative for existence and loaded state; only the
// registry-local IsDefault flag survives for ids both sides know. Models the
// daemon no longer reports are dropped along with their load history.
func (r *ModelRegistry) applyCatalogLocked(fetched []Model) {
	defaults := make(map[string]bool, len(r.models))
	for _, m := range r.models {
		if m.IsDefault {
			defaults[m.ID] = true
		}
	}

	next := make([]Model, len(fetched))
	copy(next, fetched)
	for i := range next {
		next[i].IsDefault = defaults[next[i].ID]
	}

	r.models = next
	r.lastRefresh = time.Now()
}

// Models returns a value copy of the cache. Never touches the network.
func (r *ModelRegistry) Models() []Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyModels(r.models)
}

// Model looks up a single cached model by id.
func (r *ModelRegistry) Model(id string) (Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// DefaultModel resolves the model to use for unattended chat turns:
// the flagged default, then the configured default id, then the first
// loaded model, then the first model. Returns false on an empty cache.
func (r *ModelRegistry) DefaultModel() (Model, bool) {
	configured := ""
	if s, err := r.settings.Load(); err == nil {
		configured = s.DefaultModelID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.models) == 0 {
		return Model{}, false
	}

	for _, m := range r.models {
		if m.IsDefault {
			return m, true
		}
	}
	if configured != "" {
		for _, m := range r.models {
			if m.ID == configured {
				return m, true
			}
		}
	}
	for _, m := range r.models {
		if m.IsLoaded {
			return m, true
		}
	}
	return r.models[0], true
}

// LoadModel loads a model on the daemon and flips the cached flag. Already
// loaded models short-circuit to success without a daemon call.
func (r *ModelRegistry) LoadModel(ctx context.Context, id string) (bool, error) {
	return r.setLoaded(ctx, id, true)
}

// UnloadModel releases a model's weights on the daemon.
func (r *ModelRegistry) UnloadModel(ctx context.Context, id string) (bool, error) {
	return r.setLoaded(ctx, id, false)
}

func (r *ModelRegistry) setLoaded(ctx context.Context, id string, loaded bool) (bool, error) {
	r.mu.Lock()
	idx := -1
	for i := range r.models {
		if r.models[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false, &NotFoundError{ModelID: id}
	}
	if r.models[idx].IsLoaded == loaded {
		r.mu.Unlock()
		return true, nil
	}
	r.mu.Unlock()

	var ok bool
	var err error
	if loaded {
		ok, err = r.transport.LoadModel(ctx, id)
	} else {
		ok, err = r.transport.UnloadModel(ctx, id)
	}
	if err != nil || !ok {
		return false, err
	}

	r.mu.Lock()
	// Reacquire by id; the slot may have moved under a concurrent refresh.
	for i := range r.models {
		if r.models[i].ID == id {
			r.models[i].IsLoaded = loaded
			break
		}
	}
	out := copyModels(r.models)
	r.mu.Unlock()

	r.bus.Emit(out)
	if loaded {
		r.logger.Infof("Model %s loaded", id)
	} else {
		r.logger.Infof("Model %s unloaded", id)
	}
	return true, nil
}

// SetDefaultModel marks a single model as the default and persists the
// choice. Exactly zero or one model carries the flag at any time.
func (r *ModelRegistry) SetDefaultModel(id string) error {
	r.mu.Lock()
	found := false
	for i := range r.models {
		if r.models[i].ID == id {
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return &NotFoundError{ModelID: id}
	}

	for i := range r.models {
		r.models[i].IsDefault = r.models[i].ID == id
	}
	snapshot := copyModels(r.models)
	r.mu.Unlock()

	if err := r.settings.SaveDefaultModel(id); err != nil {
		r.logger.Warnf("Failed to persist default model choice: %v", err)
	}

	r.bus.Emit(snapshot)
	r.logger.Infof("Default model set to %s", id)
	return nil
}

// StartDiscovery refreshes the catalog on a fixed interval until the
// context is cancelled. The first refresh runs immediately rather than
// after the first interval.
func (r *ModelRegistry) StartDiscovery(ctx context.Context, interval time.Duration) {
	go func() {
		if _, err := r.Refresh(ctx, false); err != nil {
			r.logger.Warnf("Initial model discovery failed: %v", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Refresh(ctx, false); err != nil {
					r.logger.Warnf("Periodic model discovery failed: %v", err)
				}
			}
		}
	}()
}
