package config

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"jucket/storage"
)

// Listener is called with the new settings and resolved theme after every
// reload.
type Listener func(cfg Config, theme Theme)

// Provider caches the current settings and tells subscribers when they are
// reloaded. Consumers call Refresh after their own writes; writes by other
// processes arrive through Watch.
type Provider struct {
	store       Storage
	prefersDark func() bool
	logger      *zap.Logger

	mu        sync.RWMutex
	current   Config
	theme     Theme
	nextID    int
	listeners map[int]Listener
}

// NewProvider loads the stored settings once.
func NewProvider(store Storage, prefersDark func() bool, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		store:       store,
		prefersDark: prefersDark,
		logger:      logger,
		listeners:   make(map[int]Listener),
	}
	p.current = Load(store, logger)
	p.theme = ResolveTheme(p.current.Theme, prefersDark)
	return p
}

// Current returns the cached settings.
func (p *Provider) Current() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Theme returns the theme resolved at the last reload.
func (p *Provider) Theme() Theme {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.theme
}

// Refresh re-reads storage, re-resolves the theme and notifies subscribers.
func (p *Provider) Refresh() Config {
	cfg := Load(p.store, p.logger)
	theme := ResolveTheme(cfg.Theme, p.prefersDark)

	p.mu.Lock()
	p.current = cfg
	p.theme = theme
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	p.logger.Debug("Config reloaded",
		zap.String("theme", string(cfg.Theme)),
		zap.String("resolved_theme", string(theme)),
		zap.Bool("auto_skip", cfg.AutoSkip))

	for _, l := range listeners {
		l(cfg, theme)
	}
	return cfg
}

// Save stores cfg. Subscribers are not notified until Refresh is called or
// the storage watch reports the write.
func (p *Provider) Save(cfg Config) error {
	return Save(p.store, cfg)
}

// Subscribe registers fn for reload notifications. The returned function
// removes it.
func (p *Provider) Subscribe(fn Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Watch refreshes the provider whenever the config key changes in the
// storage directory. It blocks until ctx is done or the change stream ends.
func (p *Provider) Watch(ctx context.Context, changes <-chan storage.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}
			if ch.Key != StorageKey {
				continue
			}
			p.Refresh()
		}
	}
}
