package ipc

import (
	"context"
	"log/slog"

	"github.com/barysiuk/mcplink/internal/core"
)

// ServerStore is the part of core.ConfigStore the service exposes.
type ServerStore interface {
	Get(ctx context.Context) (map[string]core.ServerLaunchSpec, error)
	Delete(ctx context.Context, name string) error
}

// Watcher is the part of core.ConfigWatcher the service drives.
type Watcher interface {
	Watch(fn func(core.WatchEvent)) (func(), error)
}

// Service binds the core components to the bus: it answers the request
// channels from the store and republishes watcher events on their topics.
type Service struct {
	bus    *Bus
	store  ServerStore
	logger *slog.Logger
}

// NewService registers the request handlers on bus.
func NewService(bus *Bus, store ServerStore, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{bus: bus, store: store, logger: logger}

	if err := Handle(bus, GetServers, s.getServers); err != nil {
		return nil, err
	}
	if err := Handle(bus, DeleteServer, s.deleteServer); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) getServers(ctx context.Context, _ Empty) (map[string]core.ServerLaunchSpec, error) {
	servers, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Warn("get-servers failed", "err", err)
		return nil, err
	}
	return servers, nil
}

func (s *Service) deleteServer(ctx context.Context, req DeleteServerRequest) (Empty, error) {
	if err := s.store.Delete(ctx, req.ServerName); err != nil {
		s.logger.Warn("delete-server failed", "server", req.ServerName, "err", err)
		return Empty{}, err
	}
	s.logger.Info("server removed", "server", req.ServerName)
	return Empty{}, nil
}

// StartWatching forwards watcher events to the ConfigChanged and
// WatchError topics until the returned cancel function is called.
func (s *Service) StartWatching(w Watcher) (func(), error) {
	return w.Watch(func(ev core.WatchEvent) {
		switch ev.Kind {
		case core.WatchConfigChanged:
			Publish(s.bus, ConfigChanged, ConfigChangedEvent{Document: ev.Document})
		case core.WatchFailed:
			Publish(s.bus, WatchError, WatchErrorEvent{Message: ev.Message})
		}
	})
}
