package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events a single save produces.
const reloadDebounce = 100 * time.Millisecond

// watchModels swaps in a new predictor whenever a model bundle is written
// to the watched directory. A bundle that fails to load leaves the current
// predictor in place.
func (s *Server) watchModels(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create model watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.cfg.WatchDir); err != nil {
		s.logger.Error("failed to watch models directory", "dir", s.cfg.WatchDir, "error", err)
		// Keep serving without reloads.
		<-ctx.Done()
		return nil
	}
	s.logger.Info("watching for new models", "dir", s.cfg.WatchDir)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Ext(event.Name) != ".gob" {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(reloadDebounce, func() {
				s.reload(name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("model watcher error", "error", err)
		}
	}
}

func (s *Server) reload(trigger string) {
	p, err := s.cfg.Reload()
	if err != nil {
		s.metrics.reloads.WithLabelValues("failed").Inc()
		s.logger.Error("model reload failed, keeping current model", "file", trigger, "error", err)
		return
	}
	s.predictor.Store(p)
	s.metrics.reloads.WithLabelValues("ok").Inc()
	name := ""
	if b := p.Bundle(); b != nil {
		name = b.Name
	}
	s.logger.Info("model reloaded", "file", trigger, "model", name)
}
