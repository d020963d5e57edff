package server

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// startWatcher initializes filesystem monitoring for the versions
// directory. New, edited, or deleted migration scripts trigger a graph
// refresh, debounced so a burst of events costs one rebuild.
func (s *Server) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(s.project.VersionsDir); err != nil {
		watcher.Close()
		return err
	}

	s.wg.Add(1)
	go s.watchLoop(watcher)

	log.Printf("[+] Watching %s for migration changes", s.project.VersionsDir)
	return nil
}

func (s *Server) watchLoop(watcher *fsnotify.Watcher) {
	defer s.wg.Done()
	defer watcher.Close()

	var debounceTimer *time.Timer

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if shouldIgnoreEvent(event) {
				continue
			}

			log.Printf("Change detected: %s", filepath.Base(event.Name))

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(s.debounce, s.Refresh)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

// shouldIgnoreEvent filters events that cannot change the graph: only
// migration scripts matter, and editors produce plenty of noise around
// them (swap files, bytecode caches, bare chmods).
func shouldIgnoreEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	if !strings.HasSuffix(base, ".py") {
		return true
	}
	if strings.HasPrefix(base, ".") || strings.Contains(event.Name, "__pycache__") {
		return true
	}

	return false
}
