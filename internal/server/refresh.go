package server

import (
	"log"
	"time"

	"github.com/migvista/migvista/internal/alembic"
	"github.com/migvista/migvista/internal/graph"
)

// Refresh rebuilds the revision graph and pushes it to all clients.
// Concurrent triggers (file-change bursts, command completions, client
// requests) are coalesced through singleflight so at most one rebuild
// is in flight at a time.
func (s *Server) Refresh() {
	s.refreshes.Do("refresh", func() (interface{}, error) {
		s.refreshOnce()
		return nil, nil
	})
}

// refreshOnce issues the three CLI requests in sequence, rebuilds the
// graph, publishes it, and acknowledges with a timestamp. A failure in
// any request aborts the refresh; no partial graph is ever published.
func (s *Server) refreshOnce() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	history, err := s.source.HistoryVerbose(s.ctx)
	if err != nil {
		s.reportRefreshError(err)
		return
	}
	current, err := s.source.Current(s.ctx)
	if err != nil {
		s.reportRefreshError(err)
		return
	}
	heads, err := s.source.Heads(s.ctx)
	if err != nil {
		s.reportRefreshError(err)
		return
	}

	records := alembic.ParseHistory(history)
	built := graph.Build(records, alembic.ParseRevisionSet(current), alembic.ParseRevisionSet(heads))

	s.cacheMu.Lock()
	s.cached = built
	s.cacheMu.Unlock()

	s.broadcastUpdate(MessageTypeGraph, built)
	s.broadcastUpdate(MessageTypeRefreshed, time.Now().Format(time.RFC3339))
	log.Printf("Graph refreshed: %d revisions", len(built.Nodes))
}

func (s *Server) reportRefreshError(err error) {
	log.Printf("Refresh failed: %v", err)
	s.broadcastUpdate(MessageTypeError, err.Error())
}

// Graph returns the last successfully built graph, nil before the
// first refresh completes.
func (s *Server) Graph() *graph.Graph {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cached
}
