package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"github.com/migvista/migvista/internal/alembic"
	"github.com/migvista/migvista/internal/graph"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The server only binds localhost; any page served from it may connect.
		return true
	},
}

type MessageType string

const (
	MessageTypeGraph     MessageType = "graph"
	MessageTypeError     MessageType = "error"
	MessageTypeRefreshed MessageType = "refreshed"
	MessageTypeScript    MessageType = "script"
)

// UpdateMessage is one push to the visualization.
type UpdateMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Commander is the migration command surface the visualization can
// trigger. The production implementation is *alembic.Runner.
type Commander interface {
	Upgrade(ctx context.Context, revision string) error
	Downgrade(ctx context.Context, revision string) error
	Stamp(ctx context.Context, revision string) error
}

// Server owns the revision graph cache, the websocket clients, and the
// refresh pipeline. The graph is rebuilt wholesale on every refresh;
// there is no incremental update.
type Server struct {
	project   *alembic.Project
	source    alembic.Source
	commander Commander
	port      string
	webDir    string
	debounce  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cacheMu sync.RWMutex
	cached  *graph.Graph

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool
	broadcast chan UpdateMessage

	refreshes singleflight.Group

	// opMu serializes migration commands and script rewrites against
	// refreshes: a refresh must never read CLI output produced while a
	// mutation is mid-flight against the same artifact.
	opMu sync.Mutex
}

// Options configures a Server beyond its collaborators.
type Options struct {
	Port     string
	WebDir   string
	Debounce time.Duration
}

func NewServer(project *alembic.Project, source alembic.Source, commander Commander, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	return &Server{
		project:   project,
		source:    source,
		commander: commander,
		port:      opts.Port,
		webDir:    opts.WebDir,
		debounce:  opts.Debounce,
		ctx:       ctx,
		cancel:    cancel,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan UpdateMessage, 256),
	}
}

// Start builds the initial graph, begins watching the versions
// directory, and serves until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.webDir)))

	// REST snapshots for initial page load and debugging.
	mux.HandleFunc("/api/info", s.handleInfo)
	mux.HandleFunc("/api/graph", s.handleGraph)

	mux.HandleFunc("/api/ws", s.handleWebSocket)

	s.wg.Add(1)
	go s.handleBroadcast()

	s.Refresh()

	if err := s.startWatcher(); err != nil {
		return err
	}

	return http.ListenAndServe(":"+s.port, mux)
}

// Stop cancels the background goroutines and waits for them to exit.
func (s *Server) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"name":        s.project.Name(),
		"root":        s.project.Root,
		"versionsDir": s.project.VersionsDir,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.cacheMu.RLock()
	cached := s.cached
	s.cacheMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cached)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s.clientsMu.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("WebSocket client connected. Total clients: %d", total)

	s.sendInitialState(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.clientsMu.Lock()
			delete(s.clients, conn)
			total := len(s.clients)
			s.clientsMu.Unlock()
			log.Printf("WebSocket client disconnected. Total clients: %d", total)
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.broadcastUpdate(MessageTypeError, "malformed command: "+err.Error())
			continue
		}
		s.dispatchCommand(cmd)
	}
}

// sendInitialState pushes the cached graph to a newly connected client.
func (s *Server) sendInitialState(conn *websocket.Conn) {
	s.cacheMu.RLock()
	cached := s.cached
	s.cacheMu.RUnlock()

	if cached == nil {
		return
	}
	msg := UpdateMessage{Type: string(MessageTypeGraph), Data: cached}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending initial state: %v", err)
	}
}

// handleBroadcast fans queued messages out to all connected clients.
func (s *Server) handleBroadcast() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			s.clientsMu.Lock()
			for client := range s.clients {
				if err := client.WriteJSON(msg); err != nil {
					log.Printf("Error broadcasting to client: %v", err)
					delete(s.clients, client)
					client.Close()
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

// broadcastUpdate queues a push to all connected clients without
// blocking the caller.
func (s *Server) broadcastUpdate(msgType MessageType, data interface{}) {
	msg := UpdateMessage{
		Type: string(msgType),
		Data: data,
	}

	select {
	case s.broadcast <- msg:
	default:
		log.Println("Broadcast channel full, dropping message")
	}
}
