package wsfanout

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server registers the agent's WebSocket channels on an *http.ServeMux.
type Server struct {
	log   *zap.Logger
	tasks *TasksChannel
}

// NewServer returns a Server exposing the given channels.
func NewServer(log *zap.Logger, tasks *TasksChannel) *Server {
	return &Server{log: log, tasks: tasks}
}

// Register mounts every channel's endpoint on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws/tasks", s.serveTasks)
}

func (s *Server) serveTasks(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("tasks websocket upgrade failed", zap.Error(err))
		return
	}
	go s.tasks.HandleConnection(conn)
}
