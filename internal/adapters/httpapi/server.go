package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"checkin/internal/domain/entities"
	"checkin/internal/ports/input"
	"checkin/internal/ports/output"
)

// Options tune the router for the deployment mode.
type Options struct {
	// Dev enables permissive CORS and websocket origins for a local front end.
	Dev            bool
	AllowedOrigins []string
}

// Server exposes the roster over HTTP and streams every published snapshot
// to websocket clients.
type Server struct {
	roster input.RosterUseCase
	tr     output.ErrorTranslator
	hub    *Hub
	opts   Options
	unsub  func()
}

func NewServer(roster input.RosterUseCase, tr output.ErrorTranslator, opts Options) *Server {
	s := &Server{roster: roster, tr: tr, hub: NewHub(), opts: opts}
	go s.hub.Run()
	s.unsub = roster.Subscribe(s.publish)
	return s
}

// snapshot is the websocket message and the body of GET /roster.
type snapshot struct {
	Attendees entities.Roster    `json:"attendees"`
	Stats     entities.Stats     `json:"stats"`
	Source    input.SourceStatus `json:"source"`
}

func (s *Server) publish(r entities.Roster) {
	data, err := json.Marshal(snapshot{Attendees: r, Stats: entities.ComputeStats(r), Source: s.roster.Status()})
	if err != nil {
		log.Printf("❌ WebSocket: encodage du roster impossible: %v", err)
		return
	}
	s.hub.Broadcast(data)
}

// Close stops streaming and disconnects websocket clients.
func (s *Server) Close() {
	s.unsub()
	s.hub.Stop()
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if s.opts.Dev {
		origins := s.opts.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000", "http://localhost:5173"}
		}
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept-Language"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api/v1")
	RegisterRoutes(api, s)
	api.GET("/ws", func(c *gin.Context) {
		s.hub.serveWS(c.Writer, c.Request, !s.opts.Dev)
	})
	return r
}
