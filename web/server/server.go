package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/df07/go-weekend-raytracer/pkg/scene"
)

// paramLimit is the accepted range of a numeric query parameter
type paramLimit struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

var limits = map[string]paramLimit{
	"width":   {Min: 1, Max: 2000},
	"samples": {Min: 1, Max: 10000},
	"depth":   {Min: 0, Max: 1000},
	"x":       {Min: 0, Max: 1999},
	"y":       {Min: 0, Max: 1999},
}

// defaultScene is rendered when a request names none
const defaultScene = "materials"

// Server handles web requests for the raytracer
type Server struct {
	port        int
	numWorkers  int
	renderCount atomic.Int64
}

// NewServer creates a new web server. Renders use one worker per CPU.
func NewServer(port int) *Server {
	return &Server{port: port, numWorkers: runtime.NumCPU()}
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/scenes", s.handleScenes)
	mux.HandleFunc("GET /api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("GET /api/render", s.handleRender)
	mux.HandleFunc("GET /api/render/stream", s.handleRenderStream)
	mux.HandleFunc("GET /api/inspect", s.handleInspect)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// nextRenderID returns a process-unique render identifier for log lines
func (s *Server) nextRenderID() string {
	return fmt.Sprintf("render-%d", s.renderCount.Add(1))
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes with their camera defaults
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scenes":       scene.List(),
		"defaultScene": defaultScene,
		"limits":       limits,
	})
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = defaultScene
	}

	sceneObj, err := scene.New(sceneName, 0)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scene":    sceneObj.Name,
		"shapes":   sceneObj.GetPrimitiveCount(),
		"defaults": sceneObj.CameraConfig,
		"limits":   limits,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseIntParam parses an integer parameter from URL query with validation
// against its entry in limits
func parseIntParam(values url.Values, key string, defaultValue int) (int, error) {
	value := values.Get(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, value)
	}
	if limit, ok := limits[key]; ok && (int64(parsed) < limit.Min || int64(parsed) > limit.Max) {
		return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, limit.Min, limit.Max, parsed)
	}
	return parsed, nil
}

// parseInt64Param parses an unbounded 64-bit integer parameter
func parseInt64Param(values url.Values, key string, defaultValue int64) (int64, error) {
	value := values.Get(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, value)
	}
	return parsed, nil
}
