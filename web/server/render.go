package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"strings"

	"github.com/df07/go-weekend-raytracer/pkg/core"
	"github.com/df07/go-weekend-raytracer/pkg/output"
	"github.com/df07/go-weekend-raytracer/pkg/renderer"
	"github.com/df07/go-weekend-raytracer/pkg/scene"
)

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene   string // Scene name (e.g., "final")
	Width   int    // Image width; height follows from the scene aspect ratio
	Samples int    // Samples per pixel
	Depth   int    // Maximum ray bounce depth
	Seed    int64  // Seed for scene content and sampling
	Format  string // "ppm" or "png"; only used by /api/render
}

// Stats represents render statistics
type Stats struct {
	TotalPixels  int   `json:"totalPixels"`
	TotalSamples int   `json:"totalSamples"`
	Rows         int   `json:"rows"`
	Workers      int   `json:"workers"`
	ElapsedMs    int64 `json:"elapsedMs"`
}

// CompleteEvent is the final event of a streamed render
type CompleteEvent struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	ImageData string `json:"imageData"` // Base64 encoded PNG
	Stats     Stats  `json:"stats"`
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// RenderingPipeline contains the configured scene and raytracer
type RenderingPipeline struct {
	Scene     *scene.Scene
	Raytracer *renderer.Raytracer
}

// parseRenderRequest parses request parameters. Numeric parameters default
// to the scene's own camera settings.
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	query := r.URL.Query()
	req := &RenderRequest{Scene: query.Get("scene")}
	if req.Scene == "" {
		req.Scene = defaultScene
	}

	var err error
	if req.Seed, err = parseInt64Param(query, "seed", 42); err != nil {
		return nil, err
	}

	sceneObj, err := scene.New(req.Scene, req.Seed)
	if err != nil {
		return nil, err
	}
	defaults := sceneObj.CameraConfig

	if req.Width, err = parseIntParam(query, "width", defaults.Width); err != nil {
		return nil, err
	}
	if req.Samples, err = parseIntParam(query, "samples", defaults.SamplesPerPixel); err != nil {
		return nil, err
	}
	if req.Depth, err = parseIntParam(query, "depth", defaults.MaxDepth); err != nil {
		return nil, err
	}

	req.Format = strings.ToLower(query.Get("format"))
	if req.Format == "" {
		req.Format = "ppm"
	}
	if !isFormat(req.Format) {
		return nil, fmt.Errorf("%w: %q (available: %s)", output.ErrUnknownFormat, req.Format, strings.Join(output.Formats(), ", "))
	}

	if req.Width*req.Samples > 400*1000 {
		log.Printf("Render warning: %d pixels wide at %d samples may render slowly", req.Width, req.Samples)
	}

	return req, nil
}

// setupRenderingPipeline creates and configures the scene and raytracer
func (s *Server) setupRenderingPipeline(req *RenderRequest, logger core.Logger, reportProgress bool) (*RenderingPipeline, error) {
	sceneObj, err := scene.New(req.Scene, req.Seed)
	if err != nil {
		return nil, err
	}

	// Set directly rather than merging so that a depth of 0 is honoured
	sceneObj.CameraConfig.Width = req.Width
	sceneObj.CameraConfig.SamplesPerPixel = req.Samples
	sceneObj.CameraConfig.MaxDepth = req.Depth

	camera, err := sceneObj.NewCamera()
	if err != nil {
		return nil, err
	}

	logger.Printf("Rendering %s: %d shapes, %dx%d, %d samples, depth %d\n",
		sceneObj.Name, sceneObj.GetPrimitiveCount(), camera.Width(), camera.Height(), req.Samples, req.Depth)

	raytracer := renderer.NewRaytracer(camera, sceneObj.World, renderer.RenderOptions{
		Seed:           req.Seed,
		NumWorkers:     s.numWorkers,
		ReportProgress: reportProgress,
	}, logger)

	return &RenderingPipeline{Scene: sceneObj, Raytracer: raytracer}, nil
}

// handleRender streams the rendered image itself. PPM rows are flushed to
// the client as soon as they are ready; PNG is sent once complete.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	renderID := s.nextRenderID()
	logger := NewWebLogger(renderID, nil)

	pipeline, err := s.setupRenderingPipeline(req, logger, false)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	writer, err := output.NewWriter(req.Format, w)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType(req.Format))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Render-Id", renderID)

	// Cancelled when the client disconnects
	stats, err := pipeline.Raytracer.Render(r.Context(), writer)
	if err != nil {
		// Part of the image may already be on the wire, so the status
		// cannot change any more
		logger.Printf("Render aborted after %d rows: %v\n", stats.Rows, err)
		return
	}
	logger.Printf("Render completed: %s\n", stats)
}

func isFormat(name string) bool {
	for _, f := range output.Formats() {
		if f == name {
			return true
		}
	}
	return false
}

func contentType(format string) string {
	if format == "png" {
		return "image/png"
	}
	return "image/x-portable-pixmap"
}

// handleRenderStream renders with console progress delivered via SSE and
// finishes with the image as a base64 PNG
func (s *Server) handleRenderStream(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)
	ctx := r.Context()

	// Create unified SSE event channel for thread-safe writing
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSSEEvents(ctx, w, sseEventChan)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Invalid request: %v", err))
		return
	}

	consoleChan, logger := s.setupConsoleLogging()
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		s.streamConsoleMessages(ctx, consoleChan, sseEventChan)
	}()

	complete, err := s.renderToEvent(ctx, req, logger)

	// Every log line has been queued; let the console stream drain
	close(consoleChan)
	<-consoleDone

	if err != nil {
		s.sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Render error: %v", err))
		return
	}

	data, err := json.Marshal(complete)
	if err != nil {
		s.sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Encoding result: %v", err))
		return
	}
	s.sendEvent(ctx, sseEventChan, "complete", string(data))
}

// renderToEvent runs a whole render and packages the result
func (s *Server) renderToEvent(ctx context.Context, req *RenderRequest, logger core.Logger) (*CompleteEvent, error) {
	pipeline, err := s.setupRenderingPipeline(req, logger, true)
	if err != nil {
		return nil, err
	}

	img, stats, err := pipeline.Raytracer.RenderImage(ctx)
	if err != nil {
		return nil, err
	}

	imageData, err := s.imageToBase64PNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &CompleteEvent{
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		ImageData: imageData,
		Stats: Stats{
			TotalPixels:  stats.TotalPixels,
			TotalSamples: stats.TotalSamples,
			Rows:         stats.Rows,
			Workers:      stats.Workers,
			ElapsedMs:    stats.Elapsed.Milliseconds(),
		},
	}, nil
}

func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// setupConsoleLogging creates console channel and web logger for a render
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, core.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	webLogger := NewWebLogger(s.nextRenderID(), consoleChan)
	return consoleChan, webLogger
}

// sendEvent queues an event unless the client has gone away
func (s *Server) sendEvent(ctx context.Context, sseEventChan chan SSEEvent, eventType, data string) {
	select {
	case sseEventChan <- SSEEvent{Type: eventType, Data: data}:
	case <-ctx.Done():
	}
}

// writeSSEEvents handles writing all SSE events in a single goroutine (thread-safe)
func (s *Server) writeSSEEvents(ctx context.Context, w http.ResponseWriter, sseEventChan chan SSEEvent) {
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				// Channel closed
				return
			}

			// Write SSE event
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				// Client disconnected during write
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}
}

// streamConsoleMessages forwards console messages as SSE events until
// consoleChan is closed
func (s *Server) streamConsoleMessages(ctx context.Context, consoleChan chan ConsoleMessage, sseEventChan chan SSEEvent) {
	for {
		select {
		case consoleMsg, ok := <-consoleChan:
			if !ok {
				// Channel closed
				return
			}

			data, err := json.Marshal(consoleMsg)
			if err != nil {
				log.Printf("Error marshaling console message: %v", err)
				continue
			}

			select {
			case sseEventChan <- SSEEvent{Type: "console", Data: string(data)}:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip message to avoid blocking
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}
}

// imageToBase64PNG converts an image to base64-encoded PNG
func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
