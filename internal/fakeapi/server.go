// Package fakeapi is an in-memory camera-trap server used by tests. It
// serves the same REST, SSE and MJPEG routes as the real monitoring server.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"camtrap-cli/pkg/models"
)

const (
	latestCount    = 5
	frameBoundary  = "frame"
	streamBuffered = 16
)

type streamClient struct {
	id     string
	notify chan struct{}
	drop   chan struct{}
}

type Server struct {
	URL  string
	Echo *echo.Echo
	http *httptest.Server

	mu         sync.Mutex
	cameras    models.CameraDirectory
	detections []models.Detection
	captures   map[string][]byte
	frames     [][]byte

	detectionsStatus int // non-zero makes /api/detections fail with this status
	summaryStatus    int
	latestStatus     int
	streamStatus     int
	feedStatus       int

	streams      map[string]*streamClient
	streamOpens  atomic.Int32
	feedRequests atomic.Int32
	detectionReq atomic.Int32
}

// New starts the server. Close it with t.Cleanup(srv.Close).
func New() *Server {
	s := &Server{
		cameras:  models.CameraDirectory{},
		captures: map[string][]byte{},
		streams:  map[string]*streamClient{},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/api/camaras", s.getCameras)
	e.POST("/api/guardar_camara", s.saveCamera)
	e.POST("/api/camaras/:id/delete", s.deleteCamera)
	e.POST("/api/camaras/:id/set_device", s.setDevice)
	e.GET("/api/detections", s.getDetections)
	e.GET("/api/todos_registros", s.getAll)
	e.GET("/api/ultimos_registros", s.getLatest)
	e.GET("/api/dashboard_stats", s.getStats)
	e.GET("/api/species", s.getSpecies)
	e.GET("/api/summary", s.getSummary)
	e.GET("/api/stream", s.stream)
	e.GET("/video_feed_cam/:id", s.videoFeed)
	e.GET("/captures/*", s.getCapture)

	s.Echo = e
	s.http = httptest.NewServer(e)
	s.URL = s.http.URL
	return s
}

func (s *Server) Close() {
	s.DropStreams()
	s.http.CloseClientConnections()
	s.http.Close()
}

// --- state setup ---

func (s *Server) SetCameras(dir models.CameraDirectory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = dir.Clone()
}

func (s *Server) Cameras() models.CameraDirectory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameras.Clone()
}

func (s *Server) SetDetections(d []models.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections = append([]models.Detection(nil), d...)
}

// AddDetection appends a record and notifies every live stream, like the
// real server does when its records file changes.
func (s *Server) AddDetection(d models.Detection) {
	s.mu.Lock()
	s.detections = append(s.detections, d)
	s.mu.Unlock()
	s.Notify()
}

func (s *Server) SetCapture(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures[path] = data
}

// SetFrames sets the JPEG frames each video feed request sends before ending.
func (s *Server) SetFrames(frames ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
}

// FailDetections makes /api/detections answer with status; 0 restores success.
func (s *Server) FailDetections(status int) { s.setStatus(&s.detectionsStatus, status) }
func (s *Server) FailSummary(status int)    { s.setStatus(&s.summaryStatus, status) }
func (s *Server) FailLatest(status int)     { s.setStatus(&s.latestStatus, status) }
func (s *Server) FailStream(status int)     { s.setStatus(&s.streamStatus, status) }
func (s *Server) FailFeed(status int)       { s.setStatus(&s.feedStatus, status) }

func (s *Server) setStatus(field *int, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*field = status
}

func (s *Server) status(field *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *field
}

// --- live stream control ---

// Notify sends one update event to every connected stream.
func (s *Server) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.streams {
		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
}

// DropStreams ends every open SSE connection from the server side.
func (s *Server) DropStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.streams {
		close(c.drop)
		delete(s.streams, id)
	}
}

// Streams returns the number of connected SSE clients.
func (s *Server) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// StreamOpens counts SSE connections ever accepted.
func (s *Server) StreamOpens() int { return int(s.streamOpens.Load()) }

// FeedRequests counts video feed requests, failed ones included.
func (s *Server) FeedRequests() int { return int(s.feedRequests.Load()) }

// DetectionRequests counts /api/detections requests, failed ones included.
func (s *Server) DetectionRequests() int { return int(s.detectionReq.Load()) }

// --- handlers ---

func (s *Server) getCameras(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Cameras())
}

func (s *Server) saveCamera(c echo.Context) error {
	var p models.SaveCameraPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, models.APIResult{Error: err.Error()})
	}

	id := p.ID
	if id == "" {
		id = strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	s.mu.Lock()
	s.cameras[id] = models.Camera{
		Name:   p.Name,
		Lat:    models.NewCoord(p.Lat),
		Lon:    models.NewCoord(p.Lon),
		Device: models.NewDevice(p.Device),
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, models.APIResult{Status: "ok"})
}

func (s *Server) deleteCamera(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cameras[id]; !ok {
		return c.JSON(http.StatusNotFound, models.APIResult{Error: "not_found"})
	}
	delete(s.cameras, id)
	return c.JSON(http.StatusOK, models.APIResult{Success: true})
}

func (s *Server) setDevice(c echo.Context) error {
	var p models.SetDevicePayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, models.APIResult{Error: err.Error()})
	}

	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	cam, ok := s.cameras[id]
	if !ok {
		return c.JSON(http.StatusNotFound, models.APIResult{Error: "camera_not_found"})
	}
	cam.Device = models.NewDevice(p.Device)
	s.cameras[id] = cam
	return c.JSON(http.StatusOK, models.APIResult{Success: true})
}

func (s *Server) getDetections(c echo.Context) error {
	s.detectionReq.Add(1)
	if st := s.status(&s.detectionsStatus); st != 0 {
		return c.String(st, "<html><body><h1>Internal Server Error</h1></body></html>")
	}

	start, end, species := c.QueryParam("start"), c.QueryParam("end"), c.QueryParam("species")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Detection{}
	for _, d := range s.detections {
		if start != "" && d.Date < start {
			continue
		}
		if end != "" && d.Date > end {
			continue
		}
		if species != "" && d.Species != species {
			continue
		}
		d.Confidence = models.Confidence{}
		out = append(out, d)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getAll(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, append([]models.Detection{}, s.detections...))
}

func (s *Server) getLatest(c echo.Context) error {
	if st := s.status(&s.latestStatus); st != 0 {
		return c.JSON(st, map[string]string{"error": "latest unavailable"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Detection{}
	for i := len(s.detections) - 1; i >= 0 && len(out) < latestCount; i-- {
		out = append(out, s.detections[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) speciesCounts() models.SpeciesCounts {
	counts := models.SpeciesCounts{}
	for _, d := range s.detections {
		counts[d.Species]++
	}
	return counts
}

func (s *Server) getStats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.speciesCounts())
}

func (s *Server) getSpecies(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for sp := range s.speciesCounts() {
		out = append(out, sp)
	}
	sort.Strings(out)
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getSummary(c echo.Context) error {
	if st := s.status(&s.summaryStatus); st != 0 {
		return c.JSON(st, map[string]string{"error": "summary unavailable"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sum := models.Summary{
		Total:         len(s.detections),
		SpeciesCount:  len(s.speciesCounts()),
		CamerasActive: len(s.cameras),
	}
	if n := len(s.detections); n > 0 {
		last := s.detections[n-1].Timestamp()
		sum.LastDetection = &last
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) stream(c echo.Context) error {
	if st := s.status(&s.streamStatus); st != 0 {
		return c.String(st, "stream unavailable")
	}

	client := &streamClient{
		id:     uuid.NewString(),
		notify: make(chan struct{}, streamBuffered),
		drop:   make(chan struct{}),
	}
	s.mu.Lock()
	s.streams[client.id] = client
	s.mu.Unlock()
	s.streamOpens.Add(1)

	defer func() {
		s.mu.Lock()
		if _, ok := s.streams[client.id]; ok {
			delete(s.streams, client.id)
		}
		s.mu.Unlock()
	}()

	res := c.Response()
	res.Header().Set("Content-Type", "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	payload, _ := json.Marshal(map[string]string{"type": "update"})
	for {
		select {
		case <-client.notify:
			if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
				return nil
			}
			res.Flush()
		case <-client.drop:
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

func (s *Server) videoFeed(c echo.Context) error {
	s.feedRequests.Add(1)
	if st := s.status(&s.feedStatus); st != 0 {
		return c.String(st, "camera unavailable")
	}

	s.mu.Lock()
	frames := s.frames
	s.mu.Unlock()

	res := c.Response()
	res.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+frameBoundary)
	res.WriteHeader(http.StatusOK)
	for _, f := range frames {
		fmt.Fprintf(res, "--%s\r\nContent-Type: image/jpeg\r\n\r\n", frameBoundary)
		res.Write(f)
		fmt.Fprint(res, "\r\n")
		res.Flush()
	}
	fmt.Fprintf(res, "--%s--\r\n", frameBoundary)
	return nil
}

func (s *Server) getCapture(c echo.Context) error {
	path := c.Param("*")
	s.mu.Lock()
	data, ok := s.captures[path]
	s.mu.Unlock()
	if !ok {
		return c.String(http.StatusNotFound, "<h1>Not Found</h1>")
	}
	return c.Blob(http.StatusOK, "image/jpeg", data)
}
