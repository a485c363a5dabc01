package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/janelia-flyem/segeval/core"
	"github.com/janelia-flyem/segeval/labels"
	"github.com/janelia-flyem/segeval/storage"

	"github.com/rs/cors"
	"github.com/twinj/uuid"
	"github.com/zenazn/goji/web"
	"github.com/zenazn/goji/web/middleware"
)

const (
	jsonMIME    = "application/json"
	msgpackMIME = "application/x-msgpack"

	// maxRequestBytes limits the size of JSON request bodies.
	maxRequestBytes = 1 << 20
)

// Server handles segeval HTTP requests.
type Server struct {
	config          *Config
	handler         http.Handler
	publisher       *storage.Publisher
	cache           *storage.ResultCache
	authorizedUsers map[string]string
	started         time.Time
}

// New returns a server for the configuration, connecting to Kafka and creating a
// result cache if they are configured.
func New(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Server{
		config:  config,
		cache:   storage.NewResultCache(config.Cache.SizeMB, config.Cache.TTL.Duration),
		started: time.Now(),
	}
	var err error
	if s.authorizedUsers, err = loadAuthFile(config.Auth.AuthFile); err != nil {
		return nil, err
	}
	if s.publisher, err = storage.NewPublisher(config.Kafka); err != nil {
		return nil, fmt.Errorf("unable to start kafka publisher: %v", err)
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := web.New()
	mux.Use(middleware.EnvInit)
	mux.Use(middleware.Recoverer)
	mux.Use(logHTTP)
	mux.Get(WebAPIPath+"server/info", s.serverInfoHandler)

	secured := web.New()
	secured.Use(middleware.EnvInit)
	secured.Use(s.requireJWT)
	secured.Post(WebAPIPath+"match", s.matchHandler)
	secured.Post(WebAPIPath+"bbox", s.bboxHandler)
	mux.Handle(WebAPIPath+"*", secured)

	if len(s.config.Cors.Domains) == 0 {
		return mux
	}
	core.Infof("Allowing cross-origin requests from %s\n", strings.Join(s.config.Cors.Domains, ", "))
	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.Cors.Domains,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}

// ServeSingleHTTP handles one request; used by tests.
func (s *Server) ServeSingleHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Serve listens on the configured address until the context is canceled, then
// waits up to the shutdown delay for requests in progress.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.config.Server.HTTPAddress,
		Handler: s.handler,
	}
	errCh := make(chan error, 1)
	go func() {
		core.Infof("Web server listening at %s ...\n", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	delay := time.Duration(s.config.Server.ShutdownDelay) * time.Second
	core.Infof("Shutting down web server, waiting up to %s for requests to finish...\n", delay)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), delay)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close releases the Kafka connection.
func (s *Server) Close() error {
	return s.publisher.Close()
}

// logHTTP logs each request with its duration.
func logHTTP(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		h.ServeHTTP(w, r)
		core.Debugf("HTTP %s: %s (%s)\n", r.Method, r.URL, time.Since(t0))
	}
	return http.HandlerFunc(fn)
}

// BadRequest writes an error message with status 400 and logs it.
func BadRequest(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	httpError(w, r, http.StatusBadRequest, format, args...)
}

// Unauthorized writes an error message with status 401 and logs it.
func Unauthorized(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	httpError(w, r, http.StatusUnauthorized, format, args...)
}

func httpError(w http.ResponseWriter, r *http.Request, status int, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	errorMsg := fmt.Sprintf("%s (%s).", message, r.URL.Path)
	core.Errorf("%s\n", errorMsg)
	http.Error(w, errorMsg, status)
}

// errorStatus returns 400 for errors caused by inconsistent inputs and 500 otherwise.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, labels.ErrShapeMismatch),
		errors.Is(err, labels.ErrInvalidLabel),
		errors.Is(err, labels.ErrInvalidChannel),
		errors.Is(err, labels.ErrNoScores):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "unable to encode response: %v", err)
		return
	}
	w.Header().Set("Content-Type", jsonMIME)
	w.Write(data)
}

func wantsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), msgpackMIME)
}

// readRequest reads a JSON body, checks it against a schema and decodes it into v.
func readRequest(r *http.Request, validate func(interface{}) error, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxRequestBytes {
		return fmt.Errorf("request body larger than %s", core.Bytes(maxRequestBytes))
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("request is not valid JSON: %v", err)
	}
	if err := validate(raw); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	return dec.Decode(v)
}

// ServerInfo is the response to GET /api/server/info.
type ServerInfo struct {
	Version      string  `json:"version"`
	APIVersion   string  `json:"api_version"`
	Workers      int     `json:"workers"`
	Uptime       string  `json:"uptime"`
	Note         string  `json:"note,omitempty"`
	CacheEntries int64   `json:"cache_entries"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	KafkaTopic   string  `json:"kafka_topic,omitempty"`
	AuthRequired bool    `json:"auth_required"`
}

func (s *Server) serverInfoHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	info := ServerInfo{
		Version:      core.Version.String(),
		APIVersion:   core.APIVersion(),
		Workers:      s.config.Server.Workers,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		Note:         s.config.Server.Note,
		KafkaTopic:   s.publisher.Topic(),
		AuthRequired: s.config.Auth.SecretKey != "",
	}
	info.CacheEntries, info.CacheHitRate = s.cache.Stats()
	writeJSON(w, r, info)
}

// BoxRequest is the body of POST /api/bbox.
type BoxRequest struct {
	Volume string   `json:"volume"`
	IDs    []uint64 `json:"ids,omitempty"`
	Count  bool     `json:"count,omitempty"`
}

// BoxJSON is a bounding box with inclusive (z, y, x) corners.
type BoxJSON struct {
	ID    uint64 `json:"id"`
	Min   [3]int `json:"min"`
	Max   [3]int `json:"max"`
	Count uint64 `json:"count,omitempty"`
	Empty bool   `json:"empty,omitempty"`
}

func (s *Server) bboxHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	var req BoxRequest
	if err := readRequest(r, validateBoxRequest, &req); err != nil {
		BadRequest(w, r, "bad bbox request: %v", err)
		return
	}
	vol, err := storage.ReadLabels(r.Context(), req.Volume)
	if err != nil {
		BadRequest(w, r, "%v", err)
		return
	}
	boxes, err := labels.ComputeBoundingBoxes(vol, req.IDs, labels.BoxOptions{Count: req.Count})
	if err != nil {
		httpError(w, r, errorStatus(err), "%v", err)
		return
	}
	out := make([]BoxJSON, len(boxes))
	for i, b := range boxes {
		out[i] = BoxJSON{
			ID:    b.ID,
			Min:   [3]int{b.ZMin, b.YMin, b.XMin},
			Max:   [3]int{b.ZMax, b.YMax, b.XMax},
			Count: b.Count,
			Empty: b.Empty(),
		}
	}
	writeJSON(w, r, map[string]interface{}{"shape": vol.Shape(), "boxes": out})
}

// newRunID returns a unique id for an evaluation run.
func newRunID() string {
	return uuid.NewV4().String()
}
