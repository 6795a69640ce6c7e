// Package webapp serves the interactive staging form: three bounded
// sliders in, predicted severity stage with per-class probabilities out.
package webapp

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/internal/pipeline"
	kclog "github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server wraps the HTTP server around one loaded model artifact.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// New loads the artifact from modelPath and builds the server on addr.
func New(addr, modelPath string, log *slog.Logger) (*Server, error) {
	artifact, err := pipeline.LoadArtifact(modelPath)
	if err != nil {
		return nil, err
	}
	log.Info("model artifact loaded",
		kclog.PathKey, modelPath,
		kclog.RunIDKey, artifact.RunID,
		kclog.ModelNameKey, "RandomForestClassifier")

	router := NewRouter(artifact, log)
	return &Server{
		httpServer: &http.Server{
			Addr:           addr,
			Handler:        router,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		log: log,
	}, nil
}

// NewRouter builds the gin engine serving the form for a loaded artifact.
func NewRouter(artifact *pipeline.Artifact, log *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), requestLogger(log))

	router.SetHTMLTemplate(template.Must(
		template.ParseFS(templateFS, "templates/*.html")))

	h := NewHandler(artifact, log)
	router.GET("/", h.Index)
	router.GET("/health", h.Health)
	router.POST("/predict", h.Predict)
	return router
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

const requestIDKey = "request_id"

// requestIDMiddleware tags every request with a UUID, echoed in the
// X-Request-ID response header.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestLogger logs one line per request with method, path, status and
// latency.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			kclog.RequestIDKey, requestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			kclog.DurationMsKey, time.Since(start).Milliseconds())
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
