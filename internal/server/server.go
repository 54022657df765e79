package server

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenthands/compat/internal/core"
	"github.com/agenthands/compat/internal/core/ingest"
	"github.com/agenthands/compat/internal/core/model"
)

const defaultMaxUploadBytes = 10 << 20

type Server struct {
	Engine *core.Engine
	// Gatherer backs /metrics. Nil disables the route.
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64

	logger *slog.Logger
}

func NewServer(engine *core.Engine, gatherer prometheus.Gatherer, maxUploadBytes int64, logger *slog.Logger) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		Engine:         engine,
		Gatherer:       gatherer,
		MaxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	if s.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}

	r.POST("/compatibility/upload", s.Upload)
	r.GET("/compatibility", s.ListRecords)
	r.GET("/compatibility/:productId", s.CompatibleProducts)
	r.GET("/missing", s.MissingProducts)
	r.GET("/widget/:productId", allowAnyOrigin(), s.Widget)

	r.GET("/settings", s.GetSettings)
	r.PATCH("/settings", s.UpdateSettings)

	r.GET("/catalog", s.ListCatalog)
	r.PUT("/catalog", s.ReplaceCatalog)
	r.POST("/catalog/refresh", s.RefreshCatalog)

	r.GET("/analytics", s.Analytics)
	r.GET("/template.csv", s.Template)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}

// allowAnyOrigin lets storefront pages on other domains call the widget endpoint.
func allowAnyOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type uploadResponse struct {
	core.UploadResult
	Error string `json:"error,omitempty"`
}

// Upload accepts either a multipart form with a "file" field or a raw CSV body.
func (s *Server) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxUploadBytes)

	body, closeBody, err := uploadBody(c)
	if err != nil {
		s.uploadReadError(c, err)
		return
	}
	defer closeBody()

	result, err := s.Engine.Upload(c.Request.Context(), body)
	if err != nil {
		var perr *model.PersistenceError
		if errors.As(err, &perr) {
			s.logger.Error("upload applied but not persisted", "upload_id", result.ID, "error", err)
			c.JSON(http.StatusOK, uploadResponse{UploadResult: result, Error: err.Error()})
			return
		}
		s.uploadReadError(c, err)
		return
	}

	if result.Status == core.StatusError {
		c.JSON(http.StatusUnprocessableEntity, uploadResponse{UploadResult: result})
		return
	}
	c.JSON(http.StatusOK, uploadResponse{UploadResult: result})
}

func uploadBody(c *gin.Context) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType != "multipart/form-data" {
		return c.Request.Body, func() {}, nil
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func (s *Server) uploadReadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Upload too large"})
		return
	}
	s.logger.Warn("failed to read upload", "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload"})
}

func (s *Server) ListRecords(c *gin.Context) {
	if q, ok := c.GetQuery("q"); ok {
		c.JSON(http.StatusOK, gin.H{"overview": s.Engine.Overview(q)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": s.Engine.Records()})
}

func (s *Server) CompatibleProducts(c *gin.Context) {
	id := c.Param("productId")
	c.JSON(http.StatusOK, gin.H{
		"productId": id,
		"products":  s.Engine.CompatibleProductsFor(id),
	})
}

func (s *Server) MissingProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"missing": s.Engine.MissingProducts()})
}

func (s *Server) Widget(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Widget(c.Param("productId")))
}

func (s *Server) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Settings())
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var patch model.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	merged, err := s.Engine.UpdateSettings(c.Request.Context(), patch)
	if err != nil {
		s.logger.Error("settings applied but not persisted", "error", err)
		c.JSON(http.StatusOK, gin.H{"settings": merged, "persisted": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": merged, "persisted": true})
}

func (s *Server) ListCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": s.Engine.Products()})
}

func (s *Server) ReplaceCatalog(c *gin.Context) {
	var products []model.Product
	if err := c.ShouldBindJSON(&products); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := s.Engine.ReplaceCatalog(c.Request.Context(), products); err != nil {
		s.logger.Error("catalog applied but not persisted", "error", err)
		c.JSON(http.StatusOK, gin.H{"products": s.Engine.Catalog.Len(), "persisted": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": s.Engine.Catalog.Len(), "persisted": true})
}

func (s *Server) RefreshCatalog(c *gin.Context) {
	n, err := s.Engine.RefreshCatalog(c.Request.Context())
	if err != nil {
		var perr *model.PersistenceError
		switch {
		case errors.Is(err, core.ErrNoProvider):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog provider not configured"})
		case errors.As(err, &perr):
			c.JSON(http.StatusOK, gin.H{"products": n, "persisted": false, "error": err.Error()})
		default:
			s.logger.Error("failed to refresh catalog", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh catalog"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": n, "persisted": true})
}

func (s *Server) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Stats())
}

func (s *Server) Template(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="compatibility-template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", ingest.Template())
}
