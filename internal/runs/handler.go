package runs

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/company"
	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/extract"
	"tender-backend/internal/llm"
	"tender-backend/internal/shared/server/respond"
	"tender-backend/internal/shared/util"
)

const maxUploadSize = 25 << 20 // 25MB

// Handler wires HTTP handlers to the run service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches run routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/runs", h.create)
	rg.GET("/runs/:id", h.get)
	rg.POST("/runs/:id/documents", h.uploadDocument)
	rg.POST("/runs/:id/analyze", h.analyze)
	rg.POST("/runs/:id/synthesize", h.synthesize)
	rg.POST("/runs/:id/memory", h.generateMemory)
	rg.GET("/runs/:id/memory.md", h.memoryMarkdown)
	rg.POST("/maintenance/purge", h.purge)
}

func (h *Handler) create(c *gin.Context) {
	run, err := h.Svc.CreateRun(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create run", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, run)
}

func (h *Handler) get(c *gin.Context) {
	run, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load run", nil)
		return
	}
	respond.JSON(c, http.StatusOK, run)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	fileName, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
		return
	}

	doc, err := h.Svc.AddDocument(c.Request.Context(), c.Param("id"), fileName, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to add document", nil)
		return
	}

	status := http.StatusCreated
	resp := gin.H{"document": doc}
	if !doc.Analyzable() {
		resp["analyzable"] = false
		if doc.Text == "" {
			resp["reason"] = extract.ErrUnsupportedFormat.Error()
		}
	}
	respond.JSON(c, status, resp)
}

func (h *Handler) analyze(c *gin.Context) {
	results, err := h.Svc.AnalyzeAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, llm.ErrAuth) {
			respond.Error(c, http.StatusBadGateway, "auth_error", "completion service rejected credentials", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis failed", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"analyses": results})
}

func (h *Handler) synthesize(c *gin.Context) {
	cross, err := h.Svc.Synthesize(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, crossanalysis.ErrNoCompletedAnalyses) {
			respond.Error(c, http.StatusConflict, "precondition_failed", err.Error(), nil)
			return
		}
		if errors.Is(err, llm.ErrAuth) {
			respond.Error(c, http.StatusBadGateway, "auth_error", "completion service rejected credentials", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "synthesis failed", nil)
		return
	}
	respond.JSON(c, http.StatusOK, cross)
}

func (h *Handler) generateMemory(c *gin.Context) {
	var profile company.Profile
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&profile); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid company profile", nil)
			return
		}
	}

	mem, err := h.Svc.GenerateMemory(c.Request.Context(), c.Param("id"), profile)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		case errors.Is(err, ErrNoCrossAnalysis):
			respond.Error(c, http.StatusConflict, "precondition_failed", err.Error(), nil)
		case errors.Is(err, llm.ErrAuth):
			respond.Error(c, http.StatusBadGateway, "auth_error", "completion service rejected credentials", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "memory generation failed", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, mem)
}

func (h *Handler) memoryMarkdown(c *gin.Context) {
	run, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load run", nil)
		return
	}
	if run.Memory == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "run has no technical memory yet", nil)
		return
	}
	c.Header("Content-Type", "text/markdown; charset=utf-8")
	c.String(http.StatusOK, run.Memory.Markdown)
}

func (h *Handler) purge(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "days must be a non-negative integer", nil)
			return
		}
		days = parsed
	}

	purged, err := h.Svc.PurgeOlderThan(c.Request.Context(), days)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "purge failed", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"purged": purged})
}
