package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"subtide/internal/language"
	"subtide/internal/logging"
	"subtide/internal/media"
	"subtide/internal/notify"
	"subtide/internal/services"
)

type handlers struct {
	submitter  Submitter
	records    Records
	translator TranslationRunner
	hub        *notify.Hub
	logger     *slog.Logger
}

func registerRoutes(r *gin.Engine, h *handlers) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", h.handleHealth)

		apiGroup.POST("/videos", h.handleSubmit)
		apiGroup.GET("/videos", h.handleListVideos)
		apiGroup.GET("/videos/:id", h.handleGetVideo)
		apiGroup.DELETE("/videos/:id", h.handleDeleteVideo)

		apiGroup.POST("/videos/:id/translations", h.handleCreateTranslation)
		apiGroup.GET("/videos/:id/translations", h.handleListTranslations)
		apiGroup.GET("/videos/:id/translations/:lang", h.handleGetTranslation)
	}

	r.GET("/ws", h.handleWebsocket)
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "subscribers": h.hub.Count()})
}

func (h *handlers) handleSubmit(c *gin.Context) {
	var payload struct {
		SourceURL       string   `json:"sourceUrl"`
		URL             string   `json:"url"`
		TargetLanguages []string `json:"targetLanguages"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	source := payload.SourceURL
	if source == "" {
		source = payload.URL
	}
	if strings.TrimSpace(source) == "" {
		respondError(c, http.StatusBadRequest, errors.New("sourceUrl is required"))
		return
	}

	parsed, err := url.Parse(strings.TrimSpace(source))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		respondError(c, http.StatusBadRequest, errors.New("url must be an absolute http(s) URL"))
		return
	}

	targets := make([]string, 0, len(payload.TargetLanguages))
	for _, lang := range payload.TargetLanguages {
		normalized := language.Normalize(lang)
		if !language.Known(normalized) {
			respondError(c, http.StatusBadRequest, errors.New("unknown target language "+lang))
			return
		}
		targets = append(targets, normalized)
	}

	id, err := h.submitter.Submit(parsed.String(), targets)
	if err != nil {
		if errors.Is(err, services.ErrUnavailable) {
			respondError(c, http.StatusServiceUnavailable, err)
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	h.logger.Info("job submitted", logging.String("video_id", id))
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func (h *handlers) handleListVideos(c *gin.Context) {
	videos, err := h.records.ListVideos(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if videos == nil {
		videos = []*media.Video{}
	}
	c.JSON(http.StatusOK, videos)
}

func (h *handlers) handleGetVideo(c *gin.Context) {
	video, err := h.records.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if video == nil {
		respondError(c, http.StatusNotFound, errors.New("video not found"))
		return
	}
	c.JSON(http.StatusOK, video)
}

func (h *handlers) handleDeleteVideo(c *gin.Context) {
	existed, err := h.records.DeleteVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if !existed {
		respondError(c, http.StatusNotFound, errors.New("video not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) handleCreateTranslation(c *gin.Context) {
	var payload struct {
		Language string `json:"language" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	lang := language.Normalize(payload.Language)
	if !language.Known(lang) {
		respondError(c, http.StatusBadRequest, errors.New("unknown target language "+payload.Language))
		return
	}

	video, err := h.records.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if video == nil {
		respondError(c, http.StatusNotFound, errors.New("video not found"))
		return
	}
	if video.Status != media.StatusCompleted {
		respondError(c, http.StatusConflict, errors.New("video is not completed"))
		return
	}

	if err := h.translator.Translate(c.Request.Context(), video, lang); err != nil {
		if errors.Is(err, services.ErrConfiguration) {
			respondError(c, http.StatusServiceUnavailable, err)
			return
		}
		respondError(c, http.StatusBadGateway, err)
		return
	}

	translation, err := h.records.GetTranslation(c.Request.Context(), video.ID, lang)
	if err != nil || translation == nil {
		respondError(c, http.StatusInternalServerError, errors.New("translation not persisted"))
		return
	}
	c.JSON(http.StatusOK, translation)
}

func (h *handlers) handleListTranslations(c *gin.Context) {
	langs, err := h.records.ListTranslationLanguages(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if langs == nil {
		langs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"languages": langs})
}

func (h *handlers) handleGetTranslation(c *gin.Context) {
	translation, err := h.records.GetTranslation(c.Request.Context(), c.Param("id"), c.Param("lang"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if translation == nil {
		respondError(c, http.StatusNotFound, errors.New("translation not found"))
		return
	}
	c.JSON(http.StatusOK, translation)
}
