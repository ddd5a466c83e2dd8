package http

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lexyhq/lexy/internal/editor"
	"github.com/lexyhq/lexy/internal/errors"
	"github.com/lexyhq/lexy/internal/export"
	"github.com/lexyhq/lexy/internal/plan"
	"github.com/lexyhq/lexy/internal/project"
	"github.com/lexyhq/lexy/internal/transcription"
)

// Auth is an external collaborator; requests carry the mock identity in
// headers until it lands.
const (
	defaultOwnerID = "user123abc"
	defaultPlanID  = "starter"
)

func (s *Service) initRouter() {
	s.router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.router.GET("/audio/*ref", s.handleAudio)

	api := s.router.Group("/api/v1")
	{
		api.POST("/transcribe", s.handleTranscribe)
		api.GET("/plans", s.handlePlans)
		api.GET("/search", s.handleSearch)
		api.PUT("/settings/transcription", s.handleSaveTranscriptionSettings)

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET("/:id", s.handleGetProject)
			projects.DELETE("/:id", s.handleDeleteProject)
			projects.POST("/:id/audio", s.handleUploadAudio)
			projects.POST("/:id/transcribe", s.handleTranscribeProject)
			projects.PUT("/:id/transcript", s.handleSaveTranscript)
			projects.GET("/:id/export", s.handleExport)
		}
	}
}

func ownerID(c *gin.Context) string {
	if owner := strings.TrimSpace(c.GetHeader("X-Owner-ID")); owner != "" {
		return owner
	}
	return defaultOwnerID
}

func planID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Plan-ID")); id != "" {
		return id
	}
	return defaultPlanID
}

// POST /api/v1/transcribe
//
// The fronting endpoint consumed by clients: relays the request to the
// hosted model and returns the validated result or a structured error.
func (s *Service) handleTranscribe(c *gin.Context) {
	var req transcription.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "details": err.Error()})
		return
	}

	result, err := s.control.Invoker().Transcribe(c.Request.Context(), req)
	if err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/v1/projects
func (s *Service) handleListProjects(c *gin.Context) {
	projects, err := s.repo.List(c.Request.Context(), ownerID(c))
	if err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// POST /api/v1/projects
func (s *Service) handleCreateProject(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project name is required"})
		return
	}
	if req.Language == "" {
		req.Language = transcription.LanguageAuto
	}

	owner := ownerID(c)
	existing, err := s.repo.List(c.Request.Context(), owner)
	if err != nil {
		errors.Err(c, err)
		return
	}
	userPlan := plan.ByID(planID(c))
	if err := userPlan.CheckProjectCount(len(existing)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	p := &project.Project{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Name:      strings.TrimSpace(req.Name),
		Language:  req.Language,
		Status:    project.StatusDraft,
		CreatedAt: now,
		ExpiresAt: userPlan.Expiry(now),
	}
	if err := s.repo.Create(c.Request.Context(), p); err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /api/v1/projects/:id
func (s *Service) handleGetProject(c *gin.Context) {
	p, err := s.repo.Get(c.Request.Context(), c.Param("id"), ownerID(c))
	if err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /api/v1/projects/:id
func (s *Service) handleDeleteProject(c *gin.Context) {
	owner := ownerID(c)
	id := c.Param("id")

	p, err := s.repo.Get(c.Request.Context(), id, owner)
	if err != nil {
		errors.Err(c, err)
		return
	}
	if err := s.repo.Delete(c.Request.Context(), id, owner); err != nil {
		errors.Err(c, err)
		return
	}
	if p.AudioReference != "" {
		if err := s.store.Remove(c.Request.Context(), p.AudioReference); err != nil {
			log.Err(err).Str("project", id).Msg("failed to remove audio")
		}
	}
	if err := s.index.RemoveProject(owner, id); err != nil {
		log.Err(err).Str("project", id).Msg("failed to remove search entries")
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// POST /api/v1/projects/:id/audio
func (s *Service) handleUploadAudio(c *gin.Context) {
	owner := ownerID(c)
	id := c.Param("id")

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required", "details": err.Error()})
		return
	}
	defer file.Close()

	duration, _ := strconv.Atoi(c.PostForm("duration"))
	if duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must not be negative"})
		return
	}

	userPlan := plan.ByID(planID(c))
	usedToday, usedThisMonth, err := s.minutesUsed(c, owner)
	if err != nil {
		errors.Err(c, err)
		return
	}
	if err := userPlan.CheckMinutes(usedToday, usedThisMonth, duration); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	sess, err := editor.Load(c.Request.Context(), s.repo, s.control.Invoker(), id, owner)
	if err != nil {
		errors.Err(c, err)
		return
	}

	ref, err := s.store.Put(c.Request.Context(), owner, id, header.Filename, file)
	if err != nil {
		errors.Err(c, err)
		return
	}
	if err := sess.AttachAudio(c.Request.Context(), ref, duration); err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Project())
}

// minutesUsed sums audio minutes across the owner's projects for plan
// accounting.
func (s *Service) minutesUsed(c *gin.Context, owner string) (today int, month int, err error) {
	projects, err := s.repo.List(c.Request.Context(), owner)
	if err != nil {
		return 0, 0, err
	}
	now := time.Now().UTC()
	for _, p := range projects {
		created := p.CreatedAt.UTC()
		if created.Year() == now.Year() && created.Month() == now.Month() {
			month += p.Duration
			if created.Day() == now.Day() {
				today += p.Duration
			}
		}
	}
	return today, month, nil
}

// POST /api/v1/projects/:id/transcribe
func (s *Service) handleTranscribeProject(c *gin.Context) {
	sess, err := editor.Load(c.Request.Context(), s.repo, s.control.Invoker(), c.Param("id"), ownerID(c))
	if err != nil {
		errors.Err(c, err)
		return
	}

	if err := sess.Transcribe(c.Request.Context()); err != nil {
		snapshot := sess.Project()
		status, _ := errorStatus(err)
		c.JSON(status, gin.H{
			"error":  editor.UserMessage(err),
			"status": snapshot.Status,
		})
		return
	}
	c.JSON(http.StatusOK, sess.Project())
}

// errorStatus maps a transcribe failure to an HTTP status without
// rendering, so the handler can attach the project snapshot.
func errorStatus(err error) (int, bool) {
	switch transcription.KindOf(err) {
	case transcription.FailureInvalidRequest:
		return http.StatusBadRequest, true
	case transcription.FailureModelUnavailable:
		return http.StatusBadGateway, true
	case transcription.FailureModelRefusal, transcription.FailureMalformedOutput:
		return http.StatusUnprocessableEntity, true
	case transcription.FailureUpstream:
		return http.StatusInternalServerError, true
	}
	if err == project.ErrAlreadyProcessing || err == project.ErrAlreadyCompleted {
		return http.StatusConflict, true
	}
	return http.StatusInternalServerError, false
}

// PUT /api/v1/projects/:id/transcript
func (s *Service) handleSaveTranscript(c *gin.Context) {
	var req struct {
		Rows []transcription.Row `json:"rows"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "details": err.Error()})
		return
	}
	if req.Rows == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rows are required"})
		return
	}

	sess, err := editor.Load(c.Request.Context(), s.repo, s.control.Invoker(), c.Param("id"), ownerID(c))
	if err != nil {
		errors.Err(c, err)
		return
	}

	sess.SetTranscript(req.Rows)
	if err := sess.Save(c.Request.Context()); err != nil {
		errors.Err(c, err)
		return
	}

	snapshot := sess.Project()
	if err := s.index.IndexProject(&snapshot); err != nil {
		log.Err(err).Str("project", snapshot.ID).Msg("failed to index transcript")
	}
	c.JSON(http.StatusOK, snapshot)
}

// GET /api/v1/projects/:id/export?format=txt|srt|vtt
func (s *Service) handleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatTXT)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.repo.Get(c.Request.Context(), c.Param("id"), ownerID(c))
	if err != nil {
		errors.Err(c, err)
		return
	}
	if !p.HasTranscript() {
		c.JSON(http.StatusConflict, gin.H{"error": "project has no transcript to export"})
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, p.Transcript); err != nil {
		errors.Err(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+p.Name+"."+string(format)+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// GET /api/v1/search?q=...&limit=20
func (s *Service) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	hits, err := s.index.Search(c.Request.Context(), ownerID(c), query, limit)
	if err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}

// GET /api/v1/plans
func (s *Service) handlePlans(c *gin.Context) {
	type planView struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		PriceCents   int    `json:"priceCents"`
		DailyMinutes *int   `json:"dailyMinutes,omitempty"`
		MonthMinutes *int   `json:"monthlyMinutes,omitempty"`
		ProjectLimit *int   `json:"projectLimit,omitempty"`
		StorageDays  *int   `json:"storageDays,omitempty"`
	}
	views := make([]planView, 0, len(plan.Catalog))
	for _, p := range plan.Catalog {
		views = append(views, planView{
			ID:           p.ID,
			Name:         p.Name,
			PriceCents:   p.PriceCents,
			DailyMinutes: p.MinuteLimitDaily,
			MonthMinutes: p.MinuteLimitMonthly,
			ProjectLimit: p.ProjectLimit,
			StorageDays:  p.StorageDays,
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": views})
}

// PUT /api/v1/settings/transcription
func (s *Service) handleSaveTranscriptionSettings(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "details": err.Error()})
		return
	}

	cfg := s.conf.Transcription
	if err := cfg.FromMap(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.control.SaveTranscriptionConfig(cfg); err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /audio/*ref
func (s *Service) handleAudio(c *gin.Context) {
	// The wildcard strips the /audio prefix that references carry.
	ref := "audio/" + strings.TrimPrefix(c.Param("ref"), "/")
	rc, err := s.store.Open(c.Request.Context(), ref)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audio not found"})
		return
	}
	defer rc.Close()

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Debug().Err(err).Str("ref", ref).Msg("audio stream interrupted")
	}
}
