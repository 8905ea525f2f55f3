package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/ports/input"
)

type Handler struct{ s *Server }

func RegisterRoutes(r gin.IRoutes, s *Server) {
	h := &Handler{s: s}

	r.GET("/roster", h.GetRoster)
	r.GET("/stats", h.GetStats)
	r.POST("/refresh", h.Refresh)

	r.POST("/attendees/:id/checkin", h.CheckIn)
	r.POST("/attendees/:id/undo", h.Undo)

	r.GET("/source", h.GetSource)
	r.POST("/source", h.SwitchSource)
	r.POST("/source/file", h.ImportFile)
}

// maxImportSize bounds an uploaded export.
const maxImportSize = 10 << 20

// ---------- DTOs ----------

type switchSettings struct {
	CSV         domain.CSVSettings      `json:"csv"`
	Spreadsheet domain.SheetSettings    `json:"spreadsheet"`
	Database    domain.DatabaseSettings `json:"database"`
}

type switchRequest struct {
	Type         string         `json:"type" binding:"required,oneof=csv spreadsheet database"`
	PollInterval string         `json:"pollInterval"`
	Settings     switchSettings `json:"settings"`
	Confirm      bool           `json:"confirm"`
}

type attendeeResponse struct {
	Attendee entities.Attendee `json:"attendee"`
}

// ---------- handlers ----------

func (h *Handler) GetRoster(c *gin.Context) {
	status, err := domain.ParseStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	if err != nil {
		h.s.abortWithError(c, err)
		return
	}
	q := input.RosterQuery{
		Search: c.Query("q"),
		SortBy: c.DefaultQuery("sort", "name"),
		Desc:   strings.EqualFold(c.Query("order"), "desc"),
	}
	if c.Query("status") != "" {
		q.Status = status
	}
	c.JSON(http.StatusOK, snapshot{
		Attendees: h.s.roster.Query(q),
		Stats:     h.s.roster.Stats(),
		Source:    h.s.roster.Status(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.s.roster.Stats())
}

func (h *Handler) Refresh(c *gin.Context) {
	if err := h.s.roster.Refresh(c.Request.Context()); err != nil {
		h.s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.s.roster.Status())
}

func (h *Handler) CheckIn(c *gin.Context) {
	h.setStatus(c, domain.StatusCheckedIn)
}

func (h *Handler) Undo(c *gin.Context) {
	h.setStatus(c, domain.StatusPending)
}

func (h *Handler) setStatus(c *gin.Context, status domain.Status) {
	a, err := h.s.roster.UpdateCheckIn(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		h.s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, attendeeResponse{Attendee: a})
}

func (h *Handler) GetSource(c *gin.Context) {
	c.JSON(http.StatusOK, h.s.roster.Status())
}

func (h *Handler) SwitchSource(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json: "+err.Error())
		return
	}
	cfg := domain.SourceConfig{
		Kind:     domain.SourceKind(req.Type),
		CSV:      req.Settings.CSV,
		Sheet:    req.Settings.Spreadsheet,
		Database: req.Settings.Database,
	}
	if req.PollInterval != "" {
		d, err := time.ParseDuration(req.PollInterval)
		if err != nil || d <= 0 {
			badRequest(c, "invalid pollInterval")
			return
		}
		cfg.PollInterval = d
	}

	err := h.s.roster.SwitchSource(c.Request.Context(), input.SwitchRequest{Config: cfg, Confirmed: req.Confirm})
	if err != nil {
		h.s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.s.roster.Status())
}

// ImportFile takes a raw export (CSV or TSV body) for a source that could not
// fetch its data and reloads it.
func (h *Handler) ImportFile(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize))
	if err != nil {
		badRequest(c, "unreadable body: "+err.Error())
		return
	}
	if len(data) == 0 {
		badRequest(c, "empty body")
		return
	}
	if err := h.s.roster.ImportFile(c.Request.Context(), data); err != nil {
		h.s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.s.roster.Status())
}
