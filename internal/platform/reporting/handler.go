package reporting

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ppk/screening/internal/platform/auth"
	"github.com/ppk/screening/pkg/daterange"
)

// ReportDefinition describes one available summary.
type ReportDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Types       []string `json:"types"`
	Parameters  []string `json:"parameters"`
}

// Reports is the list of available summaries.
var Reports = []ReportDefinition{
	{
		ID:          "symptoms",
		Name:        "Symptom Summary",
		Description: "Deduplicated symptom labels with the number of question results mentioning each",
		Types:       []string{TypeTotal, TypeForm, TypeGuide},
		Parameters:  []string{"type", "start", "end", "date", "range"},
	},
	{
		ID:          "clinics",
		Name:        "Clinic Summary",
		Description: "Number of question results routed to each clinic",
		Types:       []string{TypeTotal, TypeForm, TypeGuide},
		Parameters:  []string{"type", "start", "end", "date", "range"},
	},
}

// SummaryResponse is the body of a summary request.
type SummaryResponse struct {
	Type        string      `json:"type"`
	Start       *time.Time  `json:"start"`
	End         *time.Time  `json:"end"`
	GeneratedAt time.Time   `json:"generated_at"`
	Items       interface{} `json:"items"`
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole(auth.RoleTriage, auth.RoleViewer))
	reportGroup.GET("", h.ListReports)
	reportGroup.GET("/symptoms", h.SymptomSummary)
	reportGroup.GET("/clinics", h.ClinicSummary)
}

func (h *Handler) ListReports(c echo.Context) error {
	return c.JSON(http.StatusOK, Reports)
}

func criteriaFrom(c echo.Context) daterange.Criteria {
	return daterange.Criteria{
		Start:  c.QueryParam("start"),
		End:    c.QueryParam("end"),
		Date:   c.QueryParam("date"),
		Preset: c.QueryParam("range"),
	}
}

func (h *Handler) SymptomSummary(c echo.Context) error {
	criteria := criteriaFrom(c)
	items, err := h.engine.Symptoms(c.Request().Context(), c.QueryParam("type"), criteria)
	if err != nil {
		return summaryError(err)
	}
	return h.respond(c, criteria, RankSymptoms(items))
}

func (h *Handler) ClinicSummary(c echo.Context) error {
	criteria := criteriaFrom(c)
	items, err := h.engine.Clinics(c.Request().Context(), c.QueryParam("type"), criteria)
	if err != nil {
		return summaryError(err)
	}
	return h.respond(c, criteria, RankClinics(items))
}

func (h *Handler) respond(c echo.Context, criteria daterange.Criteria, items interface{}) error {
	t, _ := NormalizeType(c.QueryParam("type"))
	resp := SummaryResponse{Type: t, GeneratedAt: time.Now().UTC(), Items: items}
	if w, err := h.engine.resolver.Resolve(criteria); err == nil && !w.IsZero() {
		resp.Start, resp.End = &w.Start, &w.End
	}
	return c.JSON(http.StatusOK, resp)
}

func summaryError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownType),
		errors.Is(err, daterange.ErrInvalidDate),
		errors.Is(err, daterange.ErrUnknownPreset):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSummaryUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "summary unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
