package screening

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/platform/auth"
	"github.com/ppk/screening/pkg/daterange"
	"github.com/ppk/screening/pkg/pagination"
)

// SessionHeader identifies an interactive questionnaire session.
const SessionHeader = "X-Session-ID"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Catalogue and interactive evaluation – every screening role
	screen := api.Group("", auth.RequireRole(auth.RoleTriage, auth.RoleKiosk, auth.RoleViewer))
	screen.GET("/questions", h.ListQuestions)
	screen.GET("/clinics", h.ListClinics)
	screen.POST("/questions/:code/evaluate", h.EvaluateQuestion)
	screen.DELETE("/sessions/:session", h.EndSession)

	// Advisory results – triage staff and kiosks
	advisory := api.Group("", auth.RequireRole(auth.RoleTriage, auth.RoleKiosk))
	advisory.POST("/advisories", h.RecordAdvisory)

	// Case reads
	readGroup := api.Group("", auth.RequireRole(auth.RoleTriage, auth.RoleViewer))
	readGroup.GET("/cases", h.ListCases)
	readGroup.GET("/cases/:id", h.GetCase)

	// Case writes
	writeGroup := api.Group("", auth.RequireRole(auth.RoleTriage))
	writeGroup.POST("/cases", h.CreateCase)
	writeGroup.PUT("/cases/:id", h.UpdateCase)
	writeGroup.DELETE("/cases/:id", h.DeleteCase)
}

// validationBody is the 422 payload naming the incomplete questions.
type validationBody struct {
	Message      string   `json:"message"`
	QuestionKeys []string `json:"question_keys,omitempty"`
}

// httpError maps service errors onto HTTP responses.
func httpError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, validationBody{Message: ve.Message, QuestionKeys: ve.QuestionKeys})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "case already exists")
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, question.ErrUnknownQuestion),
		errors.Is(err, daterange.ErrInvalidDate),
		errors.Is(err, daterange.ErrUnknownPreset):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Catalogue Handlers --

func (h *Handler) ListQuestions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Questions())
}

func (h *Handler) ListClinics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Clinics())
}

func (h *Handler) EvaluateQuestion(c echo.Context) error {
	// Body only; path params must not leak into the answers.
	var answers question.Answers
	if err := new(echo.DefaultBinder).BindBody(c, &answers); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev, err := h.svc.Evaluate(c.Request().Context(), c.Param("code"), answers, c.Request().Header.Get(SessionHeader))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *Handler) EndSession(c echo.Context) error {
	h.svc.EndSession(c.Param("session"))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RecordAdvisory(c echo.Context) error {
	var req AdvisoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	row, err := h.svc.RecordAdvisory(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, row)
}

// -- Case Handlers --

func (h *Handler) CreateCase(c echo.Context) error {
	var req CaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pc, err := h.svc.CreateCase(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, pc)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pc, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pc)
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)
	criteria := daterange.Criteria{
		Start:  c.QueryParam("start"),
		End:    c.QueryParam("end"),
		Date:   c.QueryParam("date"),
		Preset: c.QueryParam("range"),
	}
	items, total, err := h.svc.ListCases(c.Request().Context(), criteria, c.QueryParam("clinic"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateCase(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req CaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pc, err := h.svc.UpdateCase(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pc)
}

func (h *Handler) DeleteCase(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCase(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
