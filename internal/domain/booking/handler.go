package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/booking/internal/platform/auth"
	"github.com/ehr/booking/pkg/pagination"
	"github.com/ehr/booking/pkg/validation"
)

// DefaultDurationMinutes is used when a create request omits the duration.
const DefaultDurationMinutes = 30

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Reads
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/bookings", h.List)
	readGroup.GET("/bookings/search", h.Search)
	readGroup.GET("/bookings/available-slots", h.AvailableSlots)
	readGroup.GET("/bookings/:id", h.Get)
	readGroup.GET("/subjects/:id/bookings", h.ListBySubject)
	readGroup.GET("/subjects/:id/bookings/upcoming", h.Upcoming)
	readGroup.GET("/resources/:id/bookings", h.ListByResource)
	readGroup.GET("/resources/:id/schedule", h.ResourceSchedule)
	readGroup.GET("/locations/:id/bookings", h.LocationSchedule)

	reportGroup := api.Group("", auth.RequireRole("admin", "physician"))
	reportGroup.GET("/bookings/statistics", h.Statistics)

	// Writes and workflow transitions
	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	writeGroup.POST("/bookings", h.Create)
	writeGroup.PUT("/bookings/:id", h.Update)
	writeGroup.POST("/bookings/:id/confirm", h.Confirm)
	writeGroup.POST("/bookings/:id/cancel", h.Cancel)
	writeGroup.POST("/bookings/:id/check-in", h.CheckIn)
	writeGroup.POST("/bookings/:id/start", h.Start)
	writeGroup.POST("/bookings/:id/complete", h.Complete)
	writeGroup.POST("/bookings/:id/no-show", h.NoShow)
	writeGroup.POST("/bookings/:id/reschedule", h.Reschedule)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.DELETE("/bookings/:id", h.Delete)
}

// -- Requests --

type createRequest struct {
	SubjectID       uuid.UUID  `json:"subject_id" validate:"required"`
	ResourceID      *uuid.UUID `json:"resource_id"`
	LocationID      *uuid.UUID `json:"location_id"`
	StartTime       *time.Time `json:"start_time" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"omitempty,min=1"`
	BookingType     *string    `json:"booking_type" validate:"omitempty,oneof=CONSULTATION FOLLOW_UP EMERGENCY ROUTINE_CHECKUP"`
	Notes           *string    `json:"notes" validate:"omitempty,max=1000"`
	Reason          string     `json:"reason" validate:"required,max=500"`
}

type updateRequest struct {
	StartTime       *time.Time `json:"start_time"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=1"`
	BookingType     *string    `json:"booking_type" validate:"omitempty,oneof=CONSULTATION FOLLOW_UP EMERGENCY ROUTINE_CHECKUP"`
	Notes           *string    `json:"notes" validate:"omitempty,max=1000"`
	Reason          *string    `json:"reason" validate:"omitempty,max=500"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type completeRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type rescheduleRequest struct {
	StartTime       *time.Time `json:"start_time" validate:"required"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=1"`
}

// bind decodes the body into req and runs its validate tags.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, "invalid request body"))
	}
	if errs := validation.ValidateStruct(req); errs != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, validation.Format(errs)))
	}
	return nil
}

func toBookingType(s *string) *BookingType {
	if s == nil {
		return nil
	}
	bt := BookingType(*s)
	return &bt
}

// -- Commands --

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	b := &Booking{
		SubjectID:       req.SubjectID,
		ResourceID:      req.ResourceID,
		LocationID:      req.LocationID,
		StartTime:       *req.StartTime,
		DurationMinutes: req.DurationMinutes,
		BookingType:     toBookingType(req.BookingType),
		Notes:           req.Notes,
		Reason:          &req.Reason,
	}
	if b.DurationMinutes == 0 {
		b.DurationMinutes = DefaultDurationMinutes
	}
	if err := h.svc.Create(c.Request().Context(), b); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.svc.Update(c.Request().Context(), id, Changes{
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		BookingType:     toBookingType(req.BookingType),
		Notes:           req.Notes,
		Reason:          req.Reason,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.runTransition(c, h.svc.Confirm)
}

func (h *Handler) CheckIn(c echo.Context) error {
	return h.runTransition(c, h.svc.CheckIn)
}

func (h *Handler) Start(c echo.Context) error {
	return h.runTransition(c, h.svc.Start)
}

func (h *Handler) NoShow(c echo.Context) error {
	return h.runTransition(c, h.svc.MarkNoShow)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.svc.Cancel(c.Request().Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req completeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.svc.Complete(c.Request().Context(), id, strings.TrimSpace(req.Notes))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.svc.Reschedule(c.Request().Context(), id, *req.StartTime, req.DurationMinutes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) runTransition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Booking, error)) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := fn(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

// -- Queries --

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListBySubject(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	withHistory := true
	if v := c.QueryParam("include_history"); v != "" {
		if withHistory, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, "include_history must be true or false"))
		}
	}
	pg := pagination.FromContext(c)
	list := h.svc.ListBySubject
	if !withHistory {
		list = h.svc.ListCurrentBySubject
	}
	items, total, err := list(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Upcoming(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Upcoming(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) ListByResource(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByResource(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ResourceSchedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	day, err := h.requiredDate(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ResourceSchedule(c.Request().Context(), id, day)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) LocationSchedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	day, err := h.requiredDate(c)
	if err != nil {
		return err
	}
	items, err := h.svc.LocationSchedule(c.Request().Context(), id, day)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	resourceID, err := uuid.Parse(c.QueryParam("resource_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, "resource_id is required"))
	}
	day, err := h.requiredDate(c)
	if err != nil {
		return err
	}
	duration := 0
	if v := c.QueryParam("duration_minutes"); v != "" {
		if duration, err = strconv.Atoi(v); err != nil || duration <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, "duration_minutes must be a positive integer"))
		}
	}
	slots, err := h.svc.AvailableSlots(c.Request().Context(), resourceID, day, duration)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) Statistics(c echo.Context) error {
	crit, err := h.searchCriteria(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, err.Error()))
	}
	st, err := h.svc.Statistics(c.Request().Context(), crit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Search(c echo.Context) error {
	crit, err := h.searchCriteria(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, err.Error()))
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), crit, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) searchCriteria(c echo.Context) (SearchCriteria, error) {
	var crit SearchCriteria
	for param, dst := range map[string]**uuid.UUID{
		"subject_id":  &crit.SubjectID,
		"resource_id": &crit.ResourceID,
		"location_id": &crit.LocationID,
	} {
		if v := c.QueryParam(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return crit, errors.New("invalid " + param)
			}
			*dst = &id
		}
	}

	for _, v := range c.QueryParams()["status"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			st, ok := ParseStatus(part)
			if !ok {
				return crit, errors.New("invalid status " + part)
			}
			crit.Statuses = append(crit.Statuses, st)
		}
	}

	if v := c.QueryParam("booking_type"); v != "" {
		bt, ok := ParseBookingType(strings.ToUpper(v))
		if !ok {
			return crit, errors.New("invalid booking_type")
		}
		crit.BookingType = &bt
	}

	for param, dst := range map[string]**time.Time{
		"date_from": &crit.DateFrom,
		"date_to":   &crit.DateTo,
	} {
		if v := c.QueryParam(param); v != "" {
			d, err := h.parseDate(v)
			if err != nil {
				return crit, errors.New(param + " must be YYYY-MM-DD")
			}
			*dst = &d
		}
	}

	for param, dst := range map[string]**string{
		"time_from": &crit.TimeFrom,
		"time_to":   &crit.TimeTo,
	} {
		if v := c.QueryParam(param); v != "" {
			if _, err := time.Parse("15:04", v); err != nil {
				return crit, errors.New(param + " must be HH:MM")
			}
			s := v
			*dst = &s
		}
	}
	return crit, nil
}

// -- Helpers --

// requiredDate reads the mandatory "date" query parameter.
func (h *Handler) requiredDate(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, "date is required"))
	}
	day, err := h.parseDate(raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, "date must be YYYY-MM-DD"))
	}
	return day, nil
}

func (h *Handler) parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, h.svc.policy.location())
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errorBody(ReasonInvalidInput, "invalid id"))
	}
	return id, nil
}

func errorBody(reason, message string) map[string]string {
	return map[string]string{"reason": reason, "message": message}
}

// httpError maps a service error onto its HTTP status.
func httpError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, errorBody("not_found", "booking not found"))
	}
	if ve, ok := IsValidation(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody(ve.Reason, ve.Message))
	}
	if sc, ok := IsStateConflict(err); ok {
		return echo.NewHTTPError(http.StatusConflict, errorBody(sc.Reason, sc.Message))
	}
	if errors.Is(err, ErrDependencyUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, errorBody("dependency_unavailable", "identity service unavailable"))
	}
	return echo.NewHTTPError(http.StatusInternalServerError, errorBody("internal", "internal server error"))
}

func nonNil(items []*Booking) []*Booking {
	if items == nil {
		return []*Booking{}
	}
	return items
}
