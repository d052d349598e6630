// Package handler exposes the booking controller over HTTP. Handlers bind
// and validate input, resolve the caller and translate controller errors
// into status codes; all business rules live in the booking package.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/middleware"
	"github.com/iliyamo/facility-reservation/internal/model"
)

// ReservationHandler serves /v1/reservations and the per-facility listing.
type ReservationHandler struct {
	ctrl *booking.Controller
	log  *slog.Logger
}

// NewReservationHandler panics on a nil controller.
func NewReservationHandler(ctrl *booking.Controller, log *slog.Logger) *ReservationHandler {
	if ctrl == nil {
		panic("nil controller passed to NewReservationHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReservationHandler{ctrl: ctrl, log: log}
}

type createReservationRequest struct {
	FacilityID int64     `json:"facility_id" validate:"required,gt=0"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required"`
	Notes      string    `json:"notes" validate:"max=1000"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type reservationList struct {
	Items []model.Reservation `json:"items"`
	Count int                 `json:"count"`
}

func listOf(rs []model.Reservation) reservationList {
	if rs == nil {
		rs = []model.Reservation{}
	}
	return reservationList{Items: rs, Count: len(rs)}
}

// caller resolves the authenticated user or writes a 401.
func (h *ReservationHandler) caller(c echo.Context) (int64, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "kind": kindUnauthorized})
	}
	return uid, ok
}

// Create handles POST /v1/reservations. It returns 201 with the PENDING
// reservation and its computed price.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, ok := h.caller(c)
	if !ok {
		return nil
	}
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&body); err != nil {
		return badRequest(c, validationMessage(err))
	}
	res, err := h.ctrl.Create(c.Request().Context(), booking.CreateRequest{
		UserID:     uid,
		FacilityID: body.FacilityID,
		Start:      body.StartTime,
		End:        body.EndTime,
		Notes:      body.Notes,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Get handles GET /v1/reservations/:id. Only the owner may read it.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, ok := h.caller(c)
	if !ok {
		return nil
	}
	res, err := h.ctrl.Get(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListMine handles GET /v1/reservations/mine.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	return h.listForCaller(c, h.ctrl.ListMine)
}

// ListUpcoming handles GET /v1/reservations/mine/upcoming.
func (h *ReservationHandler) ListUpcoming(c echo.Context) error {
	return h.listForCaller(c, h.ctrl.ListUpcoming)
}

// ListPast handles GET /v1/reservations/mine/past.
func (h *ReservationHandler) ListPast(c echo.Context) error {
	return h.listForCaller(c, h.ctrl.ListPast)
}

func (h *ReservationHandler) listForCaller(c echo.Context, list func(ctx context.Context, userID int64) ([]model.Reservation, error)) error {
	uid, ok := h.caller(c)
	if !ok {
		return nil
	}
	rs, err := list(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, listOf(rs))
}

// UpdateStatus handles PATCH /v1/reservations/:id/status.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	uid, ok := h.caller(c)
	if !ok {
		return nil
	}
	var body updateStatusRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&body); err != nil {
		return badRequest(c, validationMessage(err))
	}
	next, err := model.ParseStatus(body.Status)
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.ctrl.TransitionStatus(c.Request().Context(), c.Param("id"), uid, next)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles DELETE /v1/reservations/:id and returns 204.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, ok := h.caller(c)
	if !ok {
		return nil
	}
	if err := h.ctrl.Cancel(c.Request().Context(), c.Param("id"), uid); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByFacility handles GET /v1/facilities/:id/reservations. With both
// from and to (RFC 3339) it returns only reservations inside the window.
func (h *ReservationHandler) ListByFacility(c echo.Context) error {
	if _, ok := h.caller(c); !ok {
		return nil
	}
	facilityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || facilityID <= 0 {
		return badRequest(c, "invalid facility id")
	}
	fromRaw, toRaw := c.QueryParam("from"), c.QueryParam("to")
	ctx := c.Request().Context()

	var rs []model.Reservation
	switch {
	case fromRaw == "" && toRaw == "":
		rs, err = h.ctrl.ListByFacility(ctx, facilityID)
	case fromRaw == "" || toRaw == "":
		return badRequest(c, "from and to must be given together")
	default:
		from, ferr := time.Parse(time.RFC3339, fromRaw)
		to, terr := time.Parse(time.RFC3339, toRaw)
		if ferr != nil || terr != nil {
			return badRequest(c, "from and to must be RFC 3339 timestamps")
		}
		rs, err = h.ctrl.ListByFacilityRange(ctx, facilityID, from, to)
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, listOf(rs))
}
