package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/handler"
	"github.com/iliyamo/facility-reservation/internal/integration/calendar"
	"github.com/iliyamo/facility-reservation/internal/integration/notification"
	"github.com/iliyamo/facility-reservation/internal/integration/payment"
	"github.com/iliyamo/facility-reservation/internal/middleware"
	"github.com/iliyamo/facility-reservation/internal/model"
	"github.com/iliyamo/facility-reservation/internal/repository"
	"github.com/iliyamo/facility-reservation/internal/router"
)

var now = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type apiReservation struct {
	ID         string `json:"id"`
	UserID     int64  `json:"user_id"`
	FacilityID int64  `json:"facility_id"`
	Status     string `json:"status"`
	TotalPrice struct {
		Amount   string `json:"amount"`
		Cents    int64  `json:"amount_cents"`
		Currency string `json:"currency"`
	} `json:"total_price"`
}

type apiList struct {
	Items []apiReservation `json:"items"`
	Count int              `json:"count"`
}

type HandlerSuite struct {
	suite.Suite
	e *echo.Echo
}

func (s *HandlerSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := booking.NewController(
		repository.NewMemoryReservationRepo(),
		booking.NewHourlyRate(model.MustMoney(1500, "EUR"), booking.RoundTruncate),
		payment.Disabled{}, calendar.Disabled{}, notification.Disabled{},
		booking.WithLogger(log),
		booking.WithClock(func() time.Time { return now }),
	)
	s.e = echo.New()
	s.e.Validator = handler.NewValidator()
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	router.RegisterRoutes(s.e, handler.NewReservationHandler(ctrl, log), middleware.HeaderIdentity(), passthrough)
}

func (s *HandlerSuite) do(method, path string, user int64, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user > 0 {
		req.Header.Set(middleware.HeaderUserID, itoa(user))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func decode[T any](s *HandlerSuite, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createBody(facility int64, start, end string) string {
	return `{"facility_id":` + itoa(facility) + `,"start_time":"` + start + `","end_time":"` + end + `","notes":"team practice"}`
}

func (s *HandlerSuite) create(user, facility int64, start, end string) apiReservation {
	rec := s.do(http.MethodPost, "/v1/reservations", user, createBody(facility, start, end))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return decode[apiReservation](s, rec)
}

func (s *HandlerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/healthz", 0, "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", rec.Body.String())
}

func (s *HandlerSuite) TestCreateReturnsPendingWithPrice() {
	res := s.create(7, 10, "2025-06-01T10:00:00Z", "2025-06-01T12:00:00Z")
	s.NotEmpty(res.ID)
	s.Equal(int64(7), res.UserID)
	s.Equal("PENDING", res.Status)
	s.Equal("30.00", res.TotalPrice.Amount)
	s.Equal(int64(3000), res.TotalPrice.Cents)
	s.Equal("EUR", res.TotalPrice.Currency)
}

func (s *HandlerSuite) TestCreateRejectsOverlap() {
	s.create(7, 10, "2025-06-01T10:00:00Z", "2025-06-01T12:00:00Z")
	rec := s.do(http.MethodPost, "/v1/reservations", 8, createBody(10, "2025-06-01T11:00:00Z", "2025-06-01T13:00:00Z"))
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("FACILITY_UNAVAILABLE", decode[apiError](s, rec).Kind)
}

func (s *HandlerSuite) TestCreateValidation() {
	cases := map[string]struct {
		body string
		kind string
	}{
		"malformed json":   {`{"facility_id":`, "VALIDATION"},
		"missing fields":   {`{"notes":"x"}`, "VALIDATION"},
		"zero facility":    {createBody(0, "2025-06-01T10:00:00Z", "2025-06-01T12:00:00Z"), "VALIDATION"},
		"end before start": {createBody(10, "2025-06-01T12:00:00Z", "2025-06-01T10:00:00Z"), "INVALID_TIME_RANGE"},
		"too short":        {createBody(10, "2025-06-01T10:00:00Z", "2025-06-01T10:30:00Z"), "INVALID_TIME_RANGE"},
		"in the past":      {createBody(10, "2025-05-01T10:00:00Z", "2025-05-01T12:00:00Z"), "INVALID_TIME_RANGE"},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			rec := s.do(http.MethodPost, "/v1/reservations", 7, tc.body)
			s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
			s.Equal(tc.kind, decode[apiError](s, rec).Kind)
		})
	}
}

func (s *HandlerSuite) TestRequiresIdentity() {
	rec := s.do(http.MethodGet, "/v1/reservations/mine", 0, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestGetEnforcesOwnership() {
	res := s.create(7, 10, "2025-06-01T10:00:00Z", "2025-06-01T12:00:00Z")

	rec := s.do(http.MethodGet, "/v1/reservations/"+res.ID, 7, "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(res.ID, decode[apiReservation](s, rec).ID)

	rec = s.do(http.MethodGet, "/v1/reservations/"+res.ID, 8, "")
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("FORBIDDEN", decode[apiError](s, rec).Kind)

	rec = s.do(http.MethodGet, "/v1/reservations/does-not-exist", 7, "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("NOT_FOUND", decode[apiError](s, rec).Kind)
}

func (s *HandlerSuite) TestListings() {
	s.create(7, 10, "2025-06-02T10:00:00Z", "2025-06-02T11:00:00Z")
	s.create(7, 11, "2025-06-01T10:00:00Z", "2025-06-01T11:00:00Z")
	s.create(8, 10, "2025-06-03T10:00:00Z", "2025-06-03T11:00:00Z")

	mine := decode[apiList](s, s.do(http.MethodGet, "/v1/reservations/mine", 7, ""))
	s.Equal(2, mine.Count)
	s.Equal(int64(11), mine.Items[0].FacilityID)

	upcoming := decode[apiList](s, s.do(http.MethodGet, "/v1/reservations/mine/upcoming", 7, ""))
	s.Equal(2, upcoming.Count)

	past := decode[apiList](s, s.do(http.MethodGet, "/v1/reservations/mine/past", 7, ""))
	s.Equal(0, past.Count)
	s.NotNil(past.Items)

	facility := decode[apiList](s, s.do(http.MethodGet, "/v1/facilities/10/reservations", 7, ""))
	s.Equal(2, facility.Count)

	ranged := decode[apiList](s, s.do(http.MethodGet,
		"/v1/facilities/10/reservations?from=2025-06-02T00:00:00Z&to=2025-06-02T23:59:59Z", 7, ""))
	s.Equal(1, ranged.Count)
}

func (s *HandlerSuite) TestFacilityListingBadInput() {
	for _, path := range []string{
		"/v1/facilities/abc/reservations",
		"/v1/facilities/0/reservations",
		"/v1/facilities/10/reservations?from=2025-06-02T00:00:00Z",
		"/v1/facilities/10/reservations?from=yesterday&to=today",
	} {
		rec := s.do(http.MethodGet, path, 7, "")
		s.Equal(http.StatusBadRequest, rec.Code, path)
	}
	rec := s.do(http.MethodGet, "/v1/facilities/10/reservations?from=2025-06-03T00:00:00Z&to=2025-06-02T00:00:00Z", 7, "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_TIME_RANGE", decode[apiError](s, rec).Kind)
}

func (s *HandlerSuite) TestUpdateStatus() {
	res := s.create(7, 10, "2025-06-01T10:00:00Z", "2025-06-01T12:00:00Z")
	path := "/v1/reservations/" + res.ID + "/status"

	rec := s.do(http.MethodPatch, path, 7, `{"status":"bogus"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, path, 7, `{}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, path, 7, `{"status":"COMPLETED"}`)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("INVALID_TRANSITION", decode[apiError](s, rec).Kind)

	rec = s.do(http.MethodPatch, path, 8, `{"status":"CONFIRMED"}`)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, path, 7, `{"status":"confirmed"}`)
	s.Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("CONFIRMED", decode[apiReservation](s, rec).Status)
}

func (s *HandlerSuite) TestCancel() {
	res := s.create(7, 10, "2025-06-01T10:00:00Z", "2025-06-01T12:00:00Z")
	path := "/v1/reservations/" + res.ID

	rec := s.do(http.MethodDelete, path, 8, "")
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, path, 7, "")
	s.Equal(http.StatusNoContent, rec.Code)
	s.Empty(rec.Body.String())

	rec = s.do(http.MethodDelete, path, 7, "")
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("ALREADY_CANCELLED", decode[apiError](s, rec).Kind)

	// The freed slot can be booked again.
	s.create(8, 10, "2025-06-01T10:00:00Z", "2025-06-01T12:00:00Z")
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func TestHealthWithoutIdentity(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	ctx := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
	require.NoError(t, handler.Health(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
}
