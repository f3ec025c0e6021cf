package main

import (
	"bytes"
	"calbook/src/config"
	"calbook/src/db"
	"calbook/src/integrations"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB   *gorm.DB
	Mock sqlmock.Sqlmock
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	os.Setenv("CALBOOK_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", eventDateTimeValidatorFunc)
		v.RegisterValidation("gtdate", gtfield)
	}
}

// A fresh mock per test keeps goroutine tail traffic from one handler out
// of the next test's expectations.
func (s *TestSuite) SetupTest() {
	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = mock
}

func (s *TestSuite) router() *gin.Engine {
	router := setupRouter()
	publicRoutes(router)
	return router
}

func (s *TestSuite) TestPingRoute() {
	router := s.router()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *TestSuite) expectEventTypeLoad() {
	s.Mock.ExpectQuery(`SELECT (.+) FROM "event_types"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "length", "scheduling_type", "period_type", "owner_id"}).
			AddRow(1, "Intro Call", 30, "single", "unlimited", 7))
	s.Mock.ExpectQuery(`SELECT (.+) FROM "event_type_hosts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type_id", "user_id", "position"}))
	s.Mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "email", "time_zone"}).
			AddRow(7, "alice", "Alice", "alice@example.com", "UTC"))
	s.Mock.ExpectQuery(`SELECT (.+) FROM "credentials"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "user_id"}))
}

func (s *TestSuite) TestBookingDateInPast() {
	s.expectEventTypeLoad()
	router := s.router()

	payload, _ := json.Marshal(map[string]any{
		"event_type_id": 1,
		"start":         "2020-01-01 10:00:00 +00:00",
		"end":           "2020-01-01 10:30:00 +00:00",
		"name":          "Dana",
		"email":         "dana@example.com",
		"time_zone":     "Europe/Berlin",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bookings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "BookingDateInPast", gjson.Get(w.Body.String(), "error_code").String())
}

func (s *TestSuite) TestBookingRequiresSecurityCheck() {
	s.expectEventTypeLoad()

	router := s.router()
	payload, _ := json.Marshal(map[string]any{
		"event_type_id": 1,
		"start":         "2030-01-02 10:00:00 +00:00",
		"end":           "2030-01-02 10:30:00 +00:00",
		"name":          "Dana",
		"email":         "dana@example.com",
		"time_zone":     "Europe/Berlin",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bookings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "NoSecurityCheck", gjson.Get(w.Body.String(), "error_code").String())
}

func (s *TestSuite) TestBookingSucceedsWithoutProviders() {
	s.expectEventTypeLoad()
	s.Mock.ExpectBegin()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s.Mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	s.Mock.ExpectQuery(`INSERT INTO "attendees"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.Mock.ExpectCommit()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "credentials"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "user_id"}))
	s.Mock.ExpectBegin()
	s.Mock.ExpectExec(`UPDATE "booking_references"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.Mock.ExpectCommit()

	check, err := integrations.SymmetricEncrypt("1__alice", config.EncryptionKey())
	assert.NoError(s.T(), err)

	router := s.router()
	payload, _ := json.Marshal(map[string]any{
		"event_type_id": 1,
		"start":         "2030-01-02 10:00:00 +00:00",
		"end":           "2030-01-02 10:30:00 +00:00",
		"name":          "Dana",
		"email":         "dana@example.com",
		"time_zone":     "Europe/Berlin",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bookings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Booking-Security-Check", check)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	body := w.Body.String()
	assert.Equal(s.T(), "confirmed", gjson.Get(body, "data.status").String(), "no providers means no conflict and no pending state")
	assert.NotEmpty(s.T(), gjson.Get(body, "data.uid").String())
	assert.NotEmpty(s.T(), gjson.Get(body, "cancel_secret").String())
	assert.Empty(s.T(), gjson.Get(body, "data.references").Array(), "zero connected providers leaves no references")
	assert.Empty(s.T(), gjson.Get(body, "results").Array())
}

func (s *TestSuite) TestCancelUnknownBooking() {
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	router := s.router()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/v1/bookings/no-such-uid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *TestSuite) TestAvailabilityRequiresParams() {
	router := s.router()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/availability", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
