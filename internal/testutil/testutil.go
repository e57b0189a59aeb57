// Package testutil builds in-memory databases, fixtures and HTTP helpers
// shared by module tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/middleware"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const JWTSecret = "test-secret"

// NewDB opens a migrated in-memory SQLite database closed at test end.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:", database.Options{LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, repository.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Fixture is a minimal marketplace: one landlord with one apartment, one
// tenant, one admin and an outsider with no relation to anything.
type Fixture struct {
	Tenant        *domain.User
	Landlord      *domain.User
	Admin         *domain.User
	Outsider      *domain.User
	Establishment *domain.Establishment
	Apartment     *domain.Apartment
}

func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{
		Tenant:   NewUser(t, db, "tenant@staybook.test", domain.RoleTenant),
		Landlord: NewUser(t, db, "landlord@staybook.test", domain.RoleLandlord),
		Admin:    NewUser(t, db, "admin@staybook.test", domain.RoleAdmin),
		Outsider: NewUser(t, db, "outsider@staybook.test", domain.RoleTenant),
	}
	f.Establishment = NewEstablishment(t, db, f.Landlord.ID)
	f.Apartment = NewApartment(t, db, f.Establishment.ID, "Sea view")
	return f
}

func NewUser(t testing.TB, db *gorm.DB, email string, role domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", Role: role, Name: email}
	require.NoError(t, repository.NewUserRepository(db).Create(t.Context(), u))
	return u
}

func NewEstablishment(t testing.TB, db *gorm.DB, ownerID int64) *domain.Establishment {
	t.Helper()
	e := &domain.Establishment{OwnerID: ownerID, Name: "Hotel", Address: "Odesa"}
	require.NoError(t, repository.NewApartmentRepository(db).CreateEstablishment(t.Context(), e))
	return e
}

func NewApartment(t testing.TB, db *gorm.DB, establishmentID int64, name string) *domain.Apartment {
	t.Helper()
	a := &domain.Apartment{EstablishmentID: establishmentID, Name: name, Capacity: 2, Price: 150000, Currency: domain.DefaultCurrency}
	require.NoError(t, repository.NewApartmentRepository(db).Create(t.Context(), a))
	return a
}

// NewBooking inserts a booking directly, bypassing availability checks.
func NewBooking(t testing.TB, db *gorm.DB, userID, apartmentID int64, from, to string) *domain.Booking {
	t.Helper()
	now := time.Now().UTC()
	b := &domain.Booking{
		UserID:      userID,
		ApartmentID: apartmentID,
		DateFrom:    Day(from),
		DateTo:      Day(to),
		Status:      domain.BookingRequested,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repository.NewBookingRepository(db).Create(t.Context(), b))
	return b
}

// Day parses a YYYY-MM-DD date as UTC midnight.
func Day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// Server is a gin engine with the production error pipeline. API is the
// JWT-guarded /api group, Public the unguarded one.
type Server struct {
	Engine *gin.Engine
	Public *gin.RouterGroup
	API    *gin.RouterGroup
	Tokens *jwt.Service
}

func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	validator.Register()
	tokens := jwt.New(JWTSecret, time.Hour)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler(logger.Discard()))
	public := r.Group("/api")
	return &Server{
		Engine: r,
		Public: public,
		API:    public.Group("", middleware.JWTAuth(tokens)),
		Tokens: tokens,
	}
}

func Token(t testing.TB, tokens *jwt.Service, u *domain.User) string {
	t.Helper()
	tok, err := tokens.GenerateToken(u.ID, string(u.Role))
	require.NoError(t, err)
	return tok
}

// Do sends body (marshalled to JSON unless it is already an io.Reader) and
// returns the recorded response.
func Do(h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	switch v := body.(type) {
	case nil:
	case io.Reader:
		rd = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the recorder body into T.
func Decode[T any](t testing.TB, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
