package staff_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uicestone/minimars-server-sub000/internal/database/dbtest"
	"github.com/uicestone/minimars-server-sub000/internal/domain/staff"
	"github.com/uicestone/minimars-server-sub000/internal/middleware"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
)

func setup(t *testing.T) (*staff.Service, *jwt.Service) {
	t.Helper()
	db := dbtest.Open(t, &staff.Staff{})
	jwtService := jwt.New("test-secret", time.Hour)
	svc := staff.NewService(staff.NewRepository(db), jwtService, zerolog.Nop())

	_, err := svc.Register(context.Background(), staff.RegisterRequest{
		Name: "Reception", Phone: "13800000000", Pin: "1234", StoreID: "s1",
	})
	require.NoError(t, err)
	return svc, jwtService
}

func TestHashPin(t *testing.T) {
	hash, err := staff.HashPin("1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", hash)
	assert.True(t, staff.CheckPin("1234", hash))
	assert.False(t, staff.CheckPin("4321", hash))
}

func TestLoginIssuesStaffToken(t *testing.T) {
	svc, jwtService := setup(t)

	res, err := svc.Login(context.Background(), "13800000000", "1234")
	require.NoError(t, err)
	assert.Equal(t, "s1", res.Staff.StoreID)

	claims, err := jwtService.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Staff.ID, claims.UserID)
	assert.Equal(t, jwt.RoleStaff, claims.Role)
	assert.Equal(t, "s1", claims.StoreID)
}

func TestLoginRejectsUnknownPhoneAndWrongPin(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "13900000000", "1234")
	assert.ErrorIs(t, err, staff.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "13800000000", "0000")
	assert.ErrorIs(t, err, staff.ErrInvalidCredentials)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, "13800000000", "0000")
		require.ErrorIs(t, err, staff.ErrInvalidCredentials)
	}
	_, err := svc.Login(ctx, "13800000000", "0000")
	require.ErrorIs(t, err, staff.ErrAccountLocked)

	// The right PIN does not unlock early.
	_, err = svc.Login(ctx, "13800000000", "1234")
	assert.ErrorIs(t, err, staff.ErrAccountLocked)
}

func TestRegisterRejectsDuplicatePhoneAndCustomerRole(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, staff.RegisterRequest{Name: "Dup", Phone: "13800000000", Pin: "5678"})
	assert.ErrorIs(t, err, staff.ErrPhoneTaken)

	_, err = svc.Register(ctx, staff.RegisterRequest{Name: "Cust", Phone: "13700000000", Pin: "5678", Role: jwt.RoleCustomer})
	assert.Error(t, err)
}

func TestLoginHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, jwtService := setup(t)
	h := staff.NewHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	protected := api.Group("", middleware.JWTAuth(jwtService))
	h.RegisterRoutes(protected)

	post := func(path, token string, body any) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/api/v1/staff/login", "", gin.H{"phone": "13800000000", "pin": "9999"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")

	w = post("/api/v1/staff/login", "", gin.H{"phone": "13800000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post("/api/v1/staff/login", "", gin.H{"phone": "13800000000", "pin": "1234"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")
	assert.NotContains(t, w.Body.String(), "pin_hash")

	staffToken, err := jwtService.GenerateToken("staff-1", jwt.RoleStaff, "s1")
	require.NoError(t, err)
	w = post("/api/v1/staff", staffToken, gin.H{"name": "New", "phone": "13600000000", "pin": "2468"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken, err := jwtService.GenerateToken("admin-1", jwt.RoleAdmin, "")
	require.NoError(t, err)
	w = post("/api/v1/staff", adminToken, gin.H{"name": "New", "phone": "13600000000", "pin": "2468"})
	assert.Equal(t, http.StatusCreated, w.Code)
}
