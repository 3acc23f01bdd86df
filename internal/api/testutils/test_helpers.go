package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ralnuaimi/petty-cash-server/internal/api"
	"github.com/ralnuaimi/petty-cash-server/internal/config"
	"github.com/ralnuaimi/petty-cash-server/internal/models"
	"github.com/ralnuaimi/petty-cash-server/internal/repository"
	"github.com/ralnuaimi/petty-cash-server/internal/service"
	"github.com/ralnuaimi/petty-cash-server/internal/storage"
)

// TestUser is a seeded account with a ready-to-use bearer token.
type TestUser struct {
	ID    string
	Email string
	Role  string
	Token string
}

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository repository.Repository
	Service    service.Service
	DB         *sqlx.DB

	Admin      TestUser
	Accountant TestUser
	Employee   TestUser
}

// SetupTestContext creates a new test context against the test database.
// The test is skipped when the database is unreachable so the unit suite
// stays runnable without infrastructure.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	// Point at the dedicated test database
	if cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	}
	cfg.Auth.JWTSecret = "test-secret-key"

	db, err := config.SetupDatabase(cfg)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	repo := repository.NewPostgresRepository(db)
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret, 24*time.Hour, zerolog.Nop())

	receipts, err := storage.NewReceiptStore(t.TempDir())
	require.NoError(t, err)

	handler := api.NewHandler(svc, receipts, zerolog.Nop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})
	handler.SetupRoutes(router)

	ctx := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		DB:         db,
	}

	cleanupTestDatabase(db)
	ctx.Admin = createTestUser(t, repo, cfg.Auth.JWTSecret, "Test Admin", models.RoleAdmin)
	ctx.Accountant = createTestUser(t, repo, cfg.Auth.JWTSecret, "Test Accountant", models.RoleAccountant)
	ctx.Employee = createTestUser(t, repo, cfg.Auth.JWTSecret, "Test Employee", models.RoleEmployee)

	return ctx
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(tc *TestContext) {
	if tc.DB != nil {
		cleanupTestDatabase(tc.DB)
		tc.DB.Close()
	}
}

// cleanupTestDatabase removes all rows, children first.
func cleanupTestDatabase(db *sqlx.DB) {
	for _, table := range []string{"audit_logs", "expenses", "funds", "users"} {
		db.Exec("DELETE FROM " + table)
	}
}

func createTestUser(t *testing.T, repo repository.Repository, jwtSecret, name, role string) TestUser {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &models.User{
		ID:       uuid.New().String(),
		Name:     name,
		Email:    fmt.Sprintf("%s-%s@example.com", role, uuid.New().String()[:8]),
		Password: string(hashed),
		Role:     role,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"name":  user.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	return TestUser{ID: user.ID, Email: user.Email, Role: role, Token: signed}
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// PerformFormRequest executes a multipart form request (expense submission
// and edit arrive this way so a receipt can ride along).
func PerformFormRequest(r http.Handler, method, path string, fields map[string]string, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := newFormWriter(&buf, fields)

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer)

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newFormWriter(buf *bytes.Buffer, fields map[string]string) string {
	writer := multipart.NewWriter(buf)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()
	return writer.FormDataContentType()
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
