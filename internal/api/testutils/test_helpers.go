package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mchen/wallet-backend/internal/api"
	"github.com/mchen/wallet-backend/internal/auth"
	"github.com/mchen/wallet-backend/internal/config"
	"github.com/mchen/wallet-backend/internal/models"
	"github.com/mchen/wallet-backend/internal/ratelimit"
	"github.com/mchen/wallet-backend/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

const TestJWTSecret = "test-secret-key"

// TestContext holds all dependencies for tests
type TestContext struct {
	Router        *gin.Engine
	Repository    *MemoryRepository
	CounterStore  *MemoryCounterStore
	Service       service.Service
	Authenticator *auth.TokenAuthenticator
	TestUserID    string
	TestUserJWT   string
}

// SetupTestContext creates a test context with a rate limit high enough to
// stay out of the way of functional tests
func SetupTestContext(t *testing.T) *TestContext {
	return SetupTestContextWithRateLimit(t, config.RateLimitConfig{
		Window:       time.Minute,
		MaxRequests:  10000,
		FailOpen:     true,
		StoreTimeout: time.Second,
	})
}

// SetupTestContextWithRateLimit creates a test context with the given
// admission settings. Everything runs against in-memory fakes, no database.
func SetupTestContextWithRateLimit(t *testing.T, rlCfg config.RateLimitConfig) *TestContext {
	repo := NewMemoryRepository()
	store := NewMemoryCounterStore()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	authenticator := auth.NewTokenAuthenticator(TestJWTSecret, 24*time.Hour)
	limiter := ratelimit.NewLimiter(store, rlCfg, logger)
	svc := service.NewDefaultService(repo, authenticator)
	handler := api.NewHandler(svc, authenticator, limiter, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.SetupRoutes(router)

	testUserID, token := CreateTestUser(t, repo, authenticator, "testuser@example.com")

	return &TestContext{
		Router:        router,
		Repository:    repo,
		CounterStore:  store,
		Service:       svc,
		Authenticator: authenticator,
		TestUserID:    testUserID,
		TestUserJWT:   token,
	}
}

// CreateTestUser inserts a user directly into the repository and returns
// its id together with a valid bearer token
func CreateTestUser(
	t *testing.T,
	repo *MemoryRepository,
	authenticator *auth.TokenAuthenticator,
	email string,
) (string, string) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Name:     "Test User",
		Password: string(hashedPassword),
	}

	err := repo.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to create test user")

	token, err := authenticator.Issue(user.ID)
	assert.NoError(t, err, "Failed to generate JWT token")

	return user.ID, token
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
	req.RemoteAddr = "192.0.2.1:1234"

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
