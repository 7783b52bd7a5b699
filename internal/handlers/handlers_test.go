package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/database"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/observability/audit"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	identity *services.IdentityService
	handlers Handlers
	router   *gin.Engine

	admin    *models.User
	leader   *models.User
	member   *models.User
	outsider *models.User
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := services.NewGuard(audit.NewLogger(logger))

	identity := services.NewIdentityService(
		store,
		services.NewBcryptHasher(bcrypt.MinCost),
		services.NewTokenService("test-secret", time.Hour),
		cache.NewMemoryDenylist(),
		guard,
	)
	checker, err := database.NewHealthCheckerFromGorm(db, time.Second)
	require.NoError(t, err)

	h := Handlers{
		Auth:    NewAuthHandler(identity),
		User:    NewUserHandler(identity),
		Team:    NewTeamHandler(services.NewTeamService(store, guard)),
		Task:    NewTaskHandler(services.NewTaskService(store, guard, nil)),
		Comment: NewCommentHandler(services.NewCommentService(store, guard)),
		Health:  NewHealthHandler(checker),
	}

	router := NewRouter(RouterConfig{
		Logger:       logger,
		SessionStore: cookie.NewStore([]byte("secret")),
		Verifier:     identity,
	}, h)

	return &testEnv{
		db:       db,
		identity: identity,
		handlers: h,
		router:   router,
		admin:    testutil.CreateUser(t, db, "admin", models.RoleAdmin),
		leader:   testutil.CreateUser(t, db, "leader", models.RoleTeamLeader),
		member:   testutil.CreateUser(t, db, "member", models.RoleMember),
		outsider: testutil.CreateUser(t, db, "outsider", models.RoleMember),
	}
}

// token logs user in and returns a bearer token.
func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	result, err := e.identity.Authenticate(context.Background(), user.Email, testutil.Password)
	require.NoError(t, err)
	return result.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	require.Equal(t, code, decode[apierrors.APIError](t, w).Code)
}

// authContext builds a context for calling a handler directly.
func authContext(method, url string, body []byte, userID any) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if userID != nil {
		c.Set("user_id", userID)
	}
	return c, w
}
