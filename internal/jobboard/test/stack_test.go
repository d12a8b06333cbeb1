package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/cache"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/handlers"
	"github.com/gartstein/jobboard/internal/jobboard/storage"
	"github.com/gartstein/jobboard/internal/jobboard/validation"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const stackSecret = "scenario-secret"

// testContext stands in for testing.T.Context, which needs Go 1.24: the
// context is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// stack is the whole API wired over in-memory backends.
type stack struct {
	t      *testing.T
	repo   *db.Repository
	assets afero.Fs
	srv    *httptest.Server
}

func newStack(t *testing.T, repo *db.Repository, producer controller.EventProducer) *stack {
	t.Helper()
	logger := zaptest.NewLogger(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.New(client, time.Minute)

	fs := afero.NewMemMapFs()
	store := storage.NewStore(fs, "/uploads", 0)

	v, err := validation.New()
	require.NoError(t, err)

	api := handlers.NewAPI(
		controller.NewUserService(repo, producer, stackSecret, bcrypt.MinCost, logger),
		controller.NewCompanyService(repo, producer, c, store, logger),
		controller.NewJobService(repo, producer, c, logger),
		controller.NewApplicationService(repo, producer, logger),
		auth.NewGate(stackSecret, repo, logger),
		v,
		handlers.APIConfig{},
		logger,
	)

	server := handlers.NewServer(0, 0, logger)
	require.NoError(t, server.RegisterHTTPGateway(testContext(t),
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		api,
		handlers.GatewayOptions{Assets: store.Handler(), AssetPrefix: store.Prefix()},
	))
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(server.Stop)

	return &stack{t: t, repo: repo, assets: fs, srv: srv}
}

func newSQLiteStack(t *testing.T) *stack {
	t.Helper()
	repo, err := db.NewRepository(&db.Config{Driver: db.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return newStack(t, repo, events.Discard{Logger: zaptest.NewLogger(t)})
}

type response struct {
	Status  int
	Body    map[string]interface{}
	Cookies []*http.Cookie
}

func (r response) code() string {
	code, _ := r.Body["code"].(string)
	return code
}

// object returns the JSON object under key.
func (r response) object(key string) map[string]interface{} {
	obj, _ := r.Body[key].(map[string]interface{})
	return obj
}

// list returns the JSON array under key.
func (r response) list(key string) []interface{} {
	l, _ := r.Body[key].([]interface{})
	return l
}

// do sends a request with an optional bearer token.
func (s *stack) do(method, path, token string, body io.Reader, contentType string) response {
	s.t.Helper()
	req, err := http.NewRequestWithContext(testContext(s.t), method, s.srv.URL+path, body)
	require.NoError(s.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode, Cookies: resp.Cookies()}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func (s *stack) json(method, path, token, body string) response {
	s.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return s.do(method, path, token, r, "application/json")
}

// register creates an account and returns its session token and id.
func (s *stack) register(name, email, role string) (token, id string) {
	s.t.Helper()
	resp := s.json(http.MethodPost, "/api/user/register", "", `{
		"name":"`+name+`","email":"`+email+`","password":"pw-`+name+`",
		"phoneNumber":"+100","role":"`+role+`"}`)
	require.Equal(s.t, http.StatusCreated, resp.Status, resp.Body)
	token, _ = resp.Body["token"].(string)
	id, _ = resp.object("user")["id"].(string)
	return token, id
}

func (s *stack) registerCompany(token, name string) string {
	s.t.Helper()
	resp := s.json(http.MethodPost, "/api/company/register", token, `{"name":"`+name+`"}`)
	require.Equal(s.t, http.StatusCreated, resp.Status, resp.Body)
	id, _ := resp.object("company")["id"].(string)
	return id
}

func (s *stack) postJob(token, companyID, title string) string {
	s.t.Helper()
	resp := s.json(http.MethodPost, "/api/job/post", token, `{
		"title":"`+title+`","description":"Build services","requirements":"Go, SQL",
		"salary":"90000","experienceLevel":"2","location":"Remote","jobType":"Full Time",
		"position":"1","companyId":"`+companyID+`"}`)
	require.Equal(s.t, http.StatusCreated, resp.Status, resp.Body)
	id, _ := resp.object("job")["id"].(string)
	return id
}
