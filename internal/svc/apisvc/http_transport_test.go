package apisvc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/homecase-postboard/internal/auth/guard"
	"github.com/mkrupp/homecase-postboard/internal/auth/session"
	"github.com/mkrupp/homecase-postboard/internal/auth/token"
	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/httperr"
	http_ "github.com/mkrupp/homecase-postboard/internal/infra/transport/http"
	"github.com/mkrupp/homecase-postboard/internal/repo/blob"
	"github.com/mkrupp/homecase-postboard/internal/repo/post"
	"github.com/mkrupp/homecase-postboard/internal/repo/sqlite"
	"github.com/mkrupp/homecase-postboard/internal/repo/user"
	"github.com/mkrupp/homecase-postboard/internal/svc/apisvc"
	"github.com/mkrupp/homecase-postboard/internal/svc/postsvc"
	"github.com/mkrupp/homecase-postboard/internal/svc/uploadsvc"
	"github.com/mkrupp/homecase-postboard/internal/svc/usersvc"
)

const (
	prefix     = "/api/v1"
	cookieName = "app_auth_key"
)

type envelope[T any] struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

type server struct {
	handler http.Handler
	mr      *miniredis.Miniredis
}

func newServer(t *testing.T, strategy string, rateLimit http_.RateLimitConfig) *server {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.Config{DatabasePath: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	registry := session.NewRedisRegistry(rdb, session.Config{KeyPrefix: cookieName, SlidingTTL: time.Hour})

	codec, err := token.NewCodec(token.Config{Secret: "api-secret", Lifetime: 24 * time.Hour})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	userSvc, err := usersvc.NewUserService(user.SQLiteUserRepositoryFactory(db), codec, registry,
		usersvc.UserConfig{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewUserService() error = %v", err)
	}

	uploadSvc, err := uploadsvc.NewBlobUploadService(ctx,
		blob.FileSystemBlobRepositoryFactory(blob.FileSystemBlobRepositoryConfig{Basedir: t.TempDir()}),
		uploadsvc.UploadConfig{MaxSize: 1 << 16, PreviewWidth: 32, Interpolator: "catmullrom"})
	if err != nil {
		t.Fatalf("NewBlobUploadService() error = %v", err)
	}

	guardCfg := guard.Config{Strategy: strategy, CookieName: cookieName, IdentityHeader: "X-User-ID"}

	g, err := guard.New(guardCfg, codec, registry)
	if err != nil {
		t.Fatalf("guard.New() error = %v", err)
	}

	//nolint:exhaustruct
	cfg := apisvc.HTTPTransportConfig{
		Prefix:                 prefix,
		SignoutRedirect:        "/login",
		MaxBodyBytes:           1 << 16,
		MultipartFormMaxMemory: 1 << 16,
		RateLimit:              rateLimit,
	}

	ht := apisvc.NewHTTPTransport(userSvc, postsvc.NewPostService(post.NewSQLitePostRepository(db)),
		uploadSvc, g, guardCfg, cfg, db, registry)

	return &server{handler: ht, mr: mr}
}

func generous() http_.RateLimitConfig {
	return http_.RateLimitConfig{Rate: 1000, Burst: 1000, TTL: time.Minute}
}

type creds struct {
	resp   domain.AuthTokenResponse
	cookie *http.Cookie
}

// authorize attaches the credential the way the configured guard expects it.
func (c creds) authorize(req *http.Request) {
	req.AddCookie(c.cookie)
	req.Header.Set("Authorization", "Bearer "+c.resp.SessionID)
	req.Header.Set("X-User-ID", strconv.FormatInt(c.resp.User.ID, 10))
}

func (s *server) do(method, path, body string, c *creds) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if c != nil {
		c.authorize(req)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	return rec
}

func (s *server) register(t *testing.T, name string) creds {
	t.Helper()

	rec := s.do(http.MethodPost, prefix+"/user",
		`{"name":"`+name+`","email":"`+name+`@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body)
	}

	var env envelope[domain.AuthTokenResponse]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	var cookie *http.Cookie

	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			cookie = c
		}
	}

	if cookie == nil || cookie.Value != env.Data.Token || !cookie.HttpOnly {
		t.Fatalf("register cookie = %+v, want http-only credential", cookie)
	}

	return creds{resp: env.Data, cookie: cookie}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httperr.Body {
	t.Helper()

	var body httperr.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}

	return body
}

func TestSlidingExpiry(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyRegistry, generous())
	alice := s.register(t, "alice")
	key := cookieName + "_" + strconv.FormatInt(alice.resp.User.ID, 10)

	s.mr.FastForward(59 * time.Minute)

	if rec := s.do(http.MethodGet, prefix+"/user/me", "", &alice); rec.Code != http.StatusOK {
		t.Fatalf("me after 59m status = %d, want 200", rec.Code)
	}

	if got := s.mr.TTL(key); got != time.Hour {
		t.Errorf("TTL after use = %v, want %v", got, time.Hour)
	}

	s.mr.FastForward(59 * time.Minute)

	if rec := s.do(http.MethodGet, prefix+"/user/me", "", &alice); rec.Code != http.StatusOK {
		t.Fatalf("me after another 59m status = %d, want 200", rec.Code)
	}

	s.mr.FastForward(61 * time.Minute)

	rec := s.do(http.MethodGet, prefix+"/user/me", "", &alice)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after idle hour status = %d, want 401", rec.Code)
	}

	if got := rec.Body.String(); got != `{"statusCode":401,"message":"Unauthorized"}`+"\n" {
		t.Errorf("unauthorized body = %q", got)
	}
}

func TestCookieStrategy(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyCookie, generous())
	bob := s.register(t, "bob")

	req := httptest.NewRequest(http.MethodGet, prefix+"/user/me", nil)
	req.AddCookie(bob.cookie)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body = %s", rec.Code, rec.Body)
	}

	var env envelope[domain.Identity]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if env.StatusCode != http.StatusOK || env.Message != "success" || env.Data.UserID != bob.resp.User.ID {
		t.Errorf("me = %+v", env)
	}

	if rec := s.do(http.MethodGet, prefix+"/user/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("me without cookie status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyRegistry, generous())

	rec := s.do(http.MethodPost, prefix+"/user", `{"name":"","email":"nope","password":"short"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	body := decodeError(t, rec)
	if len(body.Errors) != 3 {
		t.Errorf("violations = %v, want 3", body.Errors)
	}

	if !strings.HasPrefix(body.Message, "Input validation error: [") {
		t.Errorf("message = %q", body.Message)
	}

	s.register(t, "carol")

	rec = s.do(http.MethodPost, prefix+"/user",
		`{"name":"carol2","email":"carol@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email status = %d, want 400", rec.Code)
	}

	if body := decodeError(t, rec); !strings.Contains(body.Message, "users.email") {
		t.Errorf("duplicate email message = %q", body.Message)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyRegistry, generous())
	s.register(t, "dave")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "success",
			body:       `{"email":"dave@example.com","password":"password123"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown email",
			body:       `{"email":"ghost@example.com","password":"password123"}`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "No user found with email ghost@example.com",
		},
		{
			name:       "wrong password",
			body:       `{"email":"dave@example.com","password":"password124"}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid email or password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, prefix+"/user/login", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			if tt.wantMsg != "" {
				if body := decodeError(t, rec); body.Message != tt.wantMsg {
					t.Errorf("message = %q, want %q", body.Message, tt.wantMsg)
				}
			}
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyRegistry, http_.RateLimitConfig{Rate: 0.001, Burst: 1, TTL: time.Minute})

	body := `{"email":"ghost@example.com","password":"password123"}`

	if rec := s.do(http.MethodPost, prefix+"/user/login", body, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("first login status = %d, want 404", rec.Code)
	}

	if rec := s.do(http.MethodPost, prefix+"/user/login", body, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second login status = %d, want 429", rec.Code)
	}
}

func TestSignout(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyRegistry, generous())
	erin := s.register(t, "erin")

	rec := s.do(http.MethodPost, prefix+"/user/signout", "", &erin)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("signout = %d %q, want 303 /login", rec.Code, rec.Header().Get("Location"))
	}

	cleared := false

	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName && c.MaxAge < 0 {
			cleared = true
		}
	}

	if !cleared {
		t.Error("signout did not clear the credential cookie")
	}

	if rec := s.do(http.MethodGet, prefix+"/user/me", "", &erin); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after signout status = %d, want 401", rec.Code)
	}

	again := s.register(t, "erin2")

	rec = s.do(http.MethodPost, prefix+"/user/signout", `{"uri":"/goodbye"}`, &again)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/goodbye" {
		t.Errorf("signout = %d %q, want 303 /goodbye", rec.Code, rec.Header().Get("Location"))
	}

	stays := s.register(t, "erin3")

	for _, uri := range []string{`//evil.example`, `/\evil.example`, `https://evil.example`} {
		body, _ := json.Marshal(map[string]string{"uri": uri})

		rec := s.do(http.MethodPost, prefix+"/user/signout", string(body), &stays)
		if rec.Code != http.StatusBadRequest || rec.Header().Get("Location") != "" {
			t.Errorf("signout to %q = %d %q, want 400 without redirect", uri, rec.Code, rec.Header().Get("Location"))
		}
	}

	if rec := s.do(http.MethodGet, prefix+"/user/me", "", &stays); rec.Code != http.StatusOK {
		t.Errorf("me after rejected signout status = %d, want 200", rec.Code)
	}
}

func TestPostsAndDeleteUser(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyRegistry, generous())
	frank := s.register(t, "frank")
	grace := s.register(t, "grace")

	rec := s.do(http.MethodPost, prefix+"/post", `{"title":"hello","text":"world","category":"Story"}`, &frank)
	if rec.Code != http.StatusOK {
		t.Fatalf("create post status = %d, body = %s", rec.Code, rec.Body)
	}

	var created envelope[domain.Post]
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	postPath := prefix + "/post/" + strconv.FormatInt(created.Data.ID, 10)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		who        *creds
		wantStatus int
	}{
		{"duplicate title", http.MethodPost, prefix + "/post", `{"title":"hello","text":"x"}`, &grace, http.StatusConflict},
		{"bad category", http.MethodPost, prefix + "/post", `{"title":"t","text":"x","category":"Blog"}`, &grace, http.StatusBadRequest},
		{"get post", http.MethodGet, postPath, "", &grace, http.StatusOK},
		{"missing post", http.MethodGet, prefix + "/post/9999", "", &grace, http.StatusNotFound},
		{"invalid id", http.MethodGet, prefix + "/post/0", "", &grace, http.StatusBadRequest},
		{"unparsable id", http.MethodGet, prefix + "/post/abc", "", &grace, http.StatusBadRequest},
		{"list posts", http.MethodGet, prefix + "/post", "", &frank, http.StatusOK},
		{"delete foreign post", http.MethodDelete, postPath, "", &grace, http.StatusForbidden},
		{"delete other user", http.MethodDelete, prefix + "/user/" + strconv.FormatInt(grace.resp.User.ID, 10), "", &frank, http.StatusForbidden},
		{"delete user with posts", http.MethodDelete, prefix + "/user/" + strconv.FormatInt(frank.resp.User.ID, 10), "", &frank, http.StatusBadRequest},
		{"delete user thoroughly", http.MethodDelete, prefix + "/user/" + strconv.FormatInt(frank.resp.User.ID, 10) + "?thoroughly", "", &frank, http.StatusOK},
		{"post gone with user", http.MethodGet, postPath, "", &grace, http.StatusNotFound},
		{"sessions gone with user", http.MethodGet, prefix + "/user/me", "", &frank, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body, tt.who)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d, body = %s", tt.method, tt.path, rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyRegistry, generous())
	heidi := s.register(t, "heidi")
	ivan := s.register(t, "ivan")

	upload := func(name string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer

		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("name", name)
		fw, _ := mw.CreateFormFile("file", "original.txt")
		_, _ = fw.Write(data)
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, prefix+"/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		heidi.authorize(req)

		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		return rec
	}

	rec := upload("notes.txt", []byte("some notes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body)
	}

	var meta envelope[domain.UploadMeta]
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if meta.Data.Name != "notes.txt" || meta.Data.Size != int64(len("some notes")) {
		t.Errorf("upload meta = %+v", meta.Data)
	}

	path := prefix + "/upload/" + meta.Data.ID.String()

	rec = s.do(http.MethodGet, path, "", &heidi)
	if rec.Code != http.StatusOK || rec.Body.String() != "some notes" {
		t.Errorf("download = %d %q", rec.Code, rec.Body)
	}

	if rec := s.do(http.MethodGet, path, "", &ivan); rec.Code != http.StatusNotFound {
		t.Errorf("foreign download status = %d, want 404", rec.Code)
	}

	upper := prefix + "/upload/" + strings.ToUpper(meta.Data.ID.String())
	if rec := s.do(http.MethodGet, upper, "", &heidi); rec.Code != http.StatusOK {
		t.Errorf("uppercase id download status = %d, want 200", rec.Code)
	}

	if rec := s.do(http.MethodGet, prefix+"/upload/uuuu", "", &heidi); rec.Code != http.StatusNotFound {
		t.Errorf("malformed id download status = %d, want 404", rec.Code)
	}

	if rec := upload("big.bin", make([]byte, 1<<17)); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized upload status = %d, want 413", rec.Code)
	}
}

func TestFallbackAndHealth(t *testing.T) {
	t.Parallel()

	s := newServer(t, guard.StrategyRegistry, generous())

	rec := s.do(http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("fallback status = %d, want 404", rec.Code)
	}

	if body := decodeError(t, rec); body.Message != "No route for /nope" {
		t.Errorf("fallback message = %q", body.Message)
	}

	if rec := s.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	s.mr.Close()

	if rec := s.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("healthz with redis down status = %d, want 500", rec.Code)
	}
}
