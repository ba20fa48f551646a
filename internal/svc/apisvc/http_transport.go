// Package apisvc exposes users, posts and uploads over HTTP.
package apisvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mkrupp/homecase-postboard/internal/auth/guard"
	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/extract"
	"github.com/mkrupp/homecase-postboard/internal/httperr"
	context_ "github.com/mkrupp/homecase-postboard/internal/infra/context"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	http_ "github.com/mkrupp/homecase-postboard/internal/infra/transport/http"
	"github.com/mkrupp/homecase-postboard/internal/svc/postsvc"
	"github.com/mkrupp/homecase-postboard/internal/svc/uploadsvc"
	"github.com/mkrupp/homecase-postboard/internal/svc/usersvc"
	"github.com/mkrupp/homecase-postboard/internal/util/encoding"
	"github.com/mkrupp/homecase-postboard/internal/validate"
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// Prefix is the path prefix of all API routes
	Prefix string `env:"PREFIX" default:"/api/v1"`

	// SignoutRedirect is where signout sends clients that name no target
	SignoutRedirect string `env:"SIGNOUT_REDIRECT" default:"/login"`

	// CookieSecure marks the credential cookie as HTTPS only
	CookieSecure bool `env:"COOKIE_SECURE" default:"true"`

	// MaxBodyBytes caps JSON request bodies
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" default:"1048576"`

	// MultipartFormMaxMemory is the maximum memory used for multipart form uploads.
	// Larger parts spill to temporary files.
	MultipartFormMaxMemory int64 `env:"MULTIPART_FORM_MAX_MEMORY" default:"10485760"`

	// RateLimit bounds register and login attempts per client
	RateLimit http_.RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// multipartOverhead is the allowance for multipart framing on top of the upload size cap.
const multipartOverhead = 1 << 20

// Pinger is a dependency whose reachability /healthz reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPTransport handles HTTP requests for the API service.
type HTTPTransport struct {
	userSvc    *usersvc.UserService
	postSvc    *postsvc.PostService
	uploadSvc  uploadsvc.UploadService
	guard      guard.Guard
	cookieName string
	pingers    []Pinger
	limiter    *http_.RateLimiter
	cfg        HTTPTransportConfig
	log        logging.Logger
	handler    http.Handler
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport and builds its routes.
// The guard protects every route except registration, login and /healthz.
func NewHTTPTransport(
	userSvc *usersvc.UserService,
	postSvc *postsvc.PostService,
	uploadSvc uploadsvc.UploadService,
	g guard.Guard,
	guardCfg guard.Config,
	cfg HTTPTransportConfig,
	pingers ...Pinger,
) *HTTPTransport {
	ht := &HTTPTransport{
		userSvc:    userSvc,
		postSvc:    postSvc,
		uploadSvc:  uploadSvc,
		guard:      g,
		cookieName: guardCfg.CookieName,
		pingers:    pingers,
		limiter:    http_.NewRateLimiter(cfg.RateLimit),
		cfg:        cfg,
		log:        logging.GetLogger("svc.apisvc.http_transport"),
	}

	ht.handler = ht.routes()

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.handler.ServeHTTP(w, r)
}

// routes sets up the endpoints of the API service:
// - POST   {prefix}/user: Register a user
// - POST   {prefix}/user/login: Login
// - POST   {prefix}/user/signout: Signout and redirect
// - GET    {prefix}/user/me: Current identity
// - DELETE {prefix}/user/{id}: Delete own account
// - GET    {prefix}/post: List own posts
// - POST   {prefix}/post: Create a post
// - GET    {prefix}/post/{id}: Get a post
// - DELETE {prefix}/post/{id}: Delete own post
// - POST   {prefix}/upload: Upload a file
// - GET    {prefix}/upload/{id}: Download own upload
// - GET    /healthz: Dependency health.
func (ht *HTTPTransport) routes() http.Handler {
	var (
		mux     = http.NewServeMux()
		p       = strings.TrimSuffix(ht.cfg.Prefix, "/")
		require = guard.Require(ht.guard, ht.log)
	)

	limited := func(h http.Handler) http.Handler {
		return http_.RateLimitingMiddleware(h, ht.limiter, ht.log)
	}

	mux.Handle("POST "+p+"/user", limited(ht.handle(ht.handleRegister)))
	mux.Handle("POST "+p+"/user/login", limited(ht.handle(ht.handleLogin)))
	mux.Handle("POST "+p+"/user/signout", require(ht.handle(ht.handleSignout)))
	mux.Handle("GET "+p+"/user/me", require(ht.handle(ht.handleMe)))
	mux.Handle("DELETE "+p+"/user/{id}", require(ht.handle(ht.handleDeleteUser)))

	mux.Handle("GET "+p+"/post", require(ht.handle(ht.handleListPosts)))
	mux.Handle("POST "+p+"/post", require(ht.handle(ht.handleCreatePost)))
	mux.Handle("GET "+p+"/post/{id}", require(ht.handle(ht.handleGetPost)))
	mux.Handle("DELETE "+p+"/post/{id}", require(ht.handle(ht.handleDeletePost)))

	mux.Handle("POST "+p+"/upload", require(ht.handle(ht.handleUpload)))
	mux.Handle("GET "+p+"/upload/{id}", require(ht.handle(ht.handleDownload)))

	mux.Handle("GET /healthz", ht.handle(ht.handleHealth))
	mux.Handle("/", ht.handle(ht.handleFallback))

	return mux
}

// handle adapts a handler returning an error. Errors are rendered through
// the error taxonomy; nothing has been written to w when fn fails.
func (ht *HTTPTransport) handle(fn func(w http.ResponseWriter, r *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			httperr.Write(w, r, err, ht.log)
		}
	})
}

func identity(r *http.Request) (domain.Identity, error) {
	id, ok := context_.IdentityFromContext(r.Context())
	if !ok {
		return domain.Identity{}, httperr.Wrap(httperr.KindUnauthorized, domain.ErrNoAuthToken)
	}

	return id, nil
}

func (ht *HTTPTransport) setCredentialCookie(w http.ResponseWriter, resp domain.AuthTokenResponse) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     ht.cookieName,
		Value:    resp.Token,
		Path:     "/",
		Expires:  time.Unix(resp.ExpiresAt, 0),
		Secure:   ht.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (ht *HTTPTransport) clearCredentialCookie(w http.ResponseWriter) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     ht.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   ht.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) error {
	in, err := extract.Body[CreateUser](r, ht.cfg.MaxBodyBytes)
	if err != nil {
		return err
	}

	resp, err := ht.userSvc.RegisterUser(r.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		return err
	}

	ht.setCredentialCookie(w, resp)
	writeOK(w, r, resp, ht.log)

	return nil
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) error {
	in, err := extract.Body[LoginUser](r, ht.cfg.MaxBodyBytes)
	if err != nil {
		return err
	}

	resp, err := ht.userSvc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		return err
	}

	ht.setCredentialCookie(w, resp)
	writeOK(w, r, resp, ht.log)

	return nil
}

func (ht *HTTPTransport) handleSignout(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	in, err := extract.Body[Redirect](r, ht.cfg.MaxBodyBytes)
	if err != nil {
		return err
	}

	if err := ht.userSvc.Signout(r.Context(), id); err != nil {
		return err
	}

	target := ht.cfg.SignoutRedirect
	if in.URI != nil {
		target = *in.URI
	}

	ht.clearCredentialCookie(w)
	http.Redirect(w, r, target, http.StatusSeeOther)

	return nil
}

func (ht *HTTPTransport) handleMe(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	writeOK(w, r, id, ht.log)

	return nil
}

func (ht *HTTPTransport) handleDeleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	target, err := extract.Path[UserID](r)
	if err != nil {
		return err
	}

	opt, err := extract.Query[DeleteUserOpt](r)
	if err != nil {
		return err
	}

	if err := ht.userSvc.DeleteUser(r.Context(), id, target.ID, opt.Thoroughly); err != nil {
		return err
	}

	ht.clearCredentialCookie(w)
	writeJSON(w, r, fmt.Sprintf("The user %d has been successfully deleted", target.ID), nil, ht.log)

	return nil
}

func (ht *HTTPTransport) handleListPosts(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	posts, err := ht.postSvc.ListPosts(r.Context(), id)
	if err != nil {
		return err
	}

	writeOK(w, r, posts, ht.log)

	return nil
}

func (ht *HTTPTransport) handleCreatePost(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	in, err := extract.Body[CreatePost](r, ht.cfg.MaxBodyBytes)
	if err != nil {
		return err
	}

	var category domain.Category
	if in.Category != nil {
		category = *in.Category
	}

	created, err := ht.postSvc.CreatePost(r.Context(), id, in.Title, in.Text, category)
	if err != nil {
		return err
	}

	writeOK(w, r, created, ht.log)

	return nil
}

func (ht *HTTPTransport) handleGetPost(w http.ResponseWriter, r *http.Request) error {
	target, err := extract.Path[PostID](r)
	if err != nil {
		return err
	}

	p, err := ht.postSvc.GetPost(r.Context(), target.ID)
	if err != nil {
		return err
	}

	writeOK(w, r, p, ht.log)

	return nil
}

func (ht *HTTPTransport) handleDeletePost(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	target, err := extract.Path[PostID](r)
	if err != nil {
		return err
	}

	if err := ht.postSvc.DeletePost(r.Context(), id, target.ID); err != nil {
		return err
	}

	writeJSON(w, r, fmt.Sprintf("The post %d has been successfully deleted", target.ID), nil, ht.log)

	return nil
}

// handleUpload expects a multipart form with a "file" part and an optional
// "name" field, which defaults to the part's file name.
func (ht *HTTPTransport) handleUpload(w http.ResponseWriter, r *http.Request) (err error) {
	id, err := identity(r)
	if err != nil {
		return err
	}

	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func() {
		if err != nil {
			log.DebugContext(r.Context(), "upload rejected", "error", err)
		} else {
			log.DebugContext(r.Context(), "upload accepted")
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, ht.uploadSvc.MaxSize()+multipartOverhead)

	if err := r.ParseMultipartForm(ht.cfg.MultipartFormMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return httperr.Newf(httperr.KindPayloadTooLarge,
				"Upload exceeds the limit of %d bytes", ht.uploadSvc.MaxSize())
		}

		return &httperr.Error{
			Kind:    httperr.KindBadRequest,
			Message: "Failed to parse the request body as multipart form",
			Err:     err,
		}
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		return httperr.Newf(httperr.KindBadRequest, "Missing multipart field `file`").WithLocation("file")
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	if v := validateUploadName(name); !v.OK() {
		return httperr.Validation(v)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return httperr.Wrap(httperr.KindInternal, fmt.Errorf("read upload: %w", err))
	}

	meta, err := ht.uploadSvc.Store(r.Context(), id.UserID, name, data)
	if err != nil {
		return uploadError(err, ht.uploadSvc.MaxSize())
	}

	writeOK(w, r, meta, ht.log)

	return nil
}

func (ht *HTTPTransport) handleDownload(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	target, err := extract.Path[UploadID](r)
	if err != nil {
		return err
	}

	opt, err := extract.Query[UploadOpt](r)
	if err != nil {
		return err
	}

	var (
		meta domain.UploadMeta
		data *domain.Blob
	)

	if _, err = encoding.DecodeCrockfordB32LC(target.ID); err != nil {
		err = errors.Join(domain.ErrUploadNotFound, err)
	} else {
		uploadID := domain.BlobID(encoding.NormalizeCrockfordB32LC(target.ID))
		meta, data, err = ht.uploadSvc.Fetch(r.Context(), id.UserID, uploadID, opt.Preview)
	}

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &httperr.Error{
				Kind:    httperr.KindNotFound,
				Message: "No upload found with id " + target.ID,
				Err:     err,
			}
		}

		return httperr.Wrap(httperr.KindInternal, err)
	}

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(data.Size(), 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := data.WriteTo(w); err != nil {
		ht.log.ErrorContext(r.Context(), "write upload failed", "error", err)
	}

	return nil
}

func validateUploadName(name string) validate.Violations {
	return validate.Collect(
		validate.Required("name", name),
		validate.MaxLength("name", name, 255),
	)
}

func uploadError(err error, maxSize int64) error {
	switch {
	case errors.Is(err, domain.ErrUploadTooLarge):
		return &httperr.Error{
			Kind:    httperr.KindPayloadTooLarge,
			Message: fmt.Sprintf("Upload exceeds the limit of %d bytes", maxSize),
			Err:     err,
		}
	case errors.Is(err, domain.ErrImageTypeNotSupported):
		return &httperr.Error{
			Kind:    httperr.KindUnprocessableEntity,
			Message: "Image could not be decoded",
			Err:     err,
		}
	default:
		return httperr.Wrap(httperr.KindInternal, err)
	}
}

func (ht *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) error {
	for _, p := range ht.pingers {
		if err := p.Ping(r.Context()); err != nil {
			return httperr.Wrap(httperr.KindInternal, fmt.Errorf("ping: %w", err))
		}
	}

	writeOK(w, r, map[string]string{"status": "ok"}, ht.log)

	return nil
}

func (ht *HTTPTransport) handleFallback(_ http.ResponseWriter, r *http.Request) error {
	ht.log.DebugContext(r.Context(), "no route", slog.Group("http", "method", r.Method, "uri", r.RequestURI))

	return httperr.Newf(httperr.KindNotFound, "No route for %s", r.RequestURI)
}
