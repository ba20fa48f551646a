// Package usersvc registers users, signs them in and out, and deletes accounts.
// Every error it returns is already classified for the HTTP boundary.
package usersvc

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/homecase-postboard/internal/auth/session"
	"github.com/mkrupp/homecase-postboard/internal/auth/token"
	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/httperr"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	"github.com/mkrupp/homecase-postboard/internal/repo/user"
)

// UserConfig contains configuration parameters for the user service.
type UserConfig struct {
	// BcryptCost is the work factor used when hashing passwords
	BcryptCost int `env:"BCRYPT_COST" default:"10"`
}

// UserService provides registration, login and account management.
type UserService struct {
	Config   UserConfig
	UserRepo user.Repository
	Codec    *token.Codec
	Registry session.Registry
	Log      logging.Logger
}

// NewUserService creates a new UserService.
// Returns an error if the user repository cannot be created.
func NewUserService(
	repoFactory user.RepositoryFactory,
	codec *token.Codec,
	registry session.Registry,
	cfg UserConfig,
) (*UserService, error) {
	userRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &UserService{
		Config:   cfg,
		UserRepo: userRepo,
		Codec:    codec,
		Registry: registry,
		Log:      logging.GetLogger("svc.usersvc.user_service"),
	}, nil
}

// RegisterUser creates an account and signs it in.
// A taken name or email is a bad request carrying the store's message.
func (s *UserService) RegisterUser(
	ctx context.Context,
	name, email, password string,
) (resp domain.AuthTokenResponse, err error) {
	log := s.Log.With(logging.Group("user", "name", name, "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered", "id", resp.User.ID)
		}
	}()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.Config.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return resp, httperr.Newf(httperr.KindBadRequest, "Invalid password").WithLocation("password")
		}

		return resp, httperr.Wrap(httperr.KindInternal, fmt.Errorf("hash password: %w", err))
	}

	created, err := s.UserRepo.CreateUser(ctx, name, email, passwordHash)
	if err != nil {
		return resp, httperr.FromStore(fmt.Errorf("create user: %w", err))
	}

	return s.signIn(ctx, created)
}

// Login checks the credentials of the account registered under email and signs it in.
func (s *UserService) Login(ctx context.Context, email, password string) (resp domain.AuthTokenResponse, err error) {
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.InfoContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful", "id", resp.User.ID)
		}
	}()

	found, err := s.UserRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return resp, httperr.FromStore(fmt.Errorf("get user: %w", err),
			httperr.NotFoundMessage("No user found with email "+email))
	}

	if err := bcrypt.CompareHashAndPassword(found.PasswordHash, []byte(password)); err != nil {
		return resp, &httperr.Error{
			Kind:    httperr.KindUnauthorized,
			Message: "Invalid email or password",
			Err:     errors.Join(domain.ErrInvalidCredentials, err),
		}
	}

	return s.signIn(ctx, found)
}

// signIn issues a credential for u and records it as a new session.
func (s *UserService) signIn(ctx context.Context, u *domain.User) (domain.AuthTokenResponse, error) {
	public := u.Public()

	signed, claims, err := s.Codec.Issue(public)
	if err != nil {
		return domain.AuthTokenResponse{}, httperr.Wrap(httperr.KindInternal, fmt.Errorf("issue token: %w", err))
	}

	sessionID, err := session.NewSessionID()
	if err != nil {
		return domain.AuthTokenResponse{}, httperr.Wrap(httperr.KindInternal, err)
	}

	if err := s.Registry.Save(ctx, u.ID, sessionID, signed); err != nil {
		return domain.AuthTokenResponse{}, httperr.Wrap(httperr.KindInternal, fmt.Errorf("save session: %w", err))
	}

	return domain.AuthTokenResponse{
		User:      public,
		Token:     signed,
		SessionID: sessionID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Signout ends the session identity was admitted with. Identities admitted
// by cookie carry no session and have nothing to revoke.
func (s *UserService) Signout(ctx context.Context, identity domain.Identity) error {
	if identity.SessionID == "" {
		return nil
	}

	if err := s.Registry.Revoke(ctx, identity.UserID, identity.SessionID); err != nil {
		s.Log.ErrorContext(ctx, "revoke session failed", "user", identity.UserID, "error", err)

		return httperr.Wrap(httperr.KindInternal, fmt.Errorf("revoke session: %w", err))
	}

	return nil
}

// DeleteUser removes the account id. Only the account itself may do so.
// With thoroughly set its posts go with it; otherwise remaining posts make
// the delete fail. All sessions of the account are revoked afterwards.
func (s *UserService) DeleteUser(ctx context.Context, identity domain.Identity, id int64, thoroughly bool) (err error) {
	log := s.Log.With(logging.Group("user", "id", id, "thoroughly", thoroughly))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete user failed", "error", err)
		} else {
			log.InfoContext(ctx, "user deleted")
		}
	}()

	if identity.UserID != id {
		return httperr.Newf(httperr.KindForbidden, "You are not allowed to delete user %d", id)
	}

	if err := s.UserRepo.DeleteUser(ctx, id, thoroughly); err != nil {
		return httperr.FromStore(fmt.Errorf("delete user: %w", err),
			httperr.NotFoundMessage(fmt.Sprintf("No user found with id %d", id)))
	}

	if err := s.Registry.RevokeAll(ctx, id); err != nil {
		return httperr.Wrap(httperr.KindInternal, fmt.Errorf("revoke sessions: %w", err))
	}

	return nil
}
