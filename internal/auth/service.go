// Package auth signs users in and out of the marketplace and manages their
// own profile.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/user"
	"github.com/sudo-init-do/efresco/internal/validation"
)

var ErrMissingCredentials = errors.New("email and password are required")

// Store keeps the signed-in token and user between runs.
type Store interface {
	Save(token string, u *user.User) error
	SetToken(token string) error
	SetUser(u *user.User) error
	User() *user.User
	Clear() error
}

type RegisterInput struct {
	Name     string   `json:"nombre" validate:"required"`
	LastName string   `json:"apellido" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Phone    string   `json:"telefono,omitempty"`
	Address  string   `json:"direccion,omitempty"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,oneof=productor cliente comprador"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string    `json:"mensaje"`
	User    user.User `json:"usuario"`
	Token   string    `json:"token"`
}

// LoginResult is a completed sign-in.
type LoginResult struct {
	LoginResponse
	// Destination is where the user should land next.
	Destination string
	// Offline is set when the answer came from demo data.
	Offline bool
}

// ProfileUpdate carries the profile fields being changed.
type ProfileUpdate struct {
	Name     string   `json:"nombre,omitempty"`
	LastName string   `json:"apellido,omitempty"`
	Phone    string   `json:"telefono,omitempty"`
	Address  string   `json:"direccion,omitempty"`
	Lat      *float64 `json:"ubicacion_lat,omitempty"`
	Lng      *float64 `json:"ubicacion_lng,omitempty"`
}

type Service struct {
	api   gateway.API
	store Store
	log   *zap.Logger
}

func NewService(api gateway.API, store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, store: store, log: log.Named("auth")}
}

// Register creates an account. A token in the answer replaces the stored
// session, together with the new user when the answer carries one.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*LoginResponse, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	var out LoginResponse
	if _, err := s.api.Post(ctx, "usuarios/registro", in, &out); err != nil {
		return nil, fmt.Errorf("register %s: %w", in.Email, err)
	}
	if out.Token != "" {
		var u *user.User
		if out.User.ID != 0 {
			u = &out.User
		}
		if err := s.store.Clear(); err != nil {
			return nil, err
		}
		if err := s.store.Save(out.Token, u); err != nil {
			return nil, err
		}
	}
	s.log.Info("account registered", zap.String("email", in.Email), zap.Strings("roles", in.Roles))
	return &out, nil
}

// Login exchanges credentials for a token, stores token and user, and
// resolves the post-login destination from the user's roles.
func (s *Service) Login(ctx context.Context, c Credentials) (*LoginResult, error) {
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" || c.Password == "" {
		return nil, ErrMissingCredentials
	}

	var out LoginResponse
	resp, err := s.api.Post(ctx, "usuarios/login", c, &out)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", c.Email, err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login %s: answer carried no token", c.Email)
	}
	if err := s.store.Save(out.Token, &out.User); err != nil {
		return nil, err
	}

	res := &LoginResult{
		LoginResponse: out,
		Destination:   user.Destination(out.User.Roles),
		Offline:       resp != nil && resp.Fallback,
	}
	s.log.Info("logged in",
		zap.Int64("user", out.User.ID),
		zap.Strings("roles", out.User.Roles),
		zap.String("destination", res.Destination),
		zap.Bool("offline", res.Offline),
	)
	return res, nil
}

func (s *Service) Logout() error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.log.Info("logged out")
	return nil
}

// CurrentUser is the stored user, or nil.
func (s *Service) CurrentUser() *user.User { return s.store.User() }

func (s *Service) Profile(ctx context.Context) (*user.User, error) {
	var out struct {
		User user.User `json:"usuario"`
	}
	if _, err := s.api.Get(ctx, "usuarios/perfil", nil, &out); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &out.User, nil
}

// UpdateProfile saves the changes and refreshes the stored user.
func (s *Service) UpdateProfile(ctx context.Context, in ProfileUpdate) (*user.User, error) {
	var out struct {
		Message string    `json:"mensaje"`
		User    user.User `json:"usuario"`
	}
	if _, err := s.api.Put(ctx, "usuarios/perfil", in, &out); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if out.User.ID != 0 {
		if err := s.store.SetUser(&out.User); err != nil {
			return nil, err
		}
	}
	return &out.User, nil
}

type PhotoResponse struct {
	Message  string `json:"mensaje"`
	PhotoURL string `json:"foto_perfil_url"`
}

// UploadPhoto sends a profile picture as the multipart field "image".
func (s *Service) UploadPhoto(ctx context.Context, name string, r io.Reader) (*PhotoResponse, error) {
	var out PhotoResponse
	file := gateway.File{Field: "image", Name: name, Reader: r}
	if _, err := s.api.Upload(ctx, "usuarios/foto-perfil", file, nil, &out); err != nil {
		return nil, fmt.Errorf("upload profile photo: %w", err)
	}
	if u := s.store.User(); u != nil && out.PhotoURL != "" {
		u.PhotoURL = out.PhotoURL
		if err := s.store.SetUser(u); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (s *Service) DeletePhoto(ctx context.Context) error {
	if _, err := s.api.Delete(ctx, "usuarios/foto-perfil", nil); err != nil {
		return fmt.Errorf("delete profile photo: %w", err)
	}
	if u := s.store.User(); u != nil && u.PhotoURL != "" {
		u.PhotoURL = ""
		return s.store.SetUser(u)
	}
	return nil
}
