package devserver

import (
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/efresco/internal/auth"
	mw "github.com/sudo-init-do/efresco/internal/middleware"
	"github.com/sudo-init-do/efresco/internal/user"
)

func (s *Server) login(c echo.Context) error {
	var req auth.Credentials
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email y password son requeridos"})
	}

	s.db.mu.RLock()
	acc, ok := s.db.userByEmail(email)
	var u user.User
	var hash []byte
	active := false
	if ok {
		u, hash, active = acc.User, acc.hash, acc.active()
	}
	s.db.mu.RUnlock()

	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "credenciales inválidas"})
	}
	if !active {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cuenta desactivada"})
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "credenciales inválidas"})
	}

	token, err := s.tokens.Issue(u.ID, u.Roles)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	s.log.Info("login", zap.Int64("user", u.ID))
	return c.JSON(http.StatusOK, auth.LoginResponse{Message: "Login exitoso", User: u, Token: token})
}

func (s *Server) register(c echo.Context) error {
	var req auth.RegisterInput
	if ok, err := bind(c, &req); !ok {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.db.cost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	roles := make([]string, 0, len(req.Roles))
	for _, r := range req.Roles {
		// buyers sign up as "comprador" but are stored as clients
		if r == "comprador" {
			r = user.RoleBuyer
		}
		if !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}

	s.db.mu.Lock()
	if _, taken := s.db.userByEmail(req.Email); taken {
		s.db.mu.Unlock()
		return c.JSON(http.StatusConflict, echo.Map{"error": "el email ya está registrado"})
	}
	active := true
	acc := &account{
		User: user.User{
			ID:         s.db.nextID("user"),
			Name:       strings.TrimSpace(req.Name),
			LastName:   strings.TrimSpace(req.LastName),
			Email:      strings.TrimSpace(req.Email),
			Phone:      req.Phone,
			Address:    req.Address,
			Active:     &active,
			Registered: s.db.timestamp(),
			Roles:      roles,
		},
		hash: hashed,
	}
	s.db.users[acc.ID] = acc
	u := acc.User
	s.db.mu.Unlock()

	token, err := s.tokens.Issue(u.ID, u.Roles)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	s.log.Info("user registered", zap.Int64("user", u.ID), zap.Strings("roles", u.Roles))
	return c.JSON(http.StatusCreated, auth.LoginResponse{Message: "Usuario registrado exitosamente", User: u, Token: token})
}

// profile returns the currently authenticated user's profile
func (s *Server) profile(c echo.Context) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	acc, ok := s.db.users[mw.UserID(c)]
	if !ok {
		return notFound(c, "Usuario")
	}
	return c.JSON(http.StatusOK, echo.Map{"usuario": acc.User})
}

func (s *Server) updateProfile(c echo.Context) error {
	var req auth.ProfileUpdate
	if ok, err := bind(c, &req); !ok {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	acc, ok := s.db.users[mw.UserID(c)]
	if !ok {
		return notFound(c, "Usuario")
	}
	setString(&acc.Name, req.Name)
	setString(&acc.LastName, req.LastName)
	setString(&acc.Phone, req.Phone)
	setString(&acc.Address, req.Address)
	if req.Lat != nil {
		acc.Lat = req.Lat
	}
	if req.Lng != nil {
		acc.Lng = req.Lng
	}
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Perfil actualizado", "usuario": acc.User})
}

func (s *Server) uploadPhoto(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file is required"})
	}
	id := mw.UserID(c)
	url := "/uploads/usuarios/" + strconv.FormatInt(id, 10) + "/" + filepath.Base(file.Filename)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	acc, ok := s.db.users[id]
	if !ok {
		return notFound(c, "Usuario")
	}
	acc.PhotoURL = url
	return c.JSON(http.StatusOK, auth.PhotoResponse{Message: "Foto de perfil actualizada", PhotoURL: url})
}

func (s *Server) deletePhoto(c echo.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	acc, ok := s.db.users[mw.UserID(c)]
	if !ok {
		return notFound(c, "Usuario")
	}
	acc.PhotoURL = ""
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Foto de perfil eliminada"})
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
