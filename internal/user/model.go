package user

import (
	"slices"

	"github.com/sudo-init-do/efresco/internal/gateway"
)

// Roles as the backend spells them
const (
	RoleProducer = "productor"
	RoleBuyer    = "cliente"
	RoleAdmin    = "administrador"

	// RoleBuyerAlias is the signup spelling of RoleBuyer.
	RoleBuyerAlias = "comprador"
)

const PhotoPlaceholder = "/assets/images/user-placeholder.svg"

// User is the account as returned by login, profile and admin endpoints.
type User struct {
	ID          int64    `json:"id_usuario"`
	Name        string   `json:"nombre"`
	LastName    string   `json:"apellido,omitempty"`
	Email       string   `json:"email"`
	Phone       string   `json:"telefono,omitempty"`
	Address     string   `json:"direccion,omitempty"`
	Lat         *float64 `json:"ubicacion_lat,omitempty"`
	Lng         *float64 `json:"ubicacion_lng,omitempty"`
	Verified    bool     `json:"verificado"`
	Active      *bool    `json:"estado,omitempty"`
	Registered  string   `json:"fecha_registro,omitempty"`
	PhotoURL    string   `json:"foto_perfil_url,omitempty"`
	ImageURL    string   `json:"imagen_perfil,omitempty"`
	Roles       []string `json:"roles"`
	DailyAdCap  int      `json:"limite_anuncios_diarios,omitempty"`
	AdsToday    int      `json:"anuncios_publicados_hoy,omitempty"`
}

// Summary is the embedded participant shape used in chats, orders and ratings.
type Summary struct {
	ID       int64  `json:"id_usuario,omitempty"`
	Name     string `json:"nombre"`
	LastName string `json:"apellido,omitempty"`
	Phone    string `json:"telefono,omitempty"`
	Email    string `json:"email,omitempty"`
	ImageURL string `json:"imagen_perfil,omitempty"`
}

func (u *User) HasRole(role string) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.Name
	}
	return u.Name + " " + u.LastName
}

// Photo is the profile picture resolved against the backend origin. Profile
// endpoints send foto_perfil_url, older ones imagen_perfil.
func (u *User) Photo(origin string) string {
	ref := u.PhotoURL
	if ref == "" {
		ref = u.ImageURL
	}
	return gateway.ResolveAsset(origin, ref, PhotoPlaceholder)
}

func (s Summary) Photo(origin string) string {
	return gateway.ResolveAsset(origin, s.ImageURL, PhotoPlaceholder)
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, LastName: u.LastName, Phone: u.Phone, Email: u.Email, ImageURL: u.ImageURL}
}

// Destination is where a freshly logged-in user lands. Admin wins over
// producer, producer over buyer.
func Destination(roles []string) string {
	switch {
	case slices.Contains(roles, RoleAdmin):
		return "/admin"
	case slices.Contains(roles, RoleProducer):
		return "/dashboard/productor"
	case slices.Contains(roles, RoleBuyer), slices.Contains(roles, RoleBuyerAlias):
		return "/dashboard/comprador"
	default:
		return "/profile"
	}
}
