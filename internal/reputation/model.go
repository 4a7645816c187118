package reputation

import "github.com/sudo-init-do/efresco/internal/user"

// Rating is one score a user gave another after an order.
type Rating struct {
	ID      int64         `json:"id"`
	RaterID int64         `json:"id_usuario_calificador,omitempty"`
	RatedID int64         `json:"id_usuario_calificado"`
	Score   int           `json:"puntuacion"`
	Comment string        `json:"comentario"`
	RatedAt string        `json:"fecha_calificacion"`
	OrderID int64         `json:"id_pedido"`
	Rater   *user.Summary `json:"calificador,omitempty"`
}

// Distribution counts ratings per star value.
type Distribution struct {
	Five  int `json:"5_estrellas"`
	Four  int `json:"4_estrellas"`
	Three int `json:"3_estrellas"`
	Two   int `json:"2_estrellas"`
	One   int `json:"1_estrella"`
}

// Count returns the number of ratings with the given stars.
func (d Distribution) Count(stars int) int {
	switch stars {
	case 5:
		return d.Five
	case 4:
		return d.Four
	case 3:
		return d.Three
	case 2:
		return d.Two
	case 1:
		return d.One
	}
	return 0
}

func (d *Distribution) add(stars int) {
	switch stars {
	case 5:
		d.Five++
	case 4:
		d.Four++
	case 3:
		d.Three++
	case 2:
		d.Two++
	case 1:
		d.One++
	}
}

type Stats struct {
	Average      float64      `json:"promedio_puntuacion"`
	Total        int          `json:"total_calificaciones"`
	Distribution Distribution `json:"distribucion"`
}

// UserReputation is a user's public standing.
type UserReputation struct {
	User   user.Summary `json:"usuario"`
	Stats  Stats        `json:"estadisticas"`
	Recent []Rating     `json:"calificaciones_recientes"`
}

// RateInput is the body for rating a user. Comment is trimmed before it is
// checked.
type RateInput struct {
	RatedID int64  `json:"id_usuario_calificado" validate:"required,gt=0"`
	Score   int    `json:"puntuacion" validate:"required,min=1,max=5"`
	Comment string `json:"comentario" validate:"required,min=10,max=500"`
	OrderID int64  `json:"id_pedido" validate:"required,gt=0"`
}

type RateResponse struct {
	Message string `json:"mensaje"`
	Rating  Rating `json:"reputacion"`
}

// PendingRating is a finished order whose counterpart has not been rated.
type PendingRating struct {
	OrderID     int64        `json:"id_pedido"`
	User        user.Summary `json:"usuario_calificar"`
	Product     string       `json:"producto"`
	DeliveredAt string       `json:"fecha_entrega"`
}

type Eligibility struct {
	CanRate bool   `json:"puede_calificar"`
	Reason  string `json:"razon,omitempty"`
}
