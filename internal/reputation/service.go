// Package reputation rates users after an order and summarizes the ratings
// they received.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/validation"
)

var ErrInvalidRating = errors.New("invalid rating")

type Service struct {
	api gateway.API
	log *zap.Logger

	mu    sync.Mutex
	given []Rating
}

func NewService(api gateway.API, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, log: log.Named("reputation")}
}

// Validate checks a rating before it is sent.
func Validate(in RateInput) error {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRating, err)
	}
	return nil
}

// Rate sends a rating. Ratings accepted by the server are kept, newest
// first, in Given.
func (s *Service) Rate(ctx context.Context, in RateInput) (*RateResponse, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := Validate(in); err != nil {
		return nil, err
	}
	var out RateResponse
	if _, err := s.api.Post(ctx, "reputacion", in, &out); err != nil {
		return nil, fmt.Errorf("rate user %d: %w", in.RatedID, err)
	}
	if out.Rating.Score > 0 {
		s.mu.Lock()
		s.given = append([]Rating{out.Rating}, s.given...)
		s.mu.Unlock()
	}
	s.log.Info("user rated", zap.Int64("user", in.RatedID), zap.Int64("order", in.OrderID), zap.Int("score", in.Score))
	return &out, nil
}

// Given lists the ratings sent through this service.
func (s *Service) Given() []Rating {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.given)
}

func (s *Service) User(ctx context.Context, id int64) (*UserReputation, error) {
	var out UserReputation
	if _, err := s.api.Get(ctx, "reputacion/usuario/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, fmt.Errorf("get reputation of user %d: %w", id, err)
	}
	return &out, nil
}

// Mine lists the ratings the caller received.
func (s *Service) Mine(ctx context.Context) ([]Rating, error) {
	var out struct {
		Ratings []Rating `json:"calificaciones"`
	}
	if _, err := s.api.Get(ctx, "reputacion/mis-calificaciones", nil, &out); err != nil {
		return nil, fmt.Errorf("list my ratings: %w", err)
	}
	return out.Ratings, nil
}

func (s *Service) CanRate(ctx context.Context, orderID, userID int64) (*Eligibility, error) {
	var out Eligibility
	path := fmt.Sprintf("reputacion/puede-calificar/%d/%d", orderID, userID)
	if _, err := s.api.Get(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("check rating of user %d on order %d: %w", userID, orderID, err)
	}
	return &out, nil
}

func (s *Service) Pending(ctx context.Context) ([]PendingRating, error) {
	var out struct {
		Pending []PendingRating `json:"pedidos_pendientes"`
	}
	if _, err := s.api.Get(ctx, "reputacion/pendientes", nil, &out); err != nil {
		return nil, fmt.Errorf("list pending ratings: %w", err)
	}
	return out.Pending, nil
}

// Summarize aggregates ratings. The average is rounded to one decimal.
// Scores outside 1..5 are ignored.
func Summarize(ratings []Rating) Stats {
	var st Stats
	sum := 0
	for _, r := range ratings {
		if r.Score < 1 || r.Score > 5 {
			continue
		}
		st.Total++
		sum += r.Score
		st.Distribution.add(r.Score)
	}
	if st.Total > 0 {
		st.Average = math.Round(float64(sum)/float64(st.Total)*10) / 10
	}
	return st
}

type StarCount struct {
	Stars   int
	Count   int
	Percent int
}

// Breakdown lists five to one stars with their count and share of the total.
func Breakdown(st Stats) []StarCount {
	out := make([]StarCount, 0, 5)
	for stars := 5; stars >= 1; stars-- {
		n := st.Distribution.Count(stars)
		out = append(out, StarCount{Stars: stars, Count: n, Percent: Percent(n, st.Total)})
	}
	return out
}

// Percent is count/total as a rounded percentage, 0 when total is 0.
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

func Label(avg float64) string {
	switch {
	case avg >= 4.8:
		return "Excelente"
	case avg >= 4.5:
		return "Muy bueno"
	case avg >= 4.0:
		return "Bueno"
	case avg >= 3.5:
		return "Regular"
	case avg >= 3.0:
		return "Aceptable"
	default:
		return "Mejorable"
	}
}

// Stars draws a score as filled and empty stars.
func Stars(score int) string {
	score = max(0, min(5, score))
	return strings.Repeat("★", score) + strings.Repeat("☆", 5-score)
}

type Icon string

const (
	IconFull  Icon = "full"
	IconHalf  Icon = "half"
	IconEmpty Icon = "empty"
)

// Icons renders an average as five star icons. A star is half filled when
// the average reaches at least half of it.
func Icons(avg float64) []Icon {
	out := make([]Icon, 5)
	for i := 1; i <= 5; i++ {
		switch {
		case avg >= float64(i):
			out[i-1] = IconFull
		case avg >= float64(i)-0.5:
			out[i-1] = IconHalf
		default:
			out[i-1] = IconEmpty
		}
	}
	return out
}

var months = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// Age describes when a rating was given: today, yesterday, days or weeks
// ago, then the plain date.
func Age(ratedAt string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, ratedAt)
	if err != nil {
		return ratedAt
	}
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "Hoy"
	case days == 1:
		return "Ayer"
	case days < 7:
		return fmt.Sprintf("Hace %d días", days)
	case days < 30:
		weeks := days / 7
		if weeks > 1 {
			return fmt.Sprintf("Hace %d semanas", weeks)
		}
		return "Hace 1 semana"
	}
	t = t.In(now.Location())
	return fmt.Sprintf("%d %s %d", t.Day(), months[t.Month()-1], t.Year())
}
