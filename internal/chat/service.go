// Package chat holds private conversations between buyers and producers.
// Service mirrors the server's chats and the open conversation's messages;
// Poller keeps that conversation fresh.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/user"
)

var ErrEmptyMessage = errors.New("message is empty")

type Service struct {
	api gateway.API
	log *zap.Logger

	mu       sync.RWMutex
	chats    []Chat
	messages []Message
}

func NewService(api gateway.API, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, log: log.Named("chat")}
}

// Create opens a chat with recipient. A successful chat is put first in the
// local list.
func (s *Service) Create(ctx context.Context, recipient int64) (*Chat, error) {
	if recipient <= 0 {
		return nil, fmt.Errorf("invalid recipient %d", recipient)
	}
	var out CreateResponse
	body := map[string]int64{"id_usuario_destinatario": recipient}
	if _, err := s.api.Post(ctx, "chat", body, &out); err != nil {
		return nil, fmt.Errorf("create chat with user %d: %w", recipient, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("create chat with user %d: %s", recipient, out.Message)
	}
	s.mu.Lock()
	s.chats = append([]Chat{out.Data}, s.chats...)
	s.mu.Unlock()
	return &out.Data, nil
}

// List fetches the caller's chats and replaces the local list.
func (s *Service) List(ctx context.Context) ([]Chat, error) {
	var out ListResponse
	if _, err := s.api.Get(ctx, "chats", nil, &out); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if !out.Success {
		return []Chat{}, nil
	}
	s.mu.Lock()
	s.chats = slices.Clone(out.Data)
	s.mu.Unlock()
	return out.Data, nil
}

// Send posts a message. kind defaults to text. The message is appended
// locally and becomes its chat's last message.
func (s *Service) Send(ctx context.Context, chatID int64, content, kind string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	switch kind {
	case "":
		kind = KindText
	case KindText, KindImage, KindFile:
	default:
		return nil, fmt.Errorf("unknown message kind %q", kind)
	}

	var out SendResponse
	body := map[string]string{"contenido": content, "tipo_mensaje": kind}
	if _, err := s.api.Post(ctx, messagesPath(chatID), body, &out); err != nil {
		return nil, fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("send message to chat %d: %s", chatID, out.Message)
	}

	msg := out.Data
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			m := msg
			s.chats[i].LastMessage = &m
		}
	}
	s.mu.Unlock()
	return &msg, nil
}

// Messages fetches one page of a chat. Page 1 replaces the local messages;
// later pages hold older messages and are put in front.
func (s *Service) Messages(ctx context.Context, chatID int64, page int) (*MessagesPage, error) {
	if page < 1 {
		page = 1
	}
	var out MessagesResponse
	q := url.Values{"page": {strconv.Itoa(page)}}
	if _, err := s.api.Get(ctx, messagesPath(chatID), q, &out); err != nil {
		return nil, fmt.Errorf("get messages of chat %d: %w", chatID, err)
	}
	if out.Success {
		s.mu.Lock()
		if page == 1 {
			s.messages = slices.Clone(out.Data.Messages)
		} else {
			s.messages = append(slices.Clone(out.Data.Messages), s.messages...)
		}
		s.mu.Unlock()
	}
	return &out.Data, nil
}

// MarkRead flags the chat read on the server and every local message read.
func (s *Service) MarkRead(ctx context.Context, chatID int64) error {
	if _, err := s.api.Put(ctx, messagesPath(chatID)+"/marcar-leidos", struct{}{}, nil); err != nil {
		return fmt.Errorf("mark chat %d read: %w", chatID, err)
	}
	s.mu.Lock()
	for i := range s.messages {
		s.messages[i].Read = true
	}
	s.mu.Unlock()
	return nil
}

// Chats is a snapshot of the local chat list.
func (s *Service) Chats() []Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chats)
}

// CurrentMessages is a snapshot of the open conversation.
func (s *Service) CurrentMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

func (s *Service) clearMessages() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// FindWith returns the local chat that has userID as either participant.
func (s *Service) FindWith(userID int64) (Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chats {
		if c.User1ID == userID || c.User2ID == userID {
			return c, true
		}
	}
	return Chat{}, false
}

// OtherParticipant is the side of c that is not me.
func OtherParticipant(c Chat, me int64) user.Summary {
	if c.User1ID == me {
		return c.User2
	}
	return c.User1
}

func IsOwn(m Message, me int64) bool { return m.SenderID == me }

var shortMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// RelativeTime renders a send date the way the chat list shows it: "Ahora",
// minutes, hours or days ago, and "2 nov" after a week.
func RelativeTime(sentAt string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, sentAt)
	if err != nil {
		return sentAt
	}
	d := now.Sub(t)
	minutes := int(d / time.Minute)
	hours := minutes / 60
	days := hours / 24
	switch {
	case minutes < 1:
		return "Ahora"
	case minutes < 60:
		return strconv.Itoa(minutes) + "m"
	case hours < 24:
		return strconv.Itoa(hours) + "h"
	case days < 7:
		return strconv.Itoa(days) + "d"
	}
	t = t.In(now.Location())
	return strconv.Itoa(t.Day()) + " " + shortMonths[t.Month()-1]
}

func messagesPath(chatID int64) string {
	return "chat/" + strconv.FormatInt(chatID, 10) + "/mensajes"
}
