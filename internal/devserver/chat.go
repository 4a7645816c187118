package devserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/efresco/internal/chat"
	mw "github.com/sudo-init-do/efresco/internal/middleware"
)

const messagesPerPage = 50

func inChat(c *chat.Chat, id int64) bool { return c.User1ID == id || c.User2ID == id }

func (s *Server) listChats(c echo.Context) error {
	me := mw.UserID(c)
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []chat.Chat{}
	for i := len(s.db.chats) - 1; i >= 0; i-- {
		ch := s.db.chats[i]
		if inChat(&ch, me) {
			out = append(out, s.db.withLastMessage(ch))
		}
	}
	return c.JSON(http.StatusOK, chat.ListResponse{Success: true, Data: out})
}

// createChat opens a conversation with the recipient, or returns the one
// that already exists between the two.
func (s *Server) createChat(c echo.Context) error {
	var req struct {
		Recipient int64 `json:"id_usuario_destinatario" validate:"required,gt=0"`
	}
	if ok, err := bind(c, &req); !ok {
		return err
	}
	me := mw.UserID(c)
	if req.Recipient == me {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "no puedes chatear contigo mismo"})
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[req.Recipient]; !ok {
		return notFound(c, "Usuario")
	}
	for _, ch := range s.db.chats {
		if inChat(&ch, me) && inChat(&ch, req.Recipient) {
			return c.JSON(http.StatusOK, chat.CreateResponse{Success: true, Message: "Chat existente", Data: s.db.withLastMessage(ch)})
		}
	}
	ch := chat.Chat{
		ID:        s.db.nextID("chat"),
		User1ID:   me,
		User2ID:   req.Recipient,
		Type:      "privado",
		CreatedAt: s.db.timestamp(),
		Active:    true,
		User1:     s.db.summary(me),
		User2:     s.db.summary(req.Recipient),
	}
	s.db.chats = append(s.db.chats, ch)
	return c.JSON(http.StatusCreated, chat.CreateResponse{Success: true, Message: "Chat creado exitosamente", Data: ch})
}

// memberChat finds a chat the caller belongs to.
func (s *Server) memberChat(c echo.Context) (*chat.Chat, error) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, badID(c)
	}
	ch, ok := s.db.chat(id)
	if !ok {
		return nil, notFound(c, "Chat")
	}
	if !inChat(ch, mw.UserID(c)) {
		return nil, forbidden(c)
	}
	return ch, nil
}

// listMessages pages backwards from the newest message: page 1 is the most
// recent, each page in sending order.
func (s *Server) listMessages(c echo.Context) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	ch, err := s.memberChat(c)
	if ch == nil {
		return err
	}
	var all []chat.Message
	for _, m := range s.db.messages {
		if m.ChatID == ch.ID {
			all = append(all, m)
		}
	}

	p, limit := pageParams(c, messagesPerPage)
	total := len(all)
	pages := max((total+limit-1)/limit, 1)
	// pages count back from the newest message
	end := total - offset(p, limit, total)
	start := max(end-limit, 0)
	msgs := make([]chat.Message, end-start)
	copy(msgs, all[start:end])

	return c.JSON(http.StatusOK, chat.MessagesResponse{
		Success: true,
		Data: chat.MessagesPage{
			Messages:   msgs,
			Pagination: chat.Pagination{Total: total, Page: p, Pages: pages},
		},
	})
}

func (s *Server) sendMessage(c echo.Context) error {
	var req struct {
		Content string `json:"contenido" validate:"required"`
		Kind    string `json:"tipo_mensaje" validate:"omitempty,oneof=texto imagen archivo"`
	}
	if ok, err := bind(c, &req); !ok {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "el mensaje está vacío"})
	}
	if req.Kind == "" {
		req.Kind = chat.KindText
	}
	me := mw.UserID(c)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ch, err := s.memberChat(c)
	if ch == nil {
		return err
	}
	m := chat.Message{
		ID:       s.db.nextID("message"),
		ChatID:   ch.ID,
		SenderID: me,
		Content:  content,
		Kind:     req.Kind,
		SentAt:   s.db.timestamp(),
		Sender:   s.db.summary(me),
	}
	s.db.messages = append(s.db.messages, m)
	return c.JSON(http.StatusCreated, chat.SendResponse{Success: true, Message: "Mensaje enviado exitosamente", Data: m})
}

// markRead flags the messages the other participant sent as read.
func (s *Server) markRead(c echo.Context) error {
	me := mw.UserID(c)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ch, err := s.memberChat(c)
	if ch == nil {
		return err
	}
	n := 0
	for i := range s.db.messages {
		m := &s.db.messages[i]
		if m.ChatID == ch.ID && m.SenderID != me && !m.Read {
			m.Read = true
			n++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Mensajes marcados como leídos", "actualizados": n})
}
