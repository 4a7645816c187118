package chat

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sudo-init-do/efresco/internal/gateway/gatewaytest"
	"github.com/sudo-init-do/efresco/internal/user"
)

func newService(t *testing.T) (*Service, *gatewaytest.Server) {
	srv := gatewaytest.NewServer(t)
	return NewService(srv.Client(), zaptest.NewLogger(t)), srv
}

func chatJSON(id, u1, u2 int64) map[string]any {
	return map[string]any{
		"id_chat": id, "id_usuario_1": u1, "id_usuario_2": u2, "tipo": "privado", "activo": true,
		"usuario1": map[string]any{"id_usuario": u1, "nombre": "Juan Carlos Pérez"},
		"usuario2": map[string]any{"id_usuario": u2, "nombre": "María González"},
	}
}

func messageJSON(id, chatID, sender int64, content string) map[string]any {
	return map[string]any{
		"id_mensaje": id, "id_chat": chatID, "id_usuario_remitente": sender,
		"contenido": content, "tipo_mensaje": "texto", "fecha_envio": "2025-11-23T14:05:00Z",
	}
}

func messagesReply(msgs ...map[string]any) map[string]any {
	return map[string]any{
		"success": true,
		"data":    map[string]any{"mensajes": msgs, "pagination": map[string]any{"total": len(msgs), "page": 1, "pages": 1}},
	}
}

func TestListAndCreateMaintainLocalChats(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply("GET chats", http.StatusOK, map[string]any{"success": true, "data": []any{chatJSON(1, 1, 2)}})
	srv.Reply("POST chat", http.StatusCreated, map[string]any{"success": true, "message": "Chat creado exitosamente", "data": chatJSON(9, 1, 3)})

	chats, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 1)

	c, err := svc.Create(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(9), c.ID)

	var body map[string]int64
	require.NoError(t, srv.Last().JSON(&body))
	assert.Equal(t, int64(3), body["id_usuario_destinatario"])

	local := svc.Chats()
	require.Len(t, local, 2)
	assert.Equal(t, int64(9), local[0].ID, "new chat goes first")

	found, ok := svc.FindWith(3)
	require.True(t, ok)
	assert.Equal(t, int64(9), found.ID)
	_, ok = svc.FindWith(42)
	assert.False(t, ok)
}

func TestListUnsuccessfulIsEmpty(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply("GET chats", http.StatusOK, map[string]any{"success": false})

	chats, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestSendAppendsAndUpdatesLastMessage(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply("GET chats", http.StatusOK, map[string]any{"success": true, "data": []any{chatJSON(1, 1, 2), chatJSON(2, 1, 3)}})
	srv.Reply("GET chat/1/mensajes", http.StatusOK, messagesReply(messageJSON(1, 1, 1, "Hola")))
	srv.Reply("POST chat/1/mensajes", http.StatusCreated, map[string]any{
		"success": true, "message": "Mensaje enviado exitosamente", "data": messageJSON(2, 1, 1, "¿Precio?"),
	})

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	_, err = svc.Messages(context.Background(), 1, 1)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), 1, "  ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = svc.Send(context.Background(), 1, "hola", "video")
	assert.Error(t, err)

	msg, err := svc.Send(context.Background(), 1, " ¿Precio? ", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), msg.ID)

	var body map[string]string
	require.NoError(t, srv.Last().JSON(&body))
	assert.Equal(t, "¿Precio?", body["contenido"])
	assert.Equal(t, KindText, body["tipo_mensaje"])

	msgs := svc.CurrentMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(2), msgs[1].ID)

	chats := svc.Chats()
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, int64(2), chats[0].LastMessage.ID)
	assert.Nil(t, chats[1].LastMessage)
}

func TestMessagesPagingAndMarkRead(t *testing.T) {
	svc, srv := newService(t)
	srv.Handle("GET chat/1/mensajes", func(c gatewaytest.Call) (int, any) {
		if c.Query.Get("page") == "2" {
			return http.StatusOK, messagesReply(messageJSON(1, 1, 2, "viejo"))
		}
		return http.StatusOK, messagesReply(messageJSON(5, 1, 2, "nuevo"))
	})
	srv.Reply("PUT chat/1/mensajes/marcar-leidos", http.StatusOK, map[string]any{"success": true, "message": "Mensajes marcados como leídos"})

	_, err := svc.Messages(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "1", srv.Last().Query.Get("page"))
	_, err = svc.Messages(context.Background(), 1, 2)
	require.NoError(t, err)

	msgs := svc.CurrentMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "viejo", msgs[0].Content)
	assert.Equal(t, "nuevo", msgs[1].Content)

	require.NoError(t, svc.MarkRead(context.Background(), 1))
	for _, m := range svc.CurrentMessages() {
		assert.True(t, m.Read)
	}

	_, err = svc.Messages(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Len(t, svc.CurrentMessages(), 1, "page one replaces")
}

func TestParticipantHelpers(t *testing.T) {
	c := Chat{
		User1ID: 1, User2ID: 2,
		User1: user.Summary{ID: 1, Name: "Juan"},
		User2: user.Summary{ID: 2, Name: "María"},
	}
	assert.Equal(t, "María", OtherParticipant(c, 1).Name)
	assert.Equal(t, "Juan", OtherParticipant(c, 2).Name)

	assert.True(t, IsOwn(Message{SenderID: 1}, 1))
	assert.False(t, IsOwn(Message{SenderID: 2}, 1))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 11, 23, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		sent string
		want string
	}{
		{"2025-11-23T14:59:30Z", "Ahora"},
		{"2025-11-23T14:45:00Z", "15m"},
		{"2025-11-23T12:00:00Z", "3h"},
		{"2025-11-20T15:00:00Z", "3d"},
		{"2025-11-02T10:00:00Z", "2 nov"},
		{"ayer", "ayer"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeTime(tt.sent, now), tt.sent)
	}
}
