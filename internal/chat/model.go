package chat

import "github.com/sudo-init-do/efresco/internal/user"

// Message kinds
const (
	KindText  = "texto"
	KindImage = "imagen"
	KindFile  = "archivo"
)

type Chat struct {
	ID          int64        `json:"id_chat"`
	User1ID     int64        `json:"id_usuario_1"`
	User2ID     int64        `json:"id_usuario_2"`
	Type        string       `json:"tipo"`
	CreatedAt   string       `json:"fecha_creacion"`
	Active      bool         `json:"activo"`
	User1       user.Summary `json:"usuario1"`
	User2       user.Summary `json:"usuario2"`
	LastMessage *Message     `json:"ultimo_mensaje,omitempty"`
}

type Message struct {
	ID       int64        `json:"id_mensaje"`
	ChatID   int64        `json:"id_chat"`
	SenderID int64        `json:"id_usuario_remitente"`
	Content  string       `json:"contenido"`
	Kind     string       `json:"tipo_mensaje"`
	SentAt   string       `json:"fecha_envio"`
	Read     bool         `json:"leido"`
	Sender   user.Summary `json:"remitente"`
}

type CreateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    Chat   `json:"data"`
}

type SendResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Data    Message `json:"data"`
}

type ListResponse struct {
	Success bool   `json:"success"`
	Data    []Chat `json:"data"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

type MessagesPage struct {
	Messages   []Message  `json:"mensajes"`
	Pagination Pagination `json:"pagination"`
}

type MessagesResponse struct {
	Success bool         `json:"success"`
	Data    MessagesPage `json:"data"`
}
