package telegram

import "strconv"

// Update входящее событие вебхука Bot API. Из всех полей используются
// только данные обычного сообщения.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message сообщение из чата.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      *Chat  `json:"chat"`
	Text      string `json:"text"`
}

// User отправитель сообщения.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat чат, в который нужно отвечать.
type Chat struct {
	ID int64 `json:"id"`
}

// UserID идентификатор отправителя в строковом виде. Если отправитель
// не указан, используется id чата.
func (m *Message) UserID() string {
	if m.From != nil && m.From.ID != 0 {
		return strconv.FormatInt(m.From.ID, 10)
	}
	if m.Chat == nil {
		return ""
	}
	return strconv.FormatInt(m.Chat.ID, 10)
}

// DisplayName имя отправителя, может быть пустым.
func (m *Message) DisplayName() string {
	if m.From == nil {
		return ""
	}
	if m.From.FirstName != "" {
		return m.From.FirstName
	}
	return m.From.Username
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type sendChatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}
