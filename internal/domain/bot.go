package domain

import "time"

type BotStatus string

const (
	BotOnline      BotStatus = "online"
	BotOffline     BotStatus = "offline"
	BotMaintenance BotStatus = "maintenance"
)

// Bot - чат-бот клиента. Поля Platform/Language/WelcomeMessage
// заполняются мастером настройки (Bot Setup).
type Bot struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Platform       string    `json:"platform,omitempty"` // telegram, whatsapp, web...
	Language       string    `json:"language,omitempty"`
	WelcomeMessage string    `json:"welcome_message,omitempty"`
	Owner          string    `json:"owner,omitempty"` // Имя агента, без проверки связи
	Status         BotStatus `json:"status"`

	Messages int64   `json:"messages"`
	Users    int64   `json:"users"`
	Revenue  float64 `json:"revenue"`

	CreatedAt time.Time `json:"created_at"`
}
