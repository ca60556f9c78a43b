package api

import "time"

// MedicineResponse представляет одну запись о лекарстве в JSON ответах
type MedicineResponse struct {
	CreatedAt time.Time `json:"created_at"` // время добавления
	ID        string    `json:"id"`         // UUID записи
	Name      string    `json:"name"`       // название лекарства
	Stock     int       `json:"stock"`      // остаток
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
