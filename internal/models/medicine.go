package models

import "time"

// Medicine представляет запись о лекарстве в личном списке пользователя
type Medicine struct {
	CreatedAt time.Time `json:"created_at"` // время добавления, неизменяемое
	ID        string    `json:"id"`         // UUID записи
	OwnerID   string    `json:"owner_id"`   // ID пользователя-владельца
	Name      string    `json:"name"`       // название лекарства
	Stock     int       `json:"stock"`      // остаток, неотрицательный
}
