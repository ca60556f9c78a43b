package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/medkeep/medkeep/internal/server/inventory"
	"github.com/medkeep/medkeep/internal/server/storage"
	"github.com/medkeep/medkeep/internal/server/web"
	"github.com/medkeep/medkeep/pkg/api"
)

// MedicineHandler обрабатывает операции над личным списком лекарств
type MedicineHandler struct {
	logger      *slog.Logger
	inventory   *inventory.Service
	userStorage storage.UserStorage
	renderer    *web.Renderer
}

// NewMedicineHandler создает новый handler для инвентаря
func NewMedicineHandler(
	logger *slog.Logger,
	inventoryService *inventory.Service,
	userStorage storage.UserStorage,
	renderer *web.Renderer,
) *MedicineHandler {
	return &MedicineHandler{
		logger:      logger,
		inventory:   inventoryService,
		userStorage: userStorage,
		renderer:    renderer,
	}
}

// Add обрабатывает POST /addMedicine
// Создает запись. При достигнутом лимите возвращает dashboard
// с сообщением об ошибке вместо редиректа
func (h *MedicineHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "failed to parse add medicine form", slog.Any("error", err))
		h.renderDashboard(r, w, userID, http.StatusBadRequest, "invalid form data")
		return
	}

	name := r.PostFormValue("medicineName")
	stock, err := strconv.Atoi(r.PostFormValue("stock"))
	if err != nil {
		h.renderDashboard(r, w, userID, http.StatusBadRequest, "stock must be a number")
		return
	}

	if _, err := h.inventory.Add(ctx, userID, name, stock); err != nil {
		switch {
		case errors.Is(err, storage.ErrCapExceeded):
			h.logger.WarnContext(ctx, "medicine cap reached", slog.String("user_id", userID))
			h.renderDashboard(r, w, userID, http.StatusOK,
				fmt.Sprintf("You can only add up to %d medicines.", h.inventory.MaxPerOwner()))
		case errors.Is(err, inventory.ErrEmptyName), errors.Is(err, inventory.ErrNegativeStock):
			h.renderDashboard(r, w, userID, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(ctx, "failed to add medicine", slog.Any("error", err))
			http.Redirect(w, r, "/dashboard", http.StatusFound)
		}
		return
	}

	http.Redirect(w, r, "/medicines", http.StatusSeeOther)
}

// List обрабатывает GET /medicines
// Постраничный список записей владельца, новые первыми.
// Некорректный или отсутствующий page трактуется как первая страница
func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}

	result, err := h.inventory.List(ctx, userID, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list medicines", slog.Any("error", err))
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	h.render(r, w, "medicines.html", http.StatusOK, web.MedicinesData{
		Medicines:   result.Items,
		CurrentPage: result.CurrentPage,
		TotalPages:  result.TotalPages,
	})
}

// Search обрабатывает GET /searchMedicines
// Возвращает JSON массив записей владельца, имя которых содержит
// query без учета регистра. Пустой query возвращает весь список
func (h *MedicineHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// В режиме открытых маршрутов запрос может быть без сессии:
	// пустой владелец не соответствует ни одной записи
	userID, _ := GetUserID(ctx)

	query := r.URL.Query().Get("query")

	medicines, err := h.inventory.Search(ctx, userID, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to search medicines", slog.Any("error", err))
		h.sendError(w, "error searching medicines", http.StatusInternalServerError)
		return
	}

	resp := make([]api.MedicineResponse, 0, len(medicines))
	for _, m := range medicines {
		resp = append(resp, api.MedicineResponse{
			ID:        m.ID,
			Name:      m.Name,
			Stock:     m.Stock,
			CreatedAt: m.CreatedAt,
		})
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// EditForm обрабатывает GET /editMedicine/{id}
func (h *MedicineHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := GetUserID(ctx)
	id := r.PathValue("id")

	medicine, err := h.inventory.Get(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrMedicineNotFound) {
			http.Error(w, "Medicine not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get medicine", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.render(r, w, "edit_medicine.html", http.StatusOK, web.EditMedicineData{
		Medicine: medicine,
	})
}

// Update обрабатывает POST /updateMedicine/{id}
// Заменяет имя и остаток записи, владелец и время создания не меняются
func (h *MedicineHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := GetUserID(ctx)
	id := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "failed to parse update form", slog.Any("error", err))
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	name := r.PostFormValue("medicineName")
	stock, err := strconv.Atoi(r.PostFormValue("stock"))
	if err != nil {
		http.Error(w, "stock must be a number", http.StatusBadRequest)
		return
	}

	if err := h.inventory.Update(ctx, id, userID, name, stock); err != nil {
		switch {
		case errors.Is(err, storage.ErrMedicineNotFound):
			http.Error(w, "Medicine not found", http.StatusNotFound)
		case errors.Is(err, inventory.ErrEmptyName), errors.Is(err, inventory.ErrNegativeStock):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.ErrorContext(ctx, "failed to update medicine", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, "/medicines", http.StatusSeeOther)
}

// Delete обрабатывает GET /deleteMedicine/{id}
// Идемпотентен: удаление отсутствующей записи тоже ведет на список
func (h *MedicineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := GetUserID(ctx)
	id := r.PathValue("id")

	if err := h.inventory.Delete(ctx, id, userID); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete medicine", slog.Any("error", err))
	}

	http.Redirect(w, r, "/medicines", http.StatusFound)
}

// renderDashboard рендерит dashboard с сообщением об ошибке
func (h *MedicineHandler) renderDashboard(r *http.Request, w http.ResponseWriter, userID string, statusCode int, errMsg string) {
	ctx := r.Context()

	var username string
	if user, err := h.userStorage.GetUserByID(ctx, userID); err == nil {
		username = user.Username
	}

	h.render(r, w, "dashboard.html", statusCode, web.DashboardData{
		Username: username,
		Error:    errMsg,
	})
}

// render рендерит шаблон и логирует ошибку рендеринга
func (h *MedicineHandler) render(r *http.Request, w http.ResponseWriter, name string, statusCode int, data any) {
	if err := h.renderer.Render(w, name, statusCode, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render template",
			slog.String("template", name),
			slog.Any("error", err))
	}
}

// sendJSON отправляет JSON ответ
func (h *MedicineHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *MedicineHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}
