// Package web отвечает за рендеринг HTML представлений.
// Обработчики передают сюда простые структуры данных
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/medkeep/medkeep/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders embedded HTML templates
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
	templates, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// Render executes the named template into the response
func (r *Renderer) Render(w http.ResponseWriter, name string, statusCode int, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

// SignupData данные формы регистрации
type SignupData struct {
	Email  string
	Errors []string
}

// LoginData данные формы входа
type LoginData struct {
	Error string
}

// DashboardData данные страницы после входа
type DashboardData struct {
	Username string
	Error    string
}

// MedicinesData данные страницы списка
type MedicinesData struct {
	Medicines   []*models.Medicine
	CurrentPage int
	TotalPages  int
}

// EditMedicineData данные формы редактирования
type EditMedicineData struct {
	Medicine *models.Medicine
}
