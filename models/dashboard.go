package models

import (
	"encoding/json"
	"time"
)

type Dashboard struct {
	ID          string          `json:"id"`
	GoogleID    string          `json:"-"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Theme       string          `json:"theme"`
	IsPublic    bool            `json:"isPublic"`
	Layout      json.RawMessage `json:"layout,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

var dashboardThemes = map[string]bool{
	"default": true,
	"dark":    true,
	"light":   true,
	"custom":  true,
}

// ValidDashboardTheme reports whether theme is one of the supported values.
func ValidDashboardTheme(theme string) bool {
	return dashboardThemes[theme]
}
