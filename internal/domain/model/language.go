package model

type Language struct {
	ID       int    `json:"id"` // Sandbox language_id
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsActive bool   `json:"is_active"`
}
