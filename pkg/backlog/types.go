package backlog

import "time"

// Epic is one backlog entry
type Epic struct {
	EpicID         string  `json:"id" validate:"required,max=255"`
	Name           string  `json:"name" validate:"max=255"`
	Description    string  `json:"description"`
	Priority       string  `json:"priority" validate:"max=50"`
	Status         string  `json:"status" validate:"max=50"`
	InitiativeName *string `json:"initiativeName,omitempty"`
	ThemeName      *string `json:"themeName,omitempty"`
	ThemeColor     *string `json:"themeColor,omitempty"`
}

// Backlog is a product's ordered list of epics
type Backlog struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Epics     []Epic    `json:"epics"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
