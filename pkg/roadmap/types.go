package roadmap

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of item dates
const DateLayout = "2006-01-02"

// Item is one epic scheduled in a roadmap
type Item struct {
	EpicID          string   `json:"epicId" validate:"required,max=255"`
	EpicName        string   `json:"epicName" validate:"max=255"`
	EpicDescription string   `json:"epicDescription"`
	Priority        string   `json:"priority" validate:"max=50"`
	Status          string   `json:"status" validate:"max=50"`
	EstimatedEffort string   `json:"estimatedEffort" validate:"max=100"`
	AssignedTeam    string   `json:"assignedTeam" validate:"max=255"`
	Reach           *int     `json:"reach,omitempty"`
	Impact          *int     `json:"impact,omitempty"`
	Confidence      *int     `json:"confidence,omitempty"`
	RiceScore       *float64 `json:"riceScore,omitempty"`
	EffortRating    *int     `json:"effortRating,omitempty" validate:"omitempty,min=1,max=5"`
	StartDate       string   `json:"startDate,omitempty"`
	EndDate         string   `json:"endDate,omitempty"`
	InitiativeName  *string  `json:"initiativeName,omitempty"`
	ThemeName       *string  `json:"themeName,omitempty"`
	ThemeColor      *string  `json:"themeColor,omitempty"`
}

// Roadmap is a product's plan for one quarter
type Roadmap struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Year      int       `json:"year"`
	Quarter   int       `json:"quarter"`
	Items     []Item    `json:"roadmapItems"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Placement records that an epic is scheduled in a quarter
type Placement struct {
	EpicID   string
	EpicName string
	Year     int
	Quarter  int
}

// Conflict is an incoming epic already scheduled in another quarter
type Conflict struct {
	EpicName string `json:"epicName"`
	Year     int    `json:"year"`
	Quarter  int    `json:"quarter"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s (Q%d %d)", c.EpicName, c.Quarter, c.Year)
}
