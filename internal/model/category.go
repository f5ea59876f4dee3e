package model

import "time"

// CategoryID is the question provider's identifier for a category
type CategoryID int

// Category is a topic games can draw questions from
type Category struct {
	ID              CategoryID
	Name            string
	Available       bool // false once the provider stops listing it
	TotalQuestions  int
	EasyQuestions   int
	MediumQuestions int
	HardQuestions   int
	UpdatedAt       time.Time
}
