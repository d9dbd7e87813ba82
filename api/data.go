package main

import "time"

// Optional text columns are empty strings when NULL in the store.
type task struct {
	ID               int        `json:"id"`
	Title            string     `json:"title"`
	Body             string     `json:"body,omitempty"`
	ReminderAt       *time.Time `json:"reminder_at,omitempty"`
	ReminderNote     string     `json:"reminder_note,omitempty"`
	AIRecommendation string     `json:"ai_recommendation,omitempty"`
	Completed        bool       `json:"completed"`
	Archived         bool       `json:"archived"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type subscriber struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
