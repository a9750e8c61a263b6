package models

import (
	"time"
)

// Record represents one template card scraped from the listing page.
// A nil field means the element was not present on the card.
type Record struct {
	BackgroundImage *string `json:"bgImg"`
	ApplicationType *string `json:"appType"`
	Title           *string `json:"title"`
	Author          *string `json:"author"`
	Description     *string `json:"desc"`
	Price           *string `json:"price"`
	CopyCount       *int    `json:"copyCount"`
}

// Summary represents the outcome of a single export
type Summary struct {
	RunID      string        `json:"run_id"`
	URL        string        `json:"url"`
	Applicable bool          `json:"applicable"`
	Count      int           `json:"count"`
	Source     string        `json:"source,omitempty"`
	Output     string        `json:"output,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Status mirrors the state a trigger surface shows to the user
type Status struct {
	Applicable bool `json:"applicable"`
	InProgress bool `json:"in_progress"`
	Count      int  `json:"count"`
}

// String returns a pointer to s. Handy for building records in code.
func String(s string) *string {
	return &s
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}
