// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidSubmission is the kind shared by all structural submission failures.
var ErrInvalidSubmission = errors.New("invalid submission")

// emailPattern accepts anything shaped like local@domain.tld.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// DinnerChoice is the meal a guest selected.
type DinnerChoice string

// Supported dinner choices.
const (
	DinnerVegetarian DinnerChoice = "vegetarian"
	DinnerFish       DinnerChoice = "fish"
	DinnerMeat       DinnerChoice = "meat"
)

// DinnerChoices returns every accepted dinner choice in display order.
func DinnerChoices() []DinnerChoice {
	return []DinnerChoice{DinnerVegetarian, DinnerFish, DinnerMeat}
}

// Valid reports whether d is one of the accepted dinner choices.
func (d DinnerChoice) Valid() bool {
	switch d {
	case DinnerVegetarian, DinnerFish, DinnerMeat:
		return true
	}
	return false
}

// GuestEntry is one guest inside a submission. It only lives for the
// duration of a request.
type GuestEntry struct {
	Name   string       `json:"name"`
	Dinner DinnerChoice `json:"dinner"`
}

// Submission is a household's RSVP as received from the client.
type Submission struct {
	Guests   []GuestEntry `json:"guests"`
	Email    string       `json:"email,omitempty"`
	Comments string       `json:"comments,omitempty"`
}

// ValidationError describes the first structural problem found in a submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap lets callers match any ValidationError with errors.Is(err, ErrInvalidSubmission).
func (e *ValidationError) Unwrap() error { return ErrInvalidSubmission }

// Validate checks the submission shape. Guests are checked in order and the
// first failure is returned.
func (s Submission) Validate() error {
	if len(s.Guests) == 0 {
		return &ValidationError{Field: "guests", Message: "At least one guest is required"}
	}
	for i, g := range s.Guests {
		if strings.TrimSpace(g.Name) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("guests[%d].name", i),
				Message: fmt.Sprintf("Guest %d name is required", i+1),
			}
		}
		if !g.Dinner.Valid() {
			return &ValidationError{
				Field:   fmt.Sprintf("guests[%d].dinner", i),
				Message: fmt.Sprintf("Guest %d must have a valid dinner selection", i+1),
			}
		}
	}
	if email := strings.TrimSpace(s.Email); email != "" && !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: "Invalid email address"}
	}
	return nil
}

// GuestNames returns the raw guest names in submission order.
func (s Submission) GuestNames() []string {
	names := make([]string, len(s.Guests))
	for i, g := range s.Guests {
		names[i] = g.Name
	}
	return names
}

// RSVPRecord is one persisted guest row. All rows created by one submission
// share GroupID.
type RSVPRecord struct {
	ID           int64        `json:"id"`
	GuestName    string       `json:"guest_name"`
	DinnerChoice DinnerChoice `json:"dinner_choice"`
	Email        string       `json:"email,omitempty"`
	Comments     string       `json:"comments,omitempty"`
	GroupID      string       `json:"group_id"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Receipt is returned once a submission has been committed.
type Receipt struct {
	GroupID    string `json:"groupId"`
	GuestCount int    `json:"guestCount"`
}

// Stats aggregates all stored responses.
type Stats struct {
	TotalGuests     int `json:"total_guests"`
	TotalParties    int `json:"total_parties"`
	VegetarianCount int `json:"vegetarian_count"`
	FishCount       int `json:"fish_count"`
	MeatCount       int `json:"meat_count"`
}
