package model

import "time"

// Invitee is an approved guest-list entry. NameNormalized is unique.
type Invitee struct {
	ID             int64     `json:"id"`
	NameNormalized string    `json:"name_normalized"`
	CreatedAt      time.Time `json:"created_at"`
}

// MatchResult is the outcome of matching one normalized name against the
// invitee list. MatchedName is empty unless IsMatch is true.
type MatchResult struct {
	IsMatch     bool
	MatchedName string
	Similarity  float64
}
