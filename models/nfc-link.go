package models

import "time"

type NfcLink struct {
	ID         string     `json:"id"`
	Slug       string     `json:"slug"`
	Link       string     `json:"link,omitempty"`
	ProfileID  string     `json:"profileId,omitempty"`
	CreatedBy  string     `json:"createdBy,omitempty"`
	IsActive   bool       `json:"isActive"`
	IsAssigned bool       `json:"isAssigned"`
	AssignedTo string     `json:"assignedTo,omitempty"`
	AssignedAt *time.Time `json:"assignedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
