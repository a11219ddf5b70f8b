package models

import "time"

type Profile struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Username      string    `json:"username,omitempty"`
	Name          string    `json:"name,omitempty"`
	Title         string    `json:"title,omitempty"`
	Subtitle      string    `json:"subtitle,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Company       string    `json:"company,omitempty"`
	Website       string    `json:"website,omitempty"`
	Linkedin      string    `json:"linkedin,omitempty"`
	Instagram     string    `json:"instagram,omitempty"`
	Twitter       string    `json:"twitter,omitempty"`
	Location      string    `json:"location,omitempty"`
	UPI           string    `json:"upi,omitempty"`
	OwnerDeviceID string    `json:"-"`
	GoogleID      string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Claimed reports whether either owner identity has been set.
func (p *Profile) Claimed() bool {
	return p.OwnerDeviceID != "" || p.GoogleID != ""
}

// ProfileUpdate carries the editable display fields of a profile. Pointers
// distinguish "not provided" from "set to empty"; anything outside this
// struct is not writable through profile updates.
type ProfileUpdate struct {
	Name      *string `json:"name"`
	Title     *string `json:"title"`
	Subtitle  *string `json:"subtitle"`
	Avatar    *string `json:"avatar"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Website   *string `json:"website"`
	Linkedin  *string `json:"linkedin"`
	Instagram *string `json:"instagram"`
	Twitter   *string `json:"twitter"`
	Location  *string `json:"location"`
	UPI       *string `json:"upi"`
}
