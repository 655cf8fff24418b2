package models

import "time"

// Portfolio is the owner's shareable document, served read-only to the
// App Clip. The whole thing is stored as a single JSONB blob.
type Portfolio struct {
	OwnerID     string       `json:"ownerId"`
	Personal    Personal     `json:"personal"`
	About       string       `json:"about"`
	Experiences []Experience `json:"experiences"`
	Skills      []Skill      `json:"skills"`
	Projects    []Project    `json:"projects"`
	ResumeURL   string       `json:"resumeUrl"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Personal struct {
	FullName string `json:"fullName"`
	Headline string `json:"headline"`
	Email    string `json:"email"`
	Location string `json:"location"`
	Website  string `json:"website"`
}

type Experience struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

type Skill struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}
