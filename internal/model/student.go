package model

import "time"

// Student is created on the first submission for a school ID and reused afterwards.
type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SchoolID  string    `json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
}
