package models

import "time"

// FileList is a user's encrypted list of owned files, keyed by the id of the
// key that encrypted it.
type FileList struct {
	UserID    string
	Kid       string
	Data      []byte
	UpdatedAt time.Time
}
