package model

import "time"

// Capture represents one finished capture run.
type Capture struct {
	ID         int64     `json:"id"`
	CameraURL  string    `json:"camera_url"`
	Category   string    `json:"category"`
	State      string    `json:"state"`
	FileURL    string    `json:"file_url"`
	Error      string    `json:"error"`
	Frames     int       `json:"frames"`
	Attempts   int       `json:"attempts"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
