package dto

// FilePage is a paginated response payload for the file list.
type FilePage struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []FileInfo `json:"results"`
}
