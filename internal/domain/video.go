package domain

// VideoInfo is the preview metadata returned before a download starts.
type VideoInfo struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail"`
	Uploader  string  `json:"uploader"`
	ViewCount int64   `json:"view_count"`
	Formats   int     `json:"formats"`
	Profile   string  `json:"profile,omitempty"`
}

// Usable reports whether the probe found at least one rendition.
func (v *VideoInfo) Usable() bool {
	return v != nil && v.Formats > 0
}
