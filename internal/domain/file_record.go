package domain

import "time"

// FileRecord is the persisted delivery bookkeeping for one produced artifact.
type FileRecord struct {
	Filename        string     `json:"-"`
	TaskID          string     `json:"task_id"`
	CreatedAt       time.Time  `json:"created_at"`
	Delivered       bool       `json:"delivered"`
	DeliveryCount   int        `json:"delivery_count"`
	LastDeliveredAt *time.Time `json:"last_delivered_at,omitempty"`
}

// Expired reports whether a delivered record is older than maxAge at now.
// Undelivered records never expire.
func (r FileRecord) Expired(now time.Time, maxAge time.Duration) bool {
	return r.Delivered && now.Sub(r.CreatedAt) > maxAge
}

// Stats summarises the artifacts known to the service.
type Stats struct {
	TotalFiles      int      `json:"total_files"`
	DeliveredFiles  int      `json:"delivered_files"`
	TotalDeliveries int      `json:"total_deliveries"`
	FilesOnDisk     int      `json:"files_on_disk"`
	DiskFiles       []string `json:"disk_files"`
	DiskUsage       int64    `json:"disk_usage"`
	DiskUsageHuman  string   `json:"disk_usage_human"`
}
