package models

// UploadJob is the ephemeral per-transfer upload state. At most one job
// exists per transfer, and only while an upload is open; terminal jobs are
// removed after a grace delay.
type UploadJob struct {
	TransferID    string
	UploadBaseURL string
	UploadTicket  string
	ShareID       string
	TotalBytes    int64
	UploadedBytes int64
	Paused        bool
	Done          bool
	Failed        bool
	Message       string
}

// Progress returns the cumulative fraction uploaded across all items.
func (j *UploadJob) Progress() float64 {
	if j.TotalBytes <= 0 {
		return 0
	}
	return float64(j.UploadedBytes) / float64(j.TotalBytes)
}
