package models

import (
	"encoding/json"
	"strings"
)

// Transfer states reported by the coordinator.
const (
	TransferPending   = "pending"
	TransferApproved  = "approved"
	TransferUploading = "uploading"
	TransferCompleted = "completed"
	TransferRejected  = "rejected"
	TransferCanceled  = "canceled"
	TransferFailed    = "failed"
	TransferExpired   = "expired"
)

// Transfer is one approval-gated batch of file items moving from a sender
// to a receiver device/share.
type Transfer struct {
	ID                string         `json:"id"`
	State             string         `json:"state"`
	Items             []TransferItem `json:"items"`
	ReceiverDeviceID  string         `json:"receiver_device_id"`
	ReceiverShareID   string         `json:"receiver_share_id"`
	SenderPrincipalID string         `json:"sender_principal_id"`
	Reason            string         `json:"reason,omitempty"`
}

// TransferItem is a single file within a transfer.
type TransferItem struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256"`
	State    string `json:"state,omitempty"`
	Mime     string `json:"mime,omitempty"`
}

// Terminal reports whether the transfer has reached a final state.
func (t *Transfer) Terminal() bool {
	switch t.State {
	case TransferCompleted, TransferRejected, TransferCanceled, TransferFailed, TransferExpired:
		return true
	}
	return false
}

// ReceiverPrefs are optional receiver preferences the sender embeds as JSON
// in the transfer reason.
type ReceiverPrefs struct {
	DestinationPath string `json:"destinationPath,omitempty"`
	AutoPasscode    string `json:"autoPasscode,omitempty"`
}

// Prefs decodes the reason field. A reason that is empty or not valid JSON
// yields zero prefs; the reason is free text in that case.
func (t *Transfer) Prefs() ReceiverPrefs {
	var p ReceiverPrefs
	r := strings.TrimSpace(t.Reason)
	if r == "" || !strings.HasPrefix(r, "{") {
		return p
	}
	_ = json.Unmarshal([]byte(r), &p)
	return p
}
