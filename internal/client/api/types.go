package api

import "github.com/avolkov/lanferry/internal/client/models"

// TokenResponse is the result of the token exchange.
type TokenResponse struct {
	AccessToken    string `json:"access_token"`
	PrincipalID    string `json:"principal_id"`
	ClientDeviceID string `json:"client_device_id"`
}

// PairingStartResponse covers both outcomes of a pairing-start call: a
// bootstrap response carrying a full identity (first contact on an
// unclaimed coordinator) or a pending pairing awaiting out-of-band
// confirmation.
type PairingStartResponse struct {
	Bootstrap      bool   `json:"bootstrap"`
	PrincipalID    string `json:"principal_id,omitempty"`
	ClientDeviceID string `json:"client_device_id,omitempty"`
	DeviceSecret   string `json:"device_secret,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`

	PendingPairingID string `json:"pending_pairing_id,omitempty"`
	PairingCode      string `json:"pairing_code,omitempty"`
}

// IdentityBundle is the rotated identity returned by pairing confirmation.
type IdentityBundle struct {
	PrincipalID    string `json:"principal_id"`
	ClientDeviceID string `json:"client_device_id"`
	DeviceSecret   string `json:"device_secret"`
	AccessToken    string `json:"access_token"`
}

type devicesResponse struct {
	Devices []models.Device `json:"devices"`
}

type sharesResponse struct {
	Shares []models.Share `json:"shares"`
}

type transfersResponse struct {
	Transfers []models.Transfer `json:"transfers"`
}

// OpenUploadResponse carries everything needed to drive chunk uploads
// against the receiving agent.
type OpenUploadResponse struct {
	UploadBaseURL string          `json:"upload_base_url"`
	UploadTicket  string          `json:"upload_ticket"`
	Transfer      models.Transfer `json:"transfer"`
}

// Counts is returned by bulk transfer maintenance calls.
type Counts struct {
	Canceled int `json:"canceled,omitempty"`
	Cleared  int `json:"cleared,omitempty"`
}

type eventsTokenResponse struct {
	WSToken string `json:"ws_token"`
}

type discoveryResponse struct {
	Coordinators []string `json:"coordinators"`
}

type probeResponse struct {
	Service string `json:"service"`
}

// NewTransferItem is one item in a transfer-create request.
type NewTransferItem struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256"`
	Mime     string `json:"mime,omitempty"`
}
