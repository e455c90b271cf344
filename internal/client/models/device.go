// Package models defines the client-side domain types shared by the
// coordinator client, services and state store.
package models

// Device is one device registered with the coordinator. The device list is
// always replaced wholesale on refresh, never merged.
type Device struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Online           bool   `json:"online"`
	Visible          bool   `json:"visible"`
	OwnerPrincipalID string `json:"owner_principal_id"`
}

// Share is a shared folder exposed by a device.
type Share struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Permissions  []string `json:"permissions"`
	DeviceOnline bool     `json:"device_online"`
	RootPath     string   `json:"root_path,omitempty"`
}
