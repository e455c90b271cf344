// Package services contains the application services of the lanferry
// client: session connect/pairing, catalog refresh, transfer lifecycle and
// the chunked upload engine. Services hold no UI concerns; they mutate the
// state store and report failures as errors for the caller to render.
package services

import (
	"context"

	"github.com/avolkov/lanferry/internal/client/api"
	"github.com/avolkov/lanferry/internal/client/models"
)

// Coordinator is the slice of the coordinator API the services consume.
// *api.Client satisfies it; tests substitute fakes.
type Coordinator interface {
	TokenExchange(ctx context.Context, principalID, clientDeviceID, deviceSecret string) (*api.TokenResponse, error)
	PairingStart(ctx context.Context, displayName, deviceName, publicKey string, autoJoin bool) (*api.PairingStartResponse, error)
	PairingConfirm(ctx context.Context, pendingID, code string) (*api.IdentityBundle, error)

	ListDevices(ctx context.Context) ([]models.Device, error)
	ListShares(ctx context.Context, deviceID string) ([]models.Share, error)
	SetDeviceVisibility(ctx context.Context, deviceID string, visible bool) error

	ListTransfers(ctx context.Context) ([]models.Transfer, error)
	CreateTransfer(ctx context.Context, receiverDeviceID, receiverShareID string, items []api.NewTransferItem, reason string) (*models.Transfer, error)
	ApproveTransfer(ctx context.Context, id, passcode, destinationPath string) error
	RejectTransfer(ctx context.Context, id, reason string) error
	OpenUpload(ctx context.Context, id, passcode string) (*api.OpenUploadResponse, error)
	CancelPending(ctx context.Context) (*api.Counts, error)
	ClearHistory(ctx context.Context) (*api.Counts, error)
}

// AgentClient is the slice of the agent API the upload engine consumes.
// *api.Agent satisfies it.
type AgentClient interface {
	Status(ctx context.Context) (map[string]int64, error)
	SendChunk(ctx context.Context, meta api.ChunkMeta, offset int64, last bool, data []byte) error
	Commit(ctx context.Context, itemID string) error
	Finalize(ctx context.Context, itemID, destinationPath string, keepOriginalName bool) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// AgentFactory builds the agent client for one opened upload.
type AgentFactory func(baseURL, shareID, ticket string) AgentClient
