package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/avolkov/lanferry/internal/client/api"
	"github.com/avolkov/lanferry/internal/client/models"
)

type createCall struct {
	deviceID string
	shareID  string
	items    []api.NewTransferItem
	reason   string
}

type approveCall struct {
	id              string
	passcode        string
	destinationPath string
}

// fakeCoordinator is an in-memory Coordinator for service tests.
type fakeCoordinator struct {
	mu sync.Mutex

	devices   []models.Device
	shares    map[string][]models.Share
	transfers []models.Transfer

	created  []createCall
	approved []approveCall
	rejected []string

	openResp  *api.OpenUploadResponse
	openErr   error
	openCalls []string

	listTransfersErr error
	listDevicesErr   error
	listSharesErr    error

	shareListCalls int
}

func (f *fakeCoordinator) TokenExchange(context.Context, string, string, string) (*api.TokenResponse, error) {
	return &api.TokenResponse{AccessToken: "tok", PrincipalID: "p1", ClientDeviceID: "d1"}, nil
}

func (f *fakeCoordinator) PairingStart(context.Context, string, string, string, bool) (*api.PairingStartResponse, error) {
	return &api.PairingStartResponse{PendingPairingID: "pp1", PairingCode: "123456"}, nil
}

func (f *fakeCoordinator) PairingConfirm(context.Context, string, string) (*api.IdentityBundle, error) {
	return &api.IdentityBundle{PrincipalID: "p1", ClientDeviceID: "d1", DeviceSecret: "s1", AccessToken: "tok"}, nil
}

func (f *fakeCoordinator) ListDevices(context.Context) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listDevicesErr != nil {
		return nil, f.listDevicesErr
	}
	return append([]models.Device(nil), f.devices...), nil
}

func (f *fakeCoordinator) ListShares(_ context.Context, deviceID string) ([]models.Share, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shareListCalls++
	if f.listSharesErr != nil {
		return nil, f.listSharesErr
	}
	return append([]models.Share(nil), f.shares[deviceID]...), nil
}

func (f *fakeCoordinator) SetDeviceVisibility(context.Context, string, bool) error { return nil }

func (f *fakeCoordinator) ListTransfers(context.Context) ([]models.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listTransfersErr != nil {
		return nil, f.listTransfersErr
	}
	return append([]models.Transfer(nil), f.transfers...), nil
}

func (f *fakeCoordinator) CreateTransfer(_ context.Context, deviceID, shareID string, items []api.NewTransferItem, reason string) (*models.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, createCall{deviceID: deviceID, shareID: shareID, items: items, reason: reason})
	return &models.Transfer{ID: fmt.Sprintf("t%d", len(f.created)), State: models.TransferPending}, nil
}

func (f *fakeCoordinator) ApproveTransfer(_ context.Context, id, passcode, destinationPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, approveCall{id: id, passcode: passcode, destinationPath: destinationPath})
	return nil
}

func (f *fakeCoordinator) RejectTransfer(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, id)
	return nil
}

func (f *fakeCoordinator) OpenUpload(_ context.Context, id, _ string) (*api.OpenUploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls = append(f.openCalls, id)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.openResp, nil
}

func (f *fakeCoordinator) CancelPending(context.Context) (*api.Counts, error) {
	return &api.Counts{Canceled: 2}, nil
}

func (f *fakeCoordinator) ClearHistory(context.Context) (*api.Counts, error) {
	return &api.Counts{Cleared: 3}, nil
}

type chunkCall struct {
	itemID string
	offset int64
	last   bool
	size   int
}

// fakeAgent records the chunk protocol calls the upload engine makes.
type fakeAgent struct {
	mu sync.Mutex

	received map[string]int64
	chunks   []chunkCall
	commits  []string
	finals   []string

	pauses  int
	resumes int

	statusErr error
	sendErr   error

	// blockFirstChunk, when non-nil, parks the first SendChunk until closed.
	blockFirstChunk chan struct{}
	firstChunkIn    chan struct{}
	blockOnce       sync.Once
}

func (f *fakeAgent) Status(context.Context) (map[string]int64, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	out := make(map[string]int64, len(f.received))
	for k, v := range f.received {
		out[k] = v
	}
	return out, nil
}

func (f *fakeAgent) SendChunk(_ context.Context, meta api.ChunkMeta, offset int64, last bool, data []byte) error {
	if f.blockFirstChunk != nil {
		f.blockOnce.Do(func() {
			if f.firstChunkIn != nil {
				close(f.firstChunkIn)
			}
			<-f.blockFirstChunk
		})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.chunks = append(f.chunks, chunkCall{itemID: meta.ItemID, offset: offset, last: last, size: len(data)})
	return nil
}

func (f *fakeAgent) Commit(_ context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, itemID)
	return nil
}

func (f *fakeAgent) Finalize(_ context.Context, itemID, _ string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, itemID)
	return nil
}

func (f *fakeAgent) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeAgent) Resume(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return nil
}

func (f *fakeAgent) sentBytes() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, c := range f.chunks {
		total += int64(c.size)
	}
	return total
}
