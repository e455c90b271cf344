// Package state owns the shared client state the presentation layer reads:
// device/share/transfer lists, the current selection, upload jobs and
// status. One Store exists per app instance; every mutation goes through
// its mutex, and list updates are whole replacements, never merges.
package state

import (
	"sync"

	"github.com/avolkov/lanferry/internal/client/models"
)

// ConnStatus is the coordinator connection state shown to the user.
type ConnStatus string

const (
	StatusDisconnected ConnStatus = "disconnected"
	StatusConnecting   ConnStatus = "connecting"
	StatusConnected    ConnStatus = "connected"
)

// Store holds all shared mutable client state.
type Store struct {
	mu sync.Mutex

	devices   []models.Device
	shares    []models.Share
	transfers []models.Transfer

	selectedDeviceID string
	selectedShareID  string

	jobs map[string]*models.UploadJob

	status  ConnStatus
	message string

	// pendingReviewID is the transfer the approval review should show.
	pendingReviewID string
	// dismissed suppresses re-popping the review for a transfer id.
	dismissed map[string]struct{}
	// autoOpened de-duplicates auto-upload attempts per transfer id.
	autoOpened map[string]struct{}

	// onChange lets presentation adapters repaint. Invoked outside the
	// lock.
	onChange func()
}

func NewStore() *Store {
	return &Store{
		jobs:       make(map[string]*models.UploadJob),
		dismissed:  make(map[string]struct{}),
		autoOpened: make(map[string]struct{}),
		status:     StatusDisconnected,
	}
}

// SetOnChange registers the repaint hook.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ReplaceDevices swaps in a fresh device list. If the current selection is
// gone it falls back to the first available device. Returns true when the
// selection changed.
func (s *Store) ReplaceDevices(devices []models.Device) bool {
	s.mu.Lock()
	s.devices = devices
	changed := false
	if !containsDevice(devices, s.selectedDeviceID) {
		prev := s.selectedDeviceID
		s.selectedDeviceID = ""
		if len(devices) > 0 {
			s.selectedDeviceID = devices[0].ID
		}
		changed = prev != s.selectedDeviceID
	}
	s.mu.Unlock()
	s.notify()
	return changed
}

// ReplaceShares swaps in the share list for the selected device, with the
// same fallback-selection rule. Returns true when the selection changed.
func (s *Store) ReplaceShares(shares []models.Share) bool {
	s.mu.Lock()
	s.shares = shares
	changed := false
	if !containsShare(shares, s.selectedShareID) {
		prev := s.selectedShareID
		s.selectedShareID = ""
		if len(shares) > 0 {
			s.selectedShareID = shares[0].ID
		}
		changed = prev != s.selectedShareID
	}
	s.mu.Unlock()
	s.notify()
	return changed
}

// ReplaceTransfers swaps in the transfer list and returns the ids that are
// now in a terminal state, so callers can clear per-transfer bookkeeping.
func (s *Store) ReplaceTransfers(transfers []models.Transfer) []string {
	s.mu.Lock()
	s.transfers = transfers
	var terminal []string
	for i := range transfers {
		if transfers[i].Terminal() {
			terminal = append(terminal, transfers[i].ID)
		}
	}
	s.mu.Unlock()
	s.notify()
	return terminal
}

func (s *Store) Devices() []models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Device(nil), s.devices...)
}

func (s *Store) Shares() []models.Share {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Share(nil), s.shares...)
}

func (s *Store) Transfers() []models.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Transfer(nil), s.transfers...)
}

// Selection returns the current device and share ids. Callers chaining
// dependent requests must re-read the selection after every round trip
// instead of trusting a captured value.
func (s *Store) Selection() (deviceID, shareID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedDeviceID, s.selectedShareID
}

// SelectDevice sets the selection if the device exists.
func (s *Store) SelectDevice(id string) bool {
	s.mu.Lock()
	ok := containsDevice(s.devices, id)
	if ok {
		s.selectedDeviceID = id
		s.selectedShareID = ""
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// SelectShare sets the share selection if the share exists.
func (s *Store) SelectShare(id string) bool {
	s.mu.Lock()
	ok := containsShare(s.shares, id)
	if ok {
		s.selectedShareID = id
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// PutJob installs the upload job for a transfer, replacing any previous
// one. At most one job exists per transfer.
func (s *Store) PutJob(job *models.UploadJob) {
	s.mu.Lock()
	s.jobs[job.TransferID] = job
	s.mu.Unlock()
	s.notify()
}

// Job returns a copy of the job for the transfer, if any.
func (s *Store) Job(transferID string) (models.UploadJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[transferID]
	if !ok {
		return models.UploadJob{}, false
	}
	return *job, true
}

// UpdateJob mutates the job under the lock. No-op if the job is gone.
func (s *Store) UpdateJob(transferID string, fn func(*models.UploadJob)) {
	s.mu.Lock()
	job, ok := s.jobs[transferID]
	if ok {
		fn(job)
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
}

// DeleteJob removes the job for a transfer.
func (s *Store) DeleteJob(transferID string) {
	s.mu.Lock()
	delete(s.jobs, transferID)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Jobs() []models.UploadJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UploadJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

// SetStatus updates the connection status and user-facing message.
func (s *Store) SetStatus(status ConnStatus, message string) {
	s.mu.Lock()
	s.status = status
	s.message = message
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Status() (ConnStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.message
}

// SetPendingReview points the approval review at a transfer ("" hides it).
func (s *Store) SetPendingReview(id string) {
	s.mu.Lock()
	s.pendingReviewID = id
	s.mu.Unlock()
	s.notify()
}

func (s *Store) PendingReview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingReviewID
}

// Dismiss suppresses the review for a transfer id on subsequent refreshes.
func (s *Store) Dismiss(id string) {
	s.mu.Lock()
	s.dismissed[id] = struct{}{}
	if s.pendingReviewID == id {
		s.pendingReviewID = ""
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) IsDismissed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dismissed[id]
	return ok
}

// MarkAutoOpened records an auto-upload attempt for a transfer id. Returns
// false if it was already marked.
func (s *Store) MarkAutoOpened(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.autoOpened[id]; ok {
		return false
	}
	s.autoOpened[id] = struct{}{}
	return true
}

// ClearAutoOpened makes a transfer id eligible for auto-open again, used
// when the transfer reaches a terminal state so an identical recreated
// transfer is picked up.
func (s *Store) ClearAutoOpened(id string) {
	s.mu.Lock()
	delete(s.autoOpened, id)
	s.mu.Unlock()
}

func (s *Store) IsAutoOpened(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.autoOpened[id]
	return ok
}

func containsDevice(devices []models.Device, id string) bool {
	if id == "" {
		return false
	}
	for i := range devices {
		if devices[i].ID == id {
			return true
		}
	}
	return false
}

func containsShare(shares []models.Share, id string) bool {
	if id == "" {
		return false
	}
	for i := range shares {
		if shares[i].ID == id {
			return true
		}
	}
	return false
}
