package services

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"

	"github.com/avolkov/lanferry/internal/client/api"
	"github.com/avolkov/lanferry/internal/client/models"
	"github.com/avolkov/lanferry/internal/client/state"
	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
)

var passcodeRe = regexp.MustCompile(`^\d{4}$`)

// UploadOpener is how the transfer service hands auto-open work to the
// upload engine without a package cycle.
type UploadOpener interface {
	OpenUpload(ctx context.Context, transferID, passcode string) error
}

// TransferService owns the transfer lifecycle on the client: list refresh,
// creation with batching, approval review and auto-open of outgoing
// uploads.
type TransferService struct {
	coord  Coordinator
	state  *state.Store
	files  *LocalFiles
	log    logging.Logger
	opener UploadOpener

	principalID func() string
}

func NewTransferService(coord Coordinator, st *state.Store, files *LocalFiles, log logging.Logger, principalID func() string) *TransferService {
	return &TransferService{coord: coord, state: st, files: files, log: log, principalID: principalID}
}

// SetUploadOpener wires the upload engine in after construction.
func (s *TransferService) SetUploadOpener(opener UploadOpener) {
	s.opener = opener
}

// RefreshTransfers replaces the transfer list wholesale, then advances the
// pending-approval review and auto-opens eligible outgoing uploads. Ids of
// transfers that reached a terminal state become eligible for auto-open
// again if an identical transfer is recreated later.
func (s *TransferService) RefreshTransfers(ctx context.Context) error {
	transfers, err := s.coord.ListTransfers(ctx)
	if err != nil {
		return fmt.Errorf("refresh transfers: %w", err)
	}

	terminal := s.state.ReplaceTransfers(transfers)
	for _, id := range terminal {
		s.state.ClearAutoOpened(id)
	}

	s.advanceReview(transfers)
	s.autoOpenOutgoing(ctx, transfers)
	return nil
}

// advanceReview points the review at the first incoming pending transfer
// that has not been dismissed.
func (s *TransferService) advanceReview(transfers []models.Transfer) {
	ours := s.principalID()
	for i := range transfers {
		t := &transfers[i]
		if t.State != models.TransferPending || t.SenderPrincipalID == ours {
			continue
		}
		if s.state.IsDismissed(t.ID) {
			continue
		}
		s.state.SetPendingReview(t.ID)
		return
	}
	s.state.SetPendingReview("")
}

// autoOpenOutgoing opens uploads for approved outgoing transfers whose
// reason carries a valid embedded auto-passcode, at most once per transfer
// id. A transfer still pending approval is skipped without burning its
// attempt; no passcode exists on the coordinator until the receiver
// approves. Failures after approval are logged; the next refresh does not
// retry the same id.
func (s *TransferService) autoOpenOutgoing(ctx context.Context, transfers []models.Transfer) {
	if s.opener == nil {
		return
	}
	ours := s.principalID()
	for i := range transfers {
		t := &transfers[i]
		if t.SenderPrincipalID != ours || t.State != models.TransferApproved {
			continue
		}
		passcode := t.Prefs().AutoPasscode
		if !passcodeRe.MatchString(passcode) {
			continue
		}
		if !s.state.MarkAutoOpened(t.ID) {
			continue
		}
		if err := s.opener.OpenUpload(ctx, t.ID, passcode); err != nil {
			s.log.Warn(ctx, "auto-open upload failed", "transfer", t.ID, "err", err)
		}
	}
}

// CreateTransfers creates transfers for the given local files toward the
// currently selected device and share. Selections are re-read at call
// time. Items carry a placeholder sha256; hashing is deferred to the
// receiving agent. Files are split into batches of at most
// MaxItemsPerTransfer, each batch becoming its own transfer with its own
// local-file fingerprint map.
func (s *TransferService) CreateTransfers(ctx context.Context, paths []string, prefs models.ReceiverPrefs) ([]string, error) {
	deviceID, shareID := s.state.Selection()
	if deviceID == "" || shareID == "" {
		return nil, fmt.Errorf("create transfer: no device or share selected: %w", common.ErrValidation)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("create transfer: no files selected: %w", common.ErrValidation)
	}

	items := make([]api.NewTransferItem, 0, len(paths))
	fingerprints := make([]string, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("create transfer: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("create transfer: %s is a directory: %w", path, common.ErrValidation)
		}
		name := filepath.Base(path)
		items = append(items, api.NewTransferItem{
			Filename: name,
			Size:     info.Size(),
			SHA256:   common.PlaceholderSHA256,
			Mime:     mime.TypeByExtension(filepath.Ext(name)),
		})
		fingerprints = append(fingerprints, common.Fingerprint(name, info.Size(), common.PlaceholderSHA256))
	}

	reason := ""
	if prefs != (models.ReceiverPrefs{}) {
		encoded, err := json.Marshal(prefs)
		if err != nil {
			return nil, fmt.Errorf("create transfer: encode prefs: %w", err)
		}
		reason = string(encoded)
	}

	var created []string
	for start := 0; start < len(items); start += common.MaxItemsPerTransfer {
		end := min(start+common.MaxItemsPerTransfer, len(items))

		transfer, err := s.coord.CreateTransfer(ctx, deviceID, shareID, items[start:end], reason)
		if err != nil {
			return created, fmt.Errorf("create transfer batch: %w", err)
		}

		batchFiles := make(map[string]string, end-start)
		for i := start; i < end; i++ {
			batchFiles[fingerprints[i]] = paths[i]
		}
		s.files.Register(transfer.ID, batchFiles)
		created = append(created, transfer.ID)
	}
	return created, nil
}

// Approve accepts an incoming transfer. A missing passcode is replaced by
// a generated 4-digit one. The id is dismissed from review and the list is
// force-refreshed.
func (s *TransferService) Approve(ctx context.Context, id, passcode, destinationPath string) (string, error) {
	if passcode == "" {
		passcode = common.RandDigits(4)
	}
	if !passcodeRe.MatchString(passcode) {
		return "", fmt.Errorf("approve: passcode must be exactly four digits: %w", common.ErrValidation)
	}
	if err := s.coord.ApproveTransfer(ctx, id, passcode, destinationPath); err != nil {
		return "", fmt.Errorf("approve: %w", err)
	}
	s.state.Dismiss(id)
	if err := s.RefreshTransfers(ctx); err != nil {
		s.log.Warn(ctx, "post-approve refresh failed", "transfer", id, "err", err)
	}
	return passcode, nil
}

// Reject declines an incoming transfer.
func (s *TransferService) Reject(ctx context.Context, id, reason string) error {
	if err := s.coord.RejectTransfer(ctx, id, reason); err != nil {
		return fmt.Errorf("reject: %w", err)
	}
	s.state.Dismiss(id)
	if err := s.RefreshTransfers(ctx); err != nil {
		s.log.Warn(ctx, "post-reject refresh failed", "transfer", id, "err", err)
	}
	return nil
}

// CancelPending cancels all pending outgoing transfers.
func (s *TransferService) CancelPending(ctx context.Context) (int, error) {
	counts, err := s.coord.CancelPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("cancel pending: %w", err)
	}
	if err := s.RefreshTransfers(ctx); err != nil {
		s.log.Warn(ctx, "post-cancel refresh failed", "err", err)
	}
	return counts.Canceled, nil
}

// ClearHistory removes terminal transfers from coordinator history.
func (s *TransferService) ClearHistory(ctx context.Context) (int, error) {
	counts, err := s.coord.ClearHistory(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	if err := s.RefreshTransfers(ctx); err != nil {
		s.log.Warn(ctx, "post-clear refresh failed", "err", err)
	}
	return counts.Cleared, nil
}
