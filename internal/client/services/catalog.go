package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/avolkov/lanferry/internal/client/state"
	"github.com/avolkov/lanferry/internal/logging"
)

// CatalogService refreshes the device and share catalog.
type CatalogService struct {
	coord Coordinator
	state *state.Store
	log   logging.Logger

	// reloadListing refreshes the remote directory listing after a
	// selection change. The browsing layer registers it; failures are
	// logged and swallowed.
	reloadListing func(ctx context.Context) error

	refreshing atomic.Bool
}

func NewCatalogService(coord Coordinator, st *state.Store, log logging.Logger) *CatalogService {
	return &CatalogService{coord: coord, state: st, log: log}
}

// SetListingReloader registers the best-effort directory listing refresh.
func (s *CatalogService) SetListingReloader(fn func(ctx context.Context) error) {
	s.reloadListing = fn
}

// RefreshDevicesAndShares replaces the device list, falls back the
// selection if it vanished, then fetches the shares of the (re-read)
// selection with the same fallback rule. Concurrent refreshes are
// collapsed by an in-flight flag; force bypasses it.
func (s *CatalogService) RefreshDevicesAndShares(ctx context.Context, force bool) error {
	acquired := s.refreshing.CompareAndSwap(false, true)
	if !acquired && !force {
		return nil
	}
	if acquired {
		defer s.refreshing.Store(false)
	}

	devices, err := s.coord.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("refresh devices: %w", err)
	}
	deviceChanged := s.state.ReplaceDevices(devices)

	// Re-read the selection: it may have moved while the device call was
	// in flight.
	deviceID, _ := s.state.Selection()

	shareChanged := false
	if deviceID == "" {
		shareChanged = s.state.ReplaceShares(nil)
	} else {
		shares, err := s.coord.ListShares(ctx, deviceID)
		if err != nil {
			return fmt.Errorf("refresh shares: %w", err)
		}
		shareChanged = s.state.ReplaceShares(shares)
	}

	if (deviceChanged || shareChanged) && s.reloadListing != nil {
		if err := s.reloadListing(ctx); err != nil {
			s.log.Warn(ctx, "directory listing reload failed", "err", err)
		}
	}
	return nil
}

// SetDeviceVisibility toggles device advertisement and refreshes.
func (s *CatalogService) SetDeviceVisibility(ctx context.Context, deviceID string, visible bool) error {
	if err := s.coord.SetDeviceVisibility(ctx, deviceID, visible); err != nil {
		return fmt.Errorf("set visibility: %w", err)
	}
	return s.RefreshDevicesAndShares(ctx, true)
}
