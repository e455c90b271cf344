package services

import (
	"context"
	"fmt"

	"github.com/avolkov/lanferry/internal/client/session"
	"github.com/avolkov/lanferry/internal/client/state"
	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
)

// SessionService connects, pairs and resets the client identity.
type SessionService struct {
	coord Coordinator
	store *session.Store
	state *state.Store
	log   logging.Logger

	displayName string
	deviceName  string
}

func NewSessionService(coord Coordinator, store *session.Store, st *state.Store, log logging.Logger, displayName, deviceName string) *SessionService {
	return &SessionService{
		coord:       coord,
		store:       store,
		state:       st,
		log:         log,
		displayName: displayName,
		deviceName:  deviceName,
	}
}

// Connect exchanges the saved identity for an access token. All four
// identity fields must be present; the token stays in memory only.
func (s *SessionService) Connect(ctx context.Context) error {
	sess := s.store.Session()
	if !sess.CanConnect() {
		return fmt.Errorf("connect: missing identity fields: %w", common.ErrValidation)
	}

	s.state.SetStatus(state.StatusConnecting, "")
	resp, err := s.coord.TokenExchange(ctx, sess.PrincipalID, sess.ClientDeviceID, sess.DeviceSecret)
	if err != nil {
		s.state.SetStatus(state.StatusDisconnected, err.Error())
		return fmt.Errorf("connect: %w", err)
	}

	sess.PrincipalID = resp.PrincipalID
	sess.ClientDeviceID = resp.ClientDeviceID
	sess.AccessToken = resp.AccessToken
	if err := s.store.SetIdentity(ctx, sess); err != nil {
		s.state.SetStatus(state.StatusDisconnected, err.Error())
		return fmt.Errorf("connect: %w", err)
	}

	if exp := session.TokenExpiry(resp.AccessToken); !exp.IsZero() {
		s.log.Debug(ctx, "session connected", "principal", resp.PrincipalID, "token_expires", exp)
	}
	s.state.SetStatus(state.StatusConnected, "")
	return nil
}

// Pair starts pairing against the coordinator at the current base URL. On
// an unclaimed coordinator with autoJoin set the response is a bootstrap
// identity, adopted immediately; otherwise the pending pairing id and code
// are returned for out-of-band confirmation.
func (s *SessionService) Pair(ctx context.Context, autoJoin bool) (pendingID, code string, err error) {
	publicKey, err := common.MakeRandHexString(32)
	if err != nil {
		return "", "", fmt.Errorf("pair: %w", err)
	}

	resp, err := s.coord.PairingStart(ctx, s.displayName, s.deviceName, publicKey, autoJoin)
	if err != nil {
		return "", "", fmt.Errorf("pair: %w", err)
	}

	if resp.Bootstrap {
		if err := s.adoptIdentity(ctx, resp.PrincipalID, resp.ClientDeviceID, resp.DeviceSecret, resp.AccessToken); err != nil {
			return "", "", fmt.Errorf("pair: %w", err)
		}
		return "", "", nil
	}
	return resp.PendingPairingID, resp.PairingCode, nil
}

// ConfirmPairing exchanges the pending pairing for a rotated identity.
func (s *SessionService) ConfirmPairing(ctx context.Context, pendingID, code string) error {
	bundle, err := s.coord.PairingConfirm(ctx, pendingID, code)
	if err != nil {
		return fmt.Errorf("confirm pairing: %w", err)
	}
	if err := s.adoptIdentity(ctx, bundle.PrincipalID, bundle.ClientDeviceID, bundle.DeviceSecret, bundle.AccessToken); err != nil {
		return fmt.Errorf("confirm pairing: %w", err)
	}
	return nil
}

// Bootstrap performs first-contact auto-join pairing, used by recovery when
// saved credentials are absent or rejected. Fails if the coordinator is
// already claimed and answers with a pending pairing instead.
func (s *SessionService) Bootstrap(ctx context.Context) error {
	pendingID, _, err := s.Pair(ctx, true)
	if err != nil {
		return err
	}
	if pendingID != "" {
		return fmt.Errorf("coordinator requires manual pairing confirmation: %w", common.ErrUnauthorized)
	}
	return nil
}

func (s *SessionService) adoptIdentity(ctx context.Context, principalID, deviceID, secret, token string) error {
	sess := s.store.Session()
	sess.PrincipalID = principalID
	sess.ClientDeviceID = deviceID
	sess.DeviceSecret = secret
	sess.AccessToken = token
	if err := s.store.SetIdentity(ctx, sess); err != nil {
		return err
	}
	s.state.SetStatus(state.StatusConnected, "")
	return nil
}

// PrincipalID returns the current principal, "" when not paired.
func (s *SessionService) PrincipalID() string {
	return s.store.Session().PrincipalID
}

// Reset wipes the whole session: durable identity, volatile secret and
// token.
func (s *SessionService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.state.SetStatus(state.StatusDisconnected, "")
	return nil
}
