package api

import (
	"context"
	"net/http"
	"runtime"
)

// TokenExchange trades the saved identity tuple for an access token. It is
// the only unauthenticated call besides pairing-start and probes.
func (c *Client) TokenExchange(ctx context.Context, principalID, clientDeviceID, deviceSecret string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.requestJSON(ctx, "/api/v1/auth/token", requestOpts{
		method: http.MethodPost,
		body: map[string]string{
			"principal_id":     principalID,
			"client_device_id": clientDeviceID,
			"device_secret":    deviceSecret,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PairingStart begins pairing with the coordinator. With autoJoin set, an
// unclaimed coordinator answers with a bootstrap identity immediately;
// otherwise the response carries a pending pairing id plus a short numeric
// code for out-of-band confirmation.
func (c *Client) PairingStart(ctx context.Context, displayName, deviceName, publicKey string, autoJoin bool) (*PairingStartResponse, error) {
	path := "/api/v1/pairing/start"
	if autoJoin {
		path += "?auto_join=1"
	}
	var out PairingStartResponse
	err := c.requestJSON(ctx, path, requestOpts{
		method: http.MethodPost,
		body: map[string]string{
			"display_name": displayName,
			"device_name":  deviceName,
			"platform":     runtime.GOOS,
			"public_key":   publicKey,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PairingConfirm exchanges a pending pairing id and its code for a rotated
// identity bundle. Requires an authenticated caller.
func (c *Client) PairingConfirm(ctx context.Context, pendingID, code string) (*IdentityBundle, error) {
	var out IdentityBundle
	err := c.requestJSON(ctx, "/api/v1/pairing/confirm", requestOpts{
		method: http.MethodPost,
		auth:   true,
		body: map[string]string{
			"pending_pairing_id": pendingID,
			"pairing_code":       code,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EventsToken fetches a short-lived token for the realtime socket.
func (c *Client) EventsToken(ctx context.Context) (string, error) {
	var out eventsTokenResponse
	if err := c.requestJSON(ctx, "/api/v1/events/token", requestOpts{auth: true}, &out); err != nil {
		return "", err
	}
	return out.WSToken, nil
}
