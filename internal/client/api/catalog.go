package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/avolkov/lanferry/internal/client/models"
)

// ListDevices fetches the full device list. Callers replace their copy
// wholesale; the list is never merged.
func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	var out devicesResponse
	if err := c.requestJSON(ctx, "/api/v1/catalog/devices", requestOpts{auth: true}, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// ListShares fetches the shares exposed by one device.
func (c *Client) ListShares(ctx context.Context, deviceID string) ([]models.Share, error) {
	var out sharesResponse
	path := "/api/v1/catalog/shares?device_id=" + url.QueryEscape(deviceID)
	if err := c.requestJSON(ctx, path, requestOpts{auth: true}, &out); err != nil {
		return nil, err
	}
	return out.Shares, nil
}

// SetDeviceVisibility toggles whether a device is advertised to other
// principals.
func (c *Client) SetDeviceVisibility(ctx context.Context, deviceID string, visible bool) error {
	path := "/api/v1/catalog/devices/" + url.PathEscape(deviceID) + "/visibility"
	return c.requestJSON(ctx, path, requestOpts{
		method: http.MethodPost,
		auth:   true,
		body:   map[string]bool{"visible": visible},
	}, nil)
}
