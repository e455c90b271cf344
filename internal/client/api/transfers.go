package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/avolkov/lanferry/internal/client/models"
	"github.com/avolkov/lanferry/internal/common"
)

// ListTransfers fetches every transfer visible to this principal, in both
// roles. The result always replaces the local list.
func (c *Client) ListTransfers(ctx context.Context) ([]models.Transfer, error) {
	var out transfersResponse
	if err := c.requestJSON(ctx, "/api/v1/transfers?role=all", requestOpts{auth: true}, &out); err != nil {
		return nil, err
	}
	return out.Transfers, nil
}

// CreateTransfer posts one batch of up to MaxItemsPerTransfer items. The
// reason may carry JSON-encoded receiver preferences. Bulk creates get the
// long timeout.
func (c *Client) CreateTransfer(ctx context.Context, receiverDeviceID, receiverShareID string, items []NewTransferItem, reason string) (*models.Transfer, error) {
	body := map[string]any{
		"receiver_device_id": receiverDeviceID,
		"receiver_share_id":  receiverShareID,
		"items":              items,
	}
	if reason != "" {
		body["reason"] = reason
	}
	var out models.Transfer
	err := c.requestJSON(ctx, "/api/v1/transfers", requestOpts{
		method:  http.MethodPost,
		auth:    true,
		body:    body,
		timeout: common.TransferCreateTimeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveTransfer accepts an incoming transfer with the passcode the sender
// must present and the destination path on the receiving share.
func (c *Client) ApproveTransfer(ctx context.Context, id, passcode, destinationPath string) error {
	path := "/api/v1/transfers/" + url.PathEscape(id) + "/approve"
	return c.requestJSON(ctx, path, requestOpts{
		method: http.MethodPost,
		auth:   true,
		body: map[string]string{
			"passcode":         passcode,
			"destination_path": destinationPath,
		},
	}, nil)
}

// RejectTransfer declines an incoming transfer.
func (c *Client) RejectTransfer(ctx context.Context, id, reason string) error {
	path := "/api/v1/transfers/" + url.PathEscape(id) + "/reject"
	return c.requestJSON(ctx, path, requestOpts{
		method: http.MethodPost,
		auth:   true,
		body:   map[string]string{"reason": reason},
	}, nil)
}

// OpenUpload exchanges a passcode for the agent endpoint and upload ticket
// of an approved transfer.
func (c *Client) OpenUpload(ctx context.Context, id, passcode string) (*OpenUploadResponse, error) {
	path := "/api/v1/transfers/" + url.PathEscape(id) + "/passcode/open"
	var out OpenUploadResponse
	err := c.requestJSON(ctx, path, requestOpts{
		method: http.MethodPost,
		auth:   true,
		body:   map[string]string{"passcode": passcode},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelPending cancels all pending outgoing transfers.
func (c *Client) CancelPending(ctx context.Context) (*Counts, error) {
	var out Counts
	err := c.requestJSON(ctx, "/api/v1/transfers/pending/cancel", requestOpts{
		method: http.MethodPost,
		auth:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearHistory removes terminal transfers from the coordinator's history.
func (c *Client) ClearHistory(ctx context.Context) (*Counts, error) {
	var out Counts
	err := c.requestJSON(ctx, "/api/v1/transfers/history/clear", requestOpts{
		method: http.MethodPost,
		auth:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
