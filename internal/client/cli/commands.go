package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/avolkov/lanferry/internal/client/models"
	"github.com/avolkov/lanferry/internal/client/session"
	"github.com/avolkov/lanferry/internal/client/state"
	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/netx"
)

func (a *App) statusLine() string {
	status, _ := a.state.Status()
	return fmt.Sprintf("(%s)", status)
}

func (a *App) isConnected() bool {
	status, _ := a.state.Status()
	return status == state.StatusConnected
}

func (a *App) Status(ctx context.Context) {
	status, message := a.state.Status()
	sess := a.store.Session()
	fmt.Printf("Status:      %s\n", status)
	if message != "" {
		fmt.Printf("Message:     %s\n", message)
	}
	fmt.Printf("Coordinator: %s\n", sess.BaseURL)
	if sess.PrincipalID != "" {
		fmt.Printf("Principal:   %s\n", sess.PrincipalID)
		fmt.Printf("Device:      %s\n", sess.ClientDeviceID)
	}
	if exp := session.TokenExpiry(sess.AccessToken); !exp.IsZero() {
		fmt.Printf("Token until: %s\n", exp.Format("15:04:05"))
	}
	deviceID, shareID := a.state.Selection()
	if deviceID != "" {
		fmt.Printf("Selected:    device %s, share %s\n", deviceID, shareID)
	}
}

// ConnectTo optionally repoints the saved coordinator URL, then connects
// with the saved identity.
func (a *App) ConnectTo(ctx context.Context, rawURL string) {
	if rawURL != "" {
		normalized, err := netx.NormalizeBaseURL(rawURL)
		if err != nil {
			fmt.Println("Invalid coordinator URL:", err)
			return
		}
		if err := a.store.SetBaseURL(ctx, normalized); err != nil {
			fmt.Println("Could not save coordinator URL:", err)
			return
		}
	}
	if err := a.sessions.Connect(ctx); err != nil {
		fmt.Println("Connect failed:", err)
		return
	}
	fmt.Println("Connected.")
	a.afterConnect(ctx)
}

// Pair starts pairing. "pair <url> auto" attempts first-contact auto-join.
func (a *App) Pair(ctx context.Context, args []string) {
	autoJoin := false
	for _, arg := range args {
		if arg == "auto" {
			autoJoin = true
			continue
		}
		normalized, err := netx.NormalizeBaseURL(arg)
		if err != nil {
			fmt.Println("Invalid coordinator URL:", err)
			return
		}
		if err := a.store.SetBaseURL(ctx, normalized); err != nil {
			fmt.Println("Could not save coordinator URL:", err)
			return
		}
	}
	if a.store.BaseURL() == "" {
		if err := a.store.SetBaseURL(ctx, a.config.DefaultCoordinatorURL); err != nil {
			fmt.Println("Could not save coordinator URL:", err)
			return
		}
	}

	pendingID, code, err := a.sessions.Pair(ctx, autoJoin)
	if err != nil {
		fmt.Println("Pairing failed:", err)
		return
	}
	if pendingID == "" {
		fmt.Println("Paired and connected.")
		a.afterConnect(ctx)
		return
	}
	fmt.Printf("Pairing pending. On an already-paired device, approve pairing %s with code %s,\n", pendingID, code)
	fmt.Printf("then run: confirm %s\n", pendingID)
}

func (a *App) Confirm(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: confirm <pairing-id>")
		return
	}
	code, err := GetSecret("Pairing code", os.Stdout)
	if err != nil {
		fmt.Println("Could not read pairing code:", err)
		return
	}
	if err := a.sessions.ConfirmPairing(ctx, args[0], code); err != nil {
		fmt.Println("Confirmation failed:", err)
		return
	}
	fmt.Println("Paired and connected.")
	a.afterConnect(ctx)
}

// afterConnect opens the events socket and pulls fresh lists after a
// successful connect or pairing.
func (a *App) afterConnect(ctx context.Context) {
	if err := a.socket.Connect(ctx); err != nil {
		a.log.Warn(ctx, "events socket did not open", "err", err)
	}
	if err := a.catalog.RefreshDevicesAndShares(ctx, true); err != nil {
		fmt.Println("Catalog refresh failed:", err)
	}
	if err := a.transfers.RefreshTransfers(ctx); err != nil {
		fmt.Println("Transfer refresh failed:", err)
	}
}

func (a *App) Devices(ctx context.Context) {
	selected, _ := a.state.Selection()
	for _, d := range a.state.Devices() {
		marker := " "
		if d.ID == selected {
			marker = "*"
		}
		online := "offline"
		if d.Online {
			online = "online"
		}
		fmt.Printf("%s %-36s %-20s %s\n", marker, d.ID, d.Name, online)
	}
}

func (a *App) Shares(ctx context.Context) {
	_, selected := a.state.Selection()
	for _, s := range a.state.Shares() {
		marker := " "
		if s.ID == selected {
			marker = "*"
		}
		fmt.Printf("%s %-36s %-20s %s\n", marker, s.ID, s.Name, strings.Join(s.Permissions, ","))
	}
}

func (a *App) Use(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: use device <id> | use share <id>")
		return
	}
	switch args[0] {
	case "device":
		if !a.state.SelectDevice(args[1]) {
			fmt.Println("No such device:", args[1])
			return
		}
		if err := a.catalog.RefreshDevicesAndShares(ctx, true); err != nil {
			fmt.Println("Share refresh failed:", err)
		}
	case "share":
		if !a.state.SelectShare(args[1]) {
			fmt.Println("No such share:", args[1])
		}
	default:
		fmt.Println("Usage: use device <id> | use share <id>")
	}
}

func (a *App) Refresh(ctx context.Context) {
	if err := a.catalog.RefreshDevicesAndShares(ctx, true); err != nil {
		fmt.Println("Catalog refresh failed:", err)
	}
	if err := a.transfers.RefreshTransfers(ctx); err != nil {
		fmt.Println("Transfer refresh failed:", err)
	}
}

func (a *App) Send(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		fmt.Println("Usage: send <file> [file...]")
		return
	}

	dest, err := GetSimpleText(a.reader, "Destination path on the receiver (optional)", os.Stdout)
	if err != nil {
		fmt.Println("Could not read input:", err)
		return
	}
	auto, err := GetSimpleText(a.reader, "Auto-open passcode, 4 digits (optional)", os.Stdout)
	if err != nil {
		fmt.Println("Could not read input:", err)
		return
	}

	prefs := models.ReceiverPrefs{DestinationPath: dest, AutoPasscode: auto}
	ids, err := a.transfers.CreateTransfers(ctx, paths, prefs)
	if err != nil {
		fmt.Println("Send failed:", err)
		if len(ids) == 0 {
			return
		}
	}
	fmt.Printf("Created %d transfer(s): %s\n", len(ids), strings.Join(ids, ", "))
}

func (a *App) Transfers(ctx context.Context) {
	transfers := a.state.Transfers()
	if len(transfers) == 0 {
		fmt.Println("No transfers.")
		return
	}
	for i := range transfers {
		t := &transfers[i]
		var total int64
		for j := range t.Items {
			total += t.Items[j].Size
		}
		line := fmt.Sprintf("%-36s %-10s %3d item(s) %8s", t.ID, t.State, len(t.Items), common.FormatBytes(total))
		if job, ok := a.state.Job(t.ID); ok {
			line += fmt.Sprintf("  upload %3.0f%%", job.Progress()*100)
			if job.Paused {
				line += " (paused)"
			}
			if job.Failed {
				line += " FAILED: " + job.Message
			}
		}
		fmt.Println(line)
	}
	if id := a.state.PendingReview(); id != "" {
		fmt.Printf("Awaiting your approval: %s (approve %s / reject %s)\n", id, id, id)
	}
}

func (a *App) Approve(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: approve <transfer-id>")
		return
	}
	passcode, err := GetSecret("Passcode, 4 digits (empty to generate)", os.Stdout)
	if err != nil {
		fmt.Println("Could not read passcode:", err)
		return
	}
	dest, err := GetSimpleText(a.reader, "Destination path (optional)", os.Stdout)
	if err != nil {
		fmt.Println("Could not read input:", err)
		return
	}
	final, err := a.transfers.Approve(ctx, args[0], passcode, dest)
	if err != nil {
		fmt.Println("Approve failed:", err)
		return
	}
	fmt.Printf("Approved. Tell the sender the passcode: %s\n", final)
}

func (a *App) Reject(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: reject <transfer-id> [reason]")
		return
	}
	reason := strings.Join(args[1:], " ")
	if err := a.transfers.Reject(ctx, args[0], reason); err != nil {
		fmt.Println("Reject failed:", err)
		return
	}
	fmt.Println("Rejected.")
}

func (a *App) Open(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: open <transfer-id>")
		return
	}
	passcode, err := GetSecret("Passcode", os.Stdout)
	if err != nil {
		fmt.Println("Could not read passcode:", err)
		return
	}
	if err := a.uploads.OpenUpload(ctx, args[0], passcode); err != nil {
		fmt.Println("Open failed:", err)
		return
	}
	fmt.Println("Upload started. Track it with 'transfers'.")
}

func (a *App) PauseUpload(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: pause <transfer-id>")
		return
	}
	a.uploads.Pause(ctx, args[0])
	fmt.Println("Paused.")
}

func (a *App) ResumeUpload(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: resume <transfer-id>")
		return
	}
	a.uploads.Resume(ctx, args[0])
	fmt.Println("Resumed.")
}

func (a *App) CancelPending(ctx context.Context) {
	n, err := a.transfers.CancelPending(ctx)
	if err != nil {
		fmt.Println("Cancel failed:", err)
		return
	}
	fmt.Printf("Canceled %d pending transfer(s).\n", n)
}

func (a *App) ClearHistory(ctx context.Context) {
	n, err := a.transfers.ClearHistory(ctx)
	if err != nil {
		fmt.Println("Clear failed:", err)
		return
	}
	fmt.Printf("Cleared %d transfer(s) from history.\n", n)
}

func (a *App) Visibility(ctx context.Context, args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Println("Usage: visibility on|off")
		return
	}
	deviceID, _ := a.state.Selection()
	if deviceID == "" {
		fmt.Println("Select a device first: use device <id>")
		return
	}
	if err := a.catalog.SetDeviceVisibility(ctx, deviceID, args[0] == "on"); err != nil {
		fmt.Println("Visibility change failed:", err)
		return
	}
	fmt.Println("Done.")
}

func (a *App) Background(ctx context.Context, on bool) {
	a.poller.SetForeground(!on)
	if on {
		fmt.Println("Polling slowed to background cadence.")
	} else {
		fmt.Println("Polling back at foreground cadence.")
	}
}

func (a *App) Recover(ctx context.Context) {
	if err := a.recoverer.RequestRecovery(ctx, true); err != nil {
		fmt.Println("Recovery failed:", err)
		return
	}
	fmt.Println("Recovered.")
}

func (a *App) Reset(ctx context.Context) {
	answer, err := GetSimpleText(a.reader, "This forgets the pairing on this device. Type 'yes' to continue", os.Stdout)
	if err != nil || answer != "yes" {
		fmt.Println("Reset aborted.")
		return
	}
	a.socket.Close()
	if err := a.sessions.Reset(ctx); err != nil {
		fmt.Println("Reset failed:", err)
		return
	}
	fmt.Println("Identity cleared. Use 'pair' to start over.")
}
