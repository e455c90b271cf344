package services

import "sync"

// LocalFiles maps item fingerprints to local file paths, per transfer. It
// exists only on the sending side, between transfer creation and upload
// teardown; each create batch registers its own map.
type LocalFiles struct {
	mu sync.Mutex
	m  map[string]map[string]string
}

func NewLocalFiles() *LocalFiles {
	return &LocalFiles{m: make(map[string]map[string]string)}
}

// Register associates a fingerprint→path map with a transfer.
func (f *LocalFiles) Register(transferID string, files map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[transferID] = files
}

// Lookup resolves the local path for one item fingerprint.
func (f *LocalFiles) Lookup(transferID, fingerprint string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	files, ok := f.m[transferID]
	if !ok {
		return "", false
	}
	path, ok := files[fingerprint]
	return path, ok
}

// Fingerprints returns all registered fingerprints for a transfer.
func (f *LocalFiles) Fingerprints(transferID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	files := f.m[transferID]
	out := make([]string, 0, len(files))
	for fp := range files {
		out = append(out, fp)
	}
	return out
}

// Drop forgets a transfer's map after upload completion or teardown.
func (f *LocalFiles) Drop(transferID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, transferID)
}
