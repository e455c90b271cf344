package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/avolkov/lanferry/internal/client/api"
	"github.com/avolkov/lanferry/internal/client/models"
	"github.com/avolkov/lanferry/internal/client/state"
	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
	"github.com/google/uuid"
)

// UploadService drives chunked resumable uploads against receiving agents.
type UploadService struct {
	coord Coordinator
	state *state.Store
	files *LocalFiles
	log   logging.Logger

	newAgent AgentFactory

	mu     sync.Mutex
	gates  map[string]*gate
	agents map[string]AgentClient

	chunkSize      int64
	cleanupSuccess time.Duration
	cleanupFailure time.Duration

	// wg tracks running upload goroutines, for orderly shutdown in tests.
	wg sync.WaitGroup
}

func NewUploadService(coord Coordinator, st *state.Store, files *LocalFiles, log logging.Logger) *UploadService {
	return &UploadService{
		coord: coord,
		state: st,
		files: files,
		log:   log,
		newAgent: func(baseURL, shareID, ticket string) AgentClient {
			return api.NewAgent(baseURL, shareID, ticket)
		},
		gates:          make(map[string]*gate),
		agents:         make(map[string]AgentClient),
		chunkSize:      common.ChunkSize,
		cleanupSuccess: common.JobCleanupSuccess,
		cleanupFailure: common.JobCleanupFailure,
	}
}

// OpenUpload exchanges the passcode for an upload ticket and starts the
// send loop. Malformed passcodes fail locally before any network call.
func (s *UploadService) OpenUpload(ctx context.Context, transferID, passcode string) error {
	if !passcodeRe.MatchString(passcode) {
		return fmt.Errorf("open upload: passcode must be exactly four digits: %w", common.ErrValidation)
	}

	resp, err := s.coord.OpenUpload(ctx, transferID, passcode)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}

	transfer := resp.Transfer
	var total int64
	for i := range transfer.Items {
		total += transfer.Items[i].Size
	}

	job := &models.UploadJob{
		TransferID:    transferID,
		UploadBaseURL: resp.UploadBaseURL,
		UploadTicket:  resp.UploadTicket,
		ShareID:       transfer.ReceiverShareID,
		TotalBytes:    total,
	}
	s.state.PutJob(job)

	agent := s.newAgent(resp.UploadBaseURL, transfer.ReceiverShareID, resp.UploadTicket)
	g := newGate()
	s.mu.Lock()
	s.gates[transferID] = g
	s.agents[transferID] = agent
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(context.WithoutCancel(ctx), transfer, agent, g)
	}()
	return nil
}

// Wait blocks until all running uploads have finished. Test helper.
func (s *UploadService) Wait() { s.wg.Wait() }

// run sends every item of the transfer, then tears the job down after a
// grace delay.
func (s *UploadService) run(ctx context.Context, transfer models.Transfer, agent AgentClient, g *gate) {
	jobID := uuid.NewString()
	log := s.log.With("transfer", transfer.ID, "job", jobID)

	err := s.sendAll(ctx, transfer, agent, g)
	if err != nil {
		log.Error(ctx, "upload failed", "err", err)
		s.state.UpdateJob(transfer.ID, func(j *models.UploadJob) {
			j.Failed = true
			j.Done = true
			j.Message = err.Error()
		})
	} else {
		log.Info(ctx, "upload complete")
		s.state.UpdateJob(transfer.ID, func(j *models.UploadJob) {
			j.Done = true
			j.Message = "Upload complete"
		})
	}

	delay := s.cleanupSuccess
	if err != nil {
		delay = s.cleanupFailure
	}
	time.AfterFunc(delay, func() {
		s.state.DeleteJob(transfer.ID)
		s.files.Drop(transfer.ID)
		s.mu.Lock()
		delete(s.gates, transfer.ID)
		delete(s.agents, transfer.ID)
		s.mu.Unlock()
	})
}

func (s *UploadService) sendAll(ctx context.Context, transfer models.Transfer, agent AgentClient, g *gate) error {
	received, err := agent.Status(ctx)
	if err != nil {
		return err
	}

	prefs := transfer.Prefs()
	for i := range transfer.Items {
		item := &transfer.Items[i]
		if err := s.sendItem(ctx, transfer.ID, item, agent, g, received[item.ID]); err != nil {
			return err
		}
		if err := agent.Commit(ctx, item.ID); err != nil {
			return err
		}
		if err := agent.Finalize(ctx, item.ID, prefs.DestinationPath, true); err != nil {
			return err
		}
	}
	return nil
}

// sendItem streams one item from its local file, skipping bytes the agent
// already holds from a previous interrupted run.
func (s *UploadService) sendItem(ctx context.Context, transferID string, item *models.TransferItem, agent AgentClient, g *gate, alreadyReceived int64) error {
	fingerprint := common.Fingerprint(item.Filename, item.Size, item.SHA256)
	path, ok := s.files.Lookup(transferID, fingerprint)
	if !ok {
		return fmt.Errorf("no local file for %s: %w", item.Filename, common.ErrorNotFound)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	offset := alreadyReceived
	if offset > item.Size {
		offset = item.Size
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s: %w", path, err)
		}
		// already-received bytes count toward progress
		s.state.UpdateJob(transferID, func(j *models.UploadJob) {
			j.UploadedBytes += offset
		})
	}

	meta := api.ChunkMeta{ItemID: item.ID, Filename: item.Filename, Size: item.Size, SHA256: item.SHA256}
	buf := make([]byte, s.chunkSize)

	for offset < item.Size {
		if err := g.wait(ctx); err != nil {
			return err
		}

		want := item.Size - offset
		if want > s.chunkSize {
			want = s.chunkSize
		}
		n, err := io.ReadFull(f, buf[:want])
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		last := offset+int64(n) >= item.Size
		if err := agent.SendChunk(ctx, meta, offset, last, buf[:n]); err != nil {
			return err
		}
		offset += int64(n)

		s.state.UpdateJob(transferID, func(j *models.UploadJob) {
			j.UploadedBytes += int64(n)
		})
	}
	return nil
}

// Pause suspends the send loop without aborting the transport, and mirrors
// the action to the agent best-effort.
func (s *UploadService) Pause(ctx context.Context, transferID string) {
	s.mu.Lock()
	g := s.gates[transferID]
	agent := s.agents[transferID]
	s.mu.Unlock()
	if g == nil {
		return
	}
	g.pause()
	s.state.UpdateJob(transferID, func(j *models.UploadJob) { j.Paused = true })
	if agent != nil {
		if err := agent.Pause(ctx); err != nil {
			s.log.Warn(ctx, "agent pause failed", "transfer", transferID, "err", err)
		}
	}
}

// Resume reverses Pause.
func (s *UploadService) Resume(ctx context.Context, transferID string) {
	s.mu.Lock()
	g := s.gates[transferID]
	agent := s.agents[transferID]
	s.mu.Unlock()
	if g == nil {
		return
	}
	g.unpause()
	s.state.UpdateJob(transferID, func(j *models.UploadJob) { j.Paused = false })
	if agent != nil {
		if err := agent.Resume(ctx); err != nil {
			s.log.Warn(ctx, "agent resume failed", "transfer", transferID, "err", err)
		}
	}
}
