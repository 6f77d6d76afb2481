package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/client/repositories/files"
	"github.com/dmitrijs2005/gophsend/internal/client/repositories/tombstones"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/dbx"
)

// Refresher updates the download counters of an owned file from the file
// service. It reports whether f changed and returns common.ErrNotFound when
// the file no longer exists remotely.
type Refresher interface {
	Refresh(ctx context.Context, f *models.OwnedFile) (bool, error)
}

// Merge reconciles the local file list with the remote one.
//
// Records are united by id. When both sides hold an id, the copy with the
// later UpdatedAt wins (ties keep the local one) and the download count is
// the larger of the two. Refreshed counters are written back to the remote
// list, and a refresher that changes the download limit stamps UpdatedAt so
// the service's limit outlives older copies. Removal beats modification:
// tombstoned or expired
// remote records are not imported, and files the refresher reports gone are
// removed. Tombstones are dropped once the remote list no longer has their
// id. A nil remote means the remote state is unknown, so tombstones are
// kept.
func (s *LocalStore) Merge(ctx context.Context, remote []*models.OwnedFile, refresher Refresher) (models.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result models.SyncResult
	now := s.now()
	remoteIDs := make(map[string]struct{}, len(remote))

	local, err := s.files.List(ctx)
	if err != nil {
		return result, err
	}
	tombs, err := s.tombs.List(ctx)
	if err != nil {
		return result, err
	}

	byID := make(map[string]*models.OwnedFile, len(local))
	for _, f := range local {
		byID[f.ID] = f
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		filesTx := files.NewSQLiteRepository(tx)
		tombsTx := tombstones.NewSQLiteRepository(tx)

		for _, r := range remote {
			if r == nil || r.ID == "" {
				result.Outgoing = true
				continue
			}
			if _, dup := remoteIDs[r.ID]; dup {
				result.Outgoing = true
				continue
			}
			remoteIDs[r.ID] = struct{}{}

			if _, removed := tombs[r.ID]; removed {
				result.Outgoing = true
				continue
			}

			l, ok := byID[r.ID]
			if !ok {
				if r.Expired(now) {
					result.Outgoing = true
					continue
				}
				if err := filesTx.Upsert(ctx, r); err != nil {
					return err
				}
				byID[r.ID] = r
				result.Incoming = true
				continue
			}

			merged := resolve(l, r)
			if !sameRecord(merged, l) {
				if err := filesTx.Upsert(ctx, merged); err != nil {
					return err
				}
				byID[r.ID] = merged
				result.Incoming = true
			}
			if !sameRecord(merged, r) {
				result.Outgoing = true
			}
		}

		if remote == nil {
			return nil
		}
		for id := range tombs {
			if _, ok := remoteIDs[id]; !ok {
				if err := tombsTx.Delete(ctx, id); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("merge remote list: %w", err)
	}

	current, err := s.files.List(ctx)
	if err != nil {
		return result, err
	}
	refreshed, err := s.refreshLocked(ctx, current, refresher, now)
	if err != nil {
		return result, err
	}
	result = result.Or(refreshed.result)

	for _, f := range refreshed.kept {
		if _, ok := remoteIDs[f.ID]; !ok {
			result.Outgoing = true
		}
	}

	return result, nil
}

// Prune is the local-only merge used without a session: it refreshes
// counters and drops expired or vanished files.
func (s *LocalStore) Prune(ctx context.Context, refresher Refresher) (models.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.files.List(ctx)
	if err != nil {
		return models.SyncResult{}, err
	}
	refreshed, err := s.refreshLocked(ctx, current, refresher, s.now())
	return refreshed.result, err
}

type refreshOutcome struct {
	result models.SyncResult
	kept   []*models.OwnedFile
}

func (s *LocalStore) refreshLocked(ctx context.Context, current []*models.OwnedFile, refresher Refresher, now time.Time) (refreshOutcome, error) {
	var out refreshOutcome

	for _, f := range current {
		gone := false
		if refresher != nil && !f.Expired(now) {
			changed, err := refresher.Refresh(ctx, f)
			switch {
			case errors.Is(err, common.ErrNotFound):
				gone = true
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return out, err
			case err != nil:
				s.logger.Warn(ctx, "refresh failed, keeping file", "id", f.ID, "error", err)
			case changed:
				if err := s.files.Upsert(ctx, f); err != nil {
					return out, err
				}
				// the remote list still carries the old counters
				out.result.DownloadCount = true
				out.result.Outgoing = true
			}
		}

		if gone || f.Expired(now) {
			if err := s.removeLocked(ctx, f.ID); err != nil {
				return out, err
			}
			out.result.Outgoing = true
			continue
		}
		out.kept = append(out.kept, f)
	}

	return out, nil
}

func resolve(local, remote *models.OwnedFile) *models.OwnedFile {
	merged := *local
	if remote.UpdatedAt.After(local.UpdatedAt) {
		merged = *remote
	}
	merged.DownloadCount = max(local.DownloadCount, remote.DownloadCount)
	return &merged
}

func sameRecord(a, b *models.OwnedFile) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
