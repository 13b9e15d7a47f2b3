package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	"github.com/fluffy-dev/The-Loom/internal/repository"
)

// CleanupConfig holds the expiry thresholds.
type CleanupConfig struct {
	Lifetime   time.Duration // rooms older than this are removed regardless of activity
	Inactivity time.Duration // rooms idle for longer than this are removed
}

// CleanupReport summarises one pass.
type CleanupReport struct {
	ExpiredRooms  int
	InactiveRooms int
	DeletedRooms  int
	SkippedRooms  int
	OrphanKeys    int
	Interrupted   bool
}

// CleanupService removes expired and inactive rooms along with their files, archives and state.
type CleanupService struct {
	roomRepo  repository.RoomRepository
	stateRepo repository.StateRepository
	storage   repository.FileStorage
	cfg       CleanupConfig
	now       func() time.Time
}

// NewCleanupService creates a CleanupService.
func NewCleanupService(
	roomRepo repository.RoomRepository,
	stateRepo repository.StateRepository,
	storage repository.FileStorage,
	cfg CleanupConfig,
) *CleanupService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for CleanupService")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for CleanupService")
	}
	if storage == nil {
		panic("FileStorage cannot be nil for CleanupService")
	}
	return &CleanupService{
		roomRepo:  roomRepo,
		stateRepo: stateRepo,
		storage:   storage,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *CleanupService) WithClock(now func() time.Time) *CleanupService {
	s.now = now
	return s
}

// RunPass performs one cleanup pass. Failures for one room do not stop the others;
// they are joined into the returned error.
func (s *CleanupService) RunPass(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport
	now := s.now()
	logCtx := logrus.WithField("operation", "cleanup")

	// 1. Rooms past their lifetime. The database filters with its own clock,
	// so the cutoff is checked again against ours.
	expired, err := s.roomRepo.FindCreatedBefore(ctx, now.Add(-s.cfg.Lifetime))
	if err != nil {
		return report, fmt.Errorf("find expired rooms: %w", err)
	}
	expired = lo.Filter(expired, func(r domain.Room, _ int) bool { return r.Expired(now, s.cfg.Lifetime) })
	report.ExpiredRooms = len(expired)

	// 2. Activity per room key. Without it only lifetime expiry can run this pass.
	var errs []error
	activities, err := s.stateRepo.ListActiveRoomKeys(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("list active room keys: %w", err))
		logCtx.WithError(err).Warn("State store unavailable, reaping expired rooms only")
		activities = nil
	}

	// 3. Rooms whose latest activity is older than the inactivity cutoff.
	keysByRoom := lo.GroupBy(activities, func(a domain.RoomActivity) string { return a.Key.RoomID })
	expiredIDs := lo.SliceToMap(expired, func(r domain.Room) (string, struct{}) { return r.PublicID, struct{}{} })
	cutoff := now.Add(-s.cfg.Inactivity)

	inactiveIDs := lo.Filter(lo.Keys(keysByRoom), func(id string, _ int) bool {
		if _, ok := expiredIDs[id]; ok {
			return false
		}
		latest := lo.MaxBy(keysByRoom[id], func(a, b domain.RoomActivity) bool { return a.LastActive.After(b.LastActive) })
		return latest.LastActive.Before(cutoff)
	})
	sort.Strings(inactiveIDs)

	var inactive []domain.Room
	if len(inactiveIDs) > 0 {
		inactive, err = s.roomRepo.FindByPublicIDs(ctx, inactiveIDs)
		if err != nil {
			errs = append(errs, fmt.Errorf("load inactive rooms: %w", err))
			inactive = nil
			inactiveIDs = nil
		}
		// ids with state but no row are orphans; only their keys remain to delete
		found := lo.Map(inactive, func(r domain.Room, _ int) string { return r.PublicID })
		for _, orphan := range lo.Without(inactiveIDs, found...) {
			for _, act := range keysByRoom[orphan] {
				if err := s.stateRepo.DeleteRoom(ctx, act.Key); err != nil {
					errs = append(errs, fmt.Errorf("orphan %s: %w", act.Key, err))
					continue
				}
				report.OrphanKeys++
			}
		}
	}
	report.InactiveRooms = len(inactive)

	// 4. Reap every selected room; a failure only skips that room.
	for _, room := range append(expired, inactive...) {
		if ctx.Err() != nil {
			report.Interrupted = true
			errs = append(errs, ctx.Err())
			break
		}
		keys := lo.Map(keysByRoom[room.PublicID], func(a domain.RoomActivity, _ int) domain.RoomKey { return a.Key })
		if err := s.reapRoom(ctx, room, keys); err != nil {
			report.SkippedRooms++
			errs = append(errs, err)
			logCtx.WithError(err).WithField("room_id", room.PublicID).Warn("Room cleanup failed, will retry next pass")
			continue
		}
		report.DeletedRooms++
	}

	return report, errors.Join(errs...)
}

func (s *CleanupService) reapRoom(ctx context.Context, room domain.Room, activeKeys []domain.RoomKey) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": room.PublicID, "operation": "cleanup"})

	// artifacts first; any failure leaves the whole room for the next pass
	artifacts := make([]string, 0, len(room.Files)+len(room.Archives))
	for _, f := range room.Files {
		artifacts = append(artifacts, f.DiskPath)
	}
	for _, a := range room.Archives {
		artifacts = append(artifacts, a.ArchivePath)
	}
	var storageErrs []error
	for _, path := range artifacts {
		if err := s.storage.Delete(ctx, path); err != nil {
			storageErrs = append(storageErrs, err)
		}
	}
	if len(storageErrs) > 0 {
		return fmt.Errorf("room %s: delete artifacts: %w", room.PublicID, errors.Join(storageErrs...))
	}

	// row and children in one transaction
	if err := s.roomRepo.Delete(ctx, room.ID); err != nil {
		return fmt.Errorf("room %s: delete row: %w", room.PublicID, err)
	}

	// state last; keys of never-edited files are absent, which DeleteRoom tolerates
	keys := append([]domain.RoomKey(nil), activeKeys...)
	for i := range room.Files {
		keys = append(keys, domain.RoomKey{RoomID: room.PublicID, FileID: room.Files[i].WireID()})
	}
	var stateErrs []error
	for _, key := range lo.Uniq(keys) {
		if err := s.stateRepo.DeleteRoom(ctx, key); err != nil {
			stateErrs = append(stateErrs, err)
		}
	}
	if len(stateErrs) > 0 {
		return fmt.Errorf("room %s: delete state: %w", room.PublicID, errors.Join(stateErrs...))
	}

	logCtx.WithFields(logrus.Fields{"files": len(room.Files), "archives": len(room.Archives)}).Info("Room deleted")
	return nil
}
