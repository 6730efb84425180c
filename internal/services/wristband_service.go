package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticketline/internal/status"
	"ticketline/models"
	"ticketline/monitoring"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type WristbandStore interface {
	InTransaction(fn func(app core.App) error) error
	FindWristband(app core.App, barcode string) (*models.WristbandScan, error)
	SaveWristband(app core.App, w *models.WristbandScan) error
}

// WristbandService records single-use wristband exchanges, the simpler
// sibling of ticket redemption keyed on the physical barcode. Redis takes
// the first hit from retrying scan guns; the record store stays the source
// of truth so a flushed cache cannot re-admit a barcode.
type WristbandService struct {
	store WristbandStore
	redis *redis.Client
}

func NewWristbandService(store WristbandStore, redisClient *redis.Client) *WristbandService {
	return &WristbandService{store: store, redis: redisClient}
}

func wristbandKey(barcode string) string {
	return fmt.Sprintf("wristband:scanned:%s", barcode)
}

// RecordScan marks barcode as exchanged. A barcode already recorded fails
// with ErrAlreadyScanned and mutates nothing.
func (s *WristbandService) RecordScan(ctx context.Context, barcode string, operator models.Actor) error {
	if barcode == "" {
		return fmt.Errorf("%w: missing barcode", status.ErrInvalidPayload)
	}
	if !operator.CanOperate() {
		return fmt.Errorf("%w: wristband scan requires operator role", status.ErrForbidden)
	}

	claimed, err := s.redis.SetNX(ctx, wristbandKey(barcode), operator.ID, 0).Result()
	if err != nil {
		// Redis is only the fast path; fall through to the record store.
		slog.Warn("wristband fast-path unavailable", "error", err)
	} else if !claimed {
		monitoring.TrackWristbandScan("already_scanned")
		return status.ErrAlreadyScanned
	}

	err = s.store.InTransaction(func(app core.App) error {
		existing, err := s.store.FindWristband(app, barcode)
		if err != nil {
			return err
		}
		if existing != nil && existing.Scanned {
			return status.ErrAlreadyScanned
		}

		w := existing
		if w == nil {
			w = &models.WristbandScan{Barcode: barcode}
		}
		w.Scanned = true
		w.ScannedBy = operator.ID
		w.ScannedAt = time.Now()
		return s.store.SaveWristband(app, w)
	})
	if err != nil {
		if !errors.Is(err, status.ErrAlreadyScanned) {
			// Release the fast-path claim so a later retry is not blocked
			// by a barcode that was never persisted.
			s.redis.Del(context.WithoutCancel(ctx), wristbandKey(barcode))
		}
		monitoring.TrackWristbandScan(wristbandResult(err))
		return err
	}

	monitoring.TrackWristbandScan("ok")
	slog.Info("wristband scanned", "barcode", barcode, "operator", operator.ID)
	return nil
}

// RevertScan clears a recorded barcode so it can be exchanged again.
// Superuser only, like ticket revert.
func (s *WristbandService) RevertScan(ctx context.Context, barcode string, actor models.Actor) error {
	if barcode == "" {
		return fmt.Errorf("%w: missing barcode", status.ErrInvalidPayload)
	}
	if !actor.IsSuperuser() {
		return fmt.Errorf("%w: wristband revert requires superuser role", status.ErrForbidden)
	}

	err := s.store.InTransaction(func(app core.App) error {
		w, err := s.store.FindWristband(app, barcode)
		if err != nil {
			return err
		}
		if w == nil || !w.Scanned {
			return status.ErrNotScanned
		}
		w.Scanned = false
		w.ScannedBy = ""
		w.ScannedAt = time.Time{}
		return s.store.SaveWristband(app, w)
	})
	if err != nil {
		return err
	}

	if err := s.redis.Del(ctx, wristbandKey(barcode)).Err(); err != nil {
		slog.Warn("could not clear wristband fast-path key", "barcode", barcode, "error", err)
	}
	monitoring.TrackWristbandScan("reverted")
	slog.Info("wristband scan reverted", "barcode", barcode, "actor", actor.ID)
	return nil
}

func wristbandResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, status.ErrAlreadyScanned):
		return "already_scanned"
	default:
		return "error"
	}
}
