package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticketline/internal/status"
	"ticketline/models"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordScanFirstScanWins(t *testing.T) {
	store := newFakeStore()
	db, mock := redismock.NewClientMock()
	svc := NewWristbandService(store, db)

	mock.ExpectSetNX("wristband:scanned:WB-001", operator.ID, 0).SetVal(true)

	require.NoError(t, svc.RecordScan(context.Background(), "WB-001", operator))

	w := store.Wristbands["WB-001"]
	require.NotNil(t, w)
	assert.True(t, w.Scanned)
	assert.Equal(t, operator.ID, w.ScannedBy)
	assert.False(t, w.ScannedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordScanDuplicateStopsAtFastPath(t *testing.T) {
	store := newFakeStore()
	db, mock := redismock.NewClientMock()
	svc := NewWristbandService(store, db)

	mock.ExpectSetNX("wristband:scanned:WB-001", operator.ID, 0).SetVal(false)

	err := svc.RecordScan(context.Background(), "WB-001", operator)
	require.ErrorIs(t, err, status.ErrAlreadyScanned)
	assert.Empty(t, store.Wristbands, "the duplicate never reaches the record store")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordScanSurvivesRedisOutage(t *testing.T) {
	store := newFakeStore()
	db, mock := redismock.NewClientMock()
	svc := NewWristbandService(store, db)

	mock.ExpectSetNX("wristband:scanned:WB-001", operator.ID, 0).SetErr(errors.New("connection refused"))

	require.NoError(t, svc.RecordScan(context.Background(), "WB-001", operator),
		"redis is only the fast path")
	assert.True(t, store.Wristbands["WB-001"].Scanned)
}

func TestRecordScanFlushedCacheCannotReadmit(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SaveWristband(nil, scannedWristband("WB-001")))

	db, mock := redismock.NewClientMock()
	svc := NewWristbandService(store, db)

	// A flushed cache lets the SETNX through, but the record store is the
	// source of truth. The re-warmed key must not be deleted.
	mock.ExpectSetNX("wristband:scanned:WB-001", operator.ID, 0).SetVal(true)

	err := svc.RecordScan(context.Background(), "WB-001", operator)
	require.ErrorIs(t, err, status.ErrAlreadyScanned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordScanReleasesClaimOnStoreFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	svc := NewWristbandService(brokenWristbandStore{}, db)

	mock.ExpectSetNX("wristband:scanned:WB-001", operator.ID, 0).SetVal(true)
	mock.ExpectDel("wristband:scanned:WB-001").SetVal(1)

	err := svc.RecordScan(context.Background(), "WB-001", operator)
	require.Error(t, err)
	require.NotErrorIs(t, err, status.ErrAlreadyScanned)
	assert.NoError(t, mock.ExpectationsWereMet(), "the fast-path claim must be released")
}

func TestRecordScanAuthorization(t *testing.T) {
	store := newFakeStore()
	db, _ := redismock.NewClientMock()
	svc := NewWristbandService(store, db)

	err := svc.RecordScan(context.Background(), "WB-001", buyer)
	require.ErrorIs(t, err, status.ErrForbidden)

	err = svc.RecordScan(context.Background(), "", operator)
	require.ErrorIs(t, err, status.ErrInvalidPayload)
}

func TestRevertScanClearsRecordAndKey(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SaveWristband(nil, scannedWristband("WB-001")))

	db, mock := redismock.NewClientMock()
	svc := NewWristbandService(store, db)

	mock.ExpectDel("wristband:scanned:WB-001").SetVal(1)

	require.NoError(t, svc.RevertScan(context.Background(), "WB-001", superuser))
	assert.False(t, store.Wristbands["WB-001"].Scanned)
	assert.Empty(t, store.Wristbands["WB-001"].ScannedBy)
	assert.True(t, store.Wristbands["WB-001"].ScannedAt.IsZero(),
		"an unscanned record must not keep a scan timestamp")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevertScanValidation(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SaveWristband(nil, scannedWristband("WB-001")))

	db, _ := redismock.NewClientMock()
	svc := NewWristbandService(store, db)

	err := svc.RevertScan(context.Background(), "WB-001", operator)
	require.ErrorIs(t, err, status.ErrForbidden, "revert is superuser only")
	assert.True(t, store.Wristbands["WB-001"].Scanned)

	err = svc.RevertScan(context.Background(), "WB-404", superuser)
	require.ErrorIs(t, err, status.ErrNotScanned)
}

func scannedWristband(barcode string) *models.WristbandScan {
	return &models.WristbandScan{
		Barcode:   barcode,
		Scanned:   true,
		ScannedBy: "op0",
		ScannedAt: time.Now().Add(-time.Hour),
	}
}

// brokenWristbandStore simulates the record store being unreachable.
type brokenWristbandStore struct{}

func (brokenWristbandStore) InTransaction(fn func(app core.App) error) error {
	return errors.New("record store offline")
}

func (brokenWristbandStore) FindWristband(app core.App, barcode string) (*models.WristbandScan, error) {
	return nil, errors.New("record store offline")
}

func (brokenWristbandStore) SaveWristband(app core.App, w *models.WristbandScan) error {
	return errors.New("record store offline")
}
