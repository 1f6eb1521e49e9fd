package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turuturu/turuturu/internal/clock"
	creditdomain "github.com/turuturu/turuturu/internal/credit/domain"
	creditservice "github.com/turuturu/turuturu/internal/credit/service"
	"github.com/turuturu/turuturu/internal/music/domain"
	"github.com/turuturu/turuturu/internal/music/repository"
	notifdomain "github.com/turuturu/turuturu/internal/notification/domain"
	orderdomain "github.com/turuturu/turuturu/internal/order/domain"
	orderrepository "github.com/turuturu/turuturu/internal/order/repository"
	orderservice "github.com/turuturu/turuturu/internal/order/service"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeBlobStore struct {
	mu      sync.Mutex
	puts    []string
	deletes []string
	putErr  error
}

func (f *fakeBlobStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts = append(f.puts, key)
	return "http://localhost:8080/uploads/" + key, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return nil
}

type dropSink struct{}

func (dropSink) Send(ctx context.Context, event notifdomain.Event) {}

type musicTestEnv struct {
	db     *gorm.DB
	clock  *clock.FakeClock
	orders orderdomain.Service
	music  domain.Service
	blobs  *fakeBlobStore
}

func setupMusicTest(t *testing.T) *musicTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&profiledomain.Profile{},
		&orderdomain.Order{},
		&orderdomain.Submission{},
		&creditdomain.CreditDebit{},
		&domain.MusicFile{},
	))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	credits := creditservice.New(creditservice.Params{DB: db, Log: zap.NewNop(), Clock: fake})
	orders := orderservice.New(orderservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fake,
		Repo:     orderrepository.Provide(),
		Credits:  credits,
		Notifier: dropSink{},
	})
	blobs := &fakeBlobStore{}
	music := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fake,
		Repo:     repository.Provide(),
		Orders:   orders,
		Blobs:    blobs,
		Notifier: dropSink{},
	})

	return &musicTestEnv{db: db, clock: fake, orders: orders, music: music, blobs: blobs}
}

func (e *musicTestEnv) seedOrder(t *testing.T, customerID string) orderdomain.Order {
	t.Helper()
	require.NoError(t, e.db.Create(&profiledomain.Profile{
		ID:      customerID,
		Email:   customerID + "@example.com",
		Credits: 1,
	}).Error)
	result, err := e.orders.Submit(context.Background(), orderdomain.SubmitRequest{
		CustomerID: customerID,
		Prompt:     "uma música para " + customerID,
	})
	require.NoError(t, err)
	return result.Order
}

func TestUploadStoresBlobAndMovesOrderToProduction(t *testing.T) {
	env := setupMusicTest(t)
	order := env.seedOrder(t, "u1")

	file, err := env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     order.ID,
		Filename:    "alice.mp3",
		Title:       "Canção da Alice",
		ContentType: "audio/mpeg",
		Size:        1024,
		Body:        strings.NewReader("fake audio bytes"),
		UpdatedBy:   "admin",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.BlobKey, ".mp3"))
	assert.Contains(t, file.URL, "/uploads/"+file.BlobKey)
	require.NotNil(t, file.Title)
	assert.Equal(t, "Canção da Alice", *file.Title)
	require.Len(t, env.blobs.puts, 1)

	got, err := env.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusInProduction, got.Status)
}

func TestUploadRejectsUnsupportedMedia(t *testing.T) {
	env := setupMusicTest(t)
	order := env.seedOrder(t, "u1")

	_, err := env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     order.ID,
		ContentType: "application/pdf",
		Size:        1024,
		Body:        strings.NewReader("%PDF"),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
	assert.Empty(t, env.blobs.puts, "rejected uploads never touch the blob store")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	env := setupMusicTest(t)
	order := env.seedOrder(t, "u1")

	_, err := env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     order.ID,
		ContentType: "audio/mpeg",
		Size:        domain.MaxUploadBytes + 1,
		Body:        strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	assert.Empty(t, env.blobs.puts)
}

func TestUploadRejectsUnknownOrder(t *testing.T) {
	env := setupMusicTest(t)

	_, err := env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     "nope",
		ContentType: "audio/mpeg",
		Size:        1024,
		Body:        strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Empty(t, env.blobs.puts)
}

func TestUploadRejectsUnpaidOrder(t *testing.T) {
	env := setupMusicTest(t)
	require.NoError(t, env.db.Create(&profiledomain.Profile{
		ID:      "u1",
		Email:   "u1@example.com",
		Credits: 0,
	}).Error)
	result, err := env.orders.Submit(context.Background(), orderdomain.SubmitRequest{
		CustomerID: "u1",
		Prompt:     "uma música",
	})
	require.NoError(t, err)
	require.Equal(t, orderdomain.StatusAwaitingPayment, result.Order.Status)
	require.Equal(t, orderdomain.PaymentPending, result.Order.PaymentStatus)

	_, err = env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     result.Order.ID,
		ContentType: "audio/mpeg",
		Size:        1024,
		Body:        strings.NewReader("x"),
		UpdatedBy:   "admin",
	})
	assert.ErrorIs(t, err, domain.ErrOrderUnpaid)
	assert.Empty(t, env.blobs.puts, "no blob for an unpaid order")

	var count int64
	require.NoError(t, env.db.Model(&domain.MusicFile{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "no delivery row for an unpaid order")
}

func TestUploadRejectsCanceledOrder(t *testing.T) {
	env := setupMusicTest(t)
	order := env.seedOrder(t, "u1")
	_, err := env.orders.UpdateStatus(context.Background(), orderdomain.UpdateStatusRequest{
		OrderID: order.ID, Status: orderdomain.StatusCanceled, UpdatedBy: "admin",
	})
	require.NoError(t, err)

	_, err = env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     order.ID,
		ContentType: "audio/mpeg",
		Size:        1024,
		Body:        strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrOrderClosed)
	assert.Empty(t, env.blobs.puts)
}

func TestUploadCleansBlobWhenInsertFails(t *testing.T) {
	env := setupMusicTest(t)
	order := env.seedOrder(t, "u1")

	// Drop the table so the row insert fails after the blob was written.
	require.NoError(t, env.db.Migrator().DropTable(&domain.MusicFile{}))

	_, err := env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     order.ID,
		ContentType: "audio/mpeg",
		Size:        1024,
		Body:        strings.NewReader("x"),
	})
	require.Error(t, err)
	require.Len(t, env.blobs.puts, 1)
	require.Len(t, env.blobs.deletes, 1)
	assert.Equal(t, env.blobs.puts[0], env.blobs.deletes[0])
}

func TestUploadSurfacesBlobStoreFailure(t *testing.T) {
	env := setupMusicTest(t)
	order := env.seedOrder(t, "u1")
	env.blobs.putErr = errors.New("disk full")

	_, err := env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     order.ID,
		ContentType: "audio/mpeg",
		Size:        1024,
		Body:        strings.NewReader("x"),
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, env.db.Model(&domain.MusicFile{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "no row without a blob")
}

func TestUpdateLyrics(t *testing.T) {
	env := setupMusicTest(t)
	order := env.seedOrder(t, "u1")

	file, err := env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     order.ID,
		ContentType: "audio/mpeg",
		Size:        1024,
		Body:        strings.NewReader("x"),
	})
	require.NoError(t, err)

	err = env.music.UpdateLyrics(context.Background(), domain.UpdateLyricsRequest{
		MusicFileID: file.ID,
		Lyrics:      "Parabéns pra você",
		UpdatedBy:   "admin",
	})
	require.NoError(t, err)

	got, err := env.music.GetByID(context.Background(), file.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Lyrics)
	assert.Equal(t, "Parabéns pra você", *got.Lyrics)

	err = env.music.UpdateLyrics(context.Background(), domain.UpdateLyricsRequest{MusicFileID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRemovesRowAndBlob(t *testing.T) {
	env := setupMusicTest(t)
	order := env.seedOrder(t, "u1")

	file, err := env.music.Upload(context.Background(), domain.UploadRequest{
		OrderID:     order.ID,
		ContentType: "audio/mpeg",
		Size:        1024,
		Body:        strings.NewReader("x"),
	})
	require.NoError(t, err)

	require.NoError(t, env.music.Delete(context.Background(), file.ID, "admin"))

	_, err = env.music.GetByID(context.Background(), file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, env.blobs.deletes, file.BlobKey)

	assert.ErrorIs(t, env.music.Delete(context.Background(), file.ID, "admin"), domain.ErrNotFound)
}
