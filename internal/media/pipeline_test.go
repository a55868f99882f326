package media

import (
	"context"
	"testing"
	"time"

	"roomcast/internal/constants"
	apperrors "roomcast/internal/errors"
	"roomcast/internal/models"
	"roomcast/pkg/cloudapi"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	info        *cloudapi.MediaInfo
	infoErr     error
	data        []byte
	contentType string
	downloadErr error
	infoCalls   int
}

func (f *fakeSource) GetMediaInfo(ctx context.Context, mediaID string) (*cloudapi.MediaInfo, error) {
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

func (f *fakeSource) Download(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return f.data, f.contentType, nil
}

type fakeStore struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
	signErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://store.example/" + key + "?signed=1", nil
}

func newTestPipeline(source SourceClient, store *fakeStore, production bool) *Pipeline {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewPipeline(source, store, models.MediaConfig{
		MaxBytes:           1024,
		DownloadTimeoutSec: 5,
		URLTTLHours:        1,
		Category:           "chat-media",
	}, production, logger)
}

func TestIngestDownload(t *testing.T) {
	source := &fakeSource{
		info: &cloudapi.MediaInfo{ID: "media-1", URL: "https://platform/dl/1", MimeType: "image/jpeg", FileSize: 100},
		data: []byte("jpegbytes"), contentType: "image/jpeg",
	}
	store := newFakeStore()
	p := newTestPipeline(source, store, true)

	info, err := p.Ingest(context.Background(), SourceRef{ID: "media-1", Kind: "image", MimeType: "image/jpeg", Filename: "pic.jpg"}, "6287000000001")
	require.NoError(t, err)

	assert.Equal(t, "image", info.Kind)
	assert.Equal(t, "media-1", info.SourceID)
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "image/jpeg", info.MimeType)
	assert.Contains(t, info.URL, "signed=1")

	// Stored under the category/identity/date prefix with the original
	// extension preserved.
	assert.Contains(t, info.Locator, "chat-media/6287000000001/")
	assert.Contains(t, info.Locator, ".jpg")
	assert.Equal(t, []byte("jpegbytes"), store.objects[info.Locator])
}

func TestIngestUniqueKeys(t *testing.T) {
	source := &fakeSource{
		info: &cloudapi.MediaInfo{ID: "media-1", URL: "u", FileSize: 3},
		data: []byte("abc"),
	}
	store := newFakeStore()
	p := newTestPipeline(source, store, true)

	ref := SourceRef{ID: "media-1", Kind: "image", Filename: "same.jpg"}
	a, err := p.Ingest(context.Background(), ref, "6287000000001")
	require.NoError(t, err)
	b, err := p.Ingest(context.Background(), ref, "6287000000001")
	require.NoError(t, err)

	assert.NotEqual(t, a.Locator, b.Locator, "same filename must never collide")
	assert.Len(t, store.objects, 2)
}

func TestIngestSyntheticReference(t *testing.T) {
	source := &fakeSource{}
	store := newFakeStore()
	p := newTestPipeline(source, store, false)

	info, err := p.Ingest(context.Background(), SourceRef{
		ID:   constants.SyntheticMediaPrefix + "fixture-1",
		Kind: "image",
	}, "6287000000001")
	require.NoError(t, err)

	// The platform API was never consulted; the placeholder was stored.
	assert.Zero(t, source.infoCalls)
	assert.Equal(t, constants.PlaceholderMediaContentType, info.MimeType)
	assert.Equal(t, int64(len(constants.PlaceholderMediaPayload)), info.Size)
}

func TestIngestSyntheticRejectedInProduction(t *testing.T) {
	p := newTestPipeline(&fakeSource{}, newFakeStore(), true)

	_, err := p.Ingest(context.Background(), SourceRef{
		ID:   constants.SyntheticMediaPrefix + "fixture-1",
		Kind: "image",
	}, "6287000000001")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMediaNotFound))
}

func TestIngestTooLarge(t *testing.T) {
	source := &fakeSource{
		info: &cloudapi.MediaInfo{ID: "media-1", URL: "u", FileSize: 10 << 20},
	}
	p := newTestPipeline(source, newFakeStore(), true)

	_, err := p.Ingest(context.Background(), SourceRef{ID: "media-1", Kind: "video"}, "6287000000001")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMediaTooLarge))
}

func TestIngestSourceFailureInProduction(t *testing.T) {
	source := &fakeSource{infoErr: apperrors.New(apperrors.ErrCodeMediaNotFound, "gone")}
	p := newTestPipeline(source, newFakeStore(), true)

	_, err := p.Ingest(context.Background(), SourceRef{ID: "media-1", Kind: "image"}, "6287000000001")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMediaNotFound))
}

func TestIngestSourceFailureFallsBackOutsideProduction(t *testing.T) {
	source := &fakeSource{infoErr: apperrors.New(apperrors.ErrCodeMediaTransient, "timeout")}
	store := newFakeStore()
	p := newTestPipeline(source, store, false)

	info, err := p.Ingest(context.Background(), SourceRef{ID: "media-1", Kind: "image"}, "6287000000001")
	require.NoError(t, err)
	assert.Equal(t, constants.PlaceholderMediaContentType, info.MimeType)
}

func TestIngestStoreFailure(t *testing.T) {
	source := &fakeSource{
		info: &cloudapi.MediaInfo{ID: "media-1", URL: "u", FileSize: 3},
		data: []byte("abc"),
	}
	store := newFakeStore()
	store.putErr = assert.AnError
	p := newTestPipeline(source, store, true)

	_, err := p.Ingest(context.Background(), SourceRef{ID: "media-1", Kind: "image"}, "6287000000001")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStorageWrite))
}

func TestRefreshURL(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(&fakeSource{}, store, true)

	url, err := p.RefreshURL(context.Background(), "chat-media/x/2026-08-30/y.jpg")
	require.NoError(t, err)
	assert.Contains(t, url, "signed=1")
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	key := ObjectKey("chat-media", "6287000000001", at, "abc.jpg")
	assert.Equal(t, "chat-media/6287000000001/2026-08-30/abc.jpg", key)
}
