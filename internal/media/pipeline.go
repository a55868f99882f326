package media

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"roomcast/internal/constants"
	apperrors "roomcast/internal/errors"
	"roomcast/internal/models"
	"roomcast/internal/storage"
	"roomcast/pkg/cloudapi"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SourceRef identifies a piece of media at the source platform, as carried
// in the inbound webhook message.
type SourceRef struct {
	ID       string
	Kind     string
	MimeType string
	Filename string
}

// SourceClient resolves and downloads media from the platform.
type SourceClient interface {
	GetMediaInfo(ctx context.Context, mediaID string) (*cloudapi.MediaInfo, error)
	Download(ctx context.Context, url string, maxBytes int64) ([]byte, string, error)
}

// Pipeline re-homes platform media into the durable blob store: resolve the
// short-lived source reference, download within time and size bounds, write
// under a deterministic object key, and hand back the locator plus a signed
// URL. Synthetic references and non-production download failures are
// substituted with a placeholder payload so local testing never needs a
// live platform credential.
type Pipeline struct {
	source     SourceClient
	store      storage.ObjectStore
	cfg        models.MediaConfig
	production bool
	logger     *logrus.Logger
}

func NewPipeline(source SourceClient, store storage.ObjectStore, cfg models.MediaConfig, production bool, logger *logrus.Logger) *Pipeline {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = constants.DefaultMaxMediaBytes
	}
	if cfg.DownloadTimeoutSec <= 0 {
		cfg.DownloadTimeoutSec = constants.DefaultMediaDownloadTimeoutSec
	}
	if cfg.URLTTLHours <= 0 {
		cfg.URLTTLHours = constants.DefaultMediaURLTTLHours
	}
	if cfg.Category == "" {
		cfg.Category = constants.DefaultMediaCategory
	}
	return &Pipeline{
		source:     source,
		store:      store,
		cfg:        cfg,
		production: production,
		logger:     logger,
	}
}

// Ingest runs the full pipeline for one inbound media reference and returns
// the media sub-fields to persist on the message.
func (p *Pipeline) Ingest(ctx context.Context, ref SourceRef, roomIdentity string) (*models.MediaInfo, error) {
	data, contentType, err := p.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = ref.MimeType
	}

	key := ObjectKey(p.cfg.Category, roomIdentity, time.Now().UTC(), uniqueName(ref, contentType))
	if err := p.store.Put(ctx, key, data, contentType); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "failed to store media")
	}

	url, err := p.store.PresignedURL(ctx, key, p.urlTTL())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "failed to sign media URL")
	}

	return &models.MediaInfo{
		Kind:     ref.Kind,
		SourceID: ref.ID,
		Locator:  key,
		URL:      url,
		Size:     int64(len(data)),
		MimeType: contentType,
		Filename: ref.Filename,
	}, nil
}

// fetch resolves the reference to bytes, applying the synthetic-marker and
// non-production fallback policy.
func (p *Pipeline) fetch(ctx context.Context, ref SourceRef) ([]byte, string, error) {
	if strings.HasPrefix(ref.ID, constants.SyntheticMediaPrefix) {
		if p.production {
			return nil, "", apperrors.New(apperrors.ErrCodeMediaNotFound,
				"synthetic media reference rejected in production")
		}
		p.logger.WithField("media_id", ref.ID).Debug("Substituting placeholder for synthetic media reference")
		return constants.PlaceholderMediaPayload, constants.PlaceholderMediaContentType, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.DownloadTimeoutSec)*time.Second)
	defer cancel()

	data, contentType, err := p.download(fetchCtx, ref.ID)
	if err != nil {
		if !p.production {
			p.logger.WithError(err).WithField("media_id", ref.ID).
				Warn("Media fetch failed outside production, substituting placeholder")
			return constants.PlaceholderMediaPayload, constants.PlaceholderMediaContentType, nil
		}
		return nil, "", err
	}
	return data, contentType, nil
}

func (p *Pipeline) download(ctx context.Context, mediaID string) ([]byte, string, error) {
	info, err := p.source.GetMediaInfo(ctx, mediaID)
	if err != nil {
		return nil, "", err
	}
	if p.cfg.MaxBytes > 0 && info.FileSize > p.cfg.MaxBytes {
		return nil, "", apperrors.New(apperrors.ErrCodeMediaTooLarge,
			fmt.Sprintf("media size %d exceeds limit %d", info.FileSize, p.cfg.MaxBytes))
	}

	data, contentType, err := p.source.Download(ctx, info.URL, p.cfg.MaxBytes)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = info.MimeType
	}
	return data, contentType, nil
}

// RefreshURL re-signs the URL for a previously stored locator after the
// prior one expired. The object is not re-uploaded.
func (p *Pipeline) RefreshURL(ctx context.Context, locator string) (string, error) {
	return p.store.PresignedURL(ctx, locator, p.urlTTL())
}

func (p *Pipeline) urlTTL() time.Duration {
	return time.Duration(p.cfg.URLTTLHours) * time.Hour
}

// ObjectKey builds the deterministic store path
// <category>/<identity>/<yyyy-mm-dd>/<name>.
func ObjectKey(category, identity string, t time.Time, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", category, identity, t.Format("2006-01-02"), name)
}

// uniqueName derives an upload filename with a per-upload unique suffix so
// concurrent uploads for the same room can never collide.
func uniqueName(ref SourceRef, contentType string) string {
	ext := ""
	if ref.Filename != "" {
		ext = path.Ext(ref.Filename)
	}
	if ext == "" && contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return uuid.NewString() + ext
}
