package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"turks-backend/models"
)

// Presigned is a browser-usable form upload.
type Presigned struct {
	URL    string
	Fields map[string]string
}

// Presigner signs a form upload for one object key.
type Presigner interface {
	PresignUpload(ctx context.Context, key string) (Presigned, error)
	Expiry() time.Duration
}

// ObjectKey is where a wallet's upload lands. The key alone determines the
// public URL, so clients can build option URLs from fields.key.
func ObjectKey(wallet, id string) string {
	return "tasks/" + wallet + "/" + id + "/image.jpg"
}

// PublicURL joins the public base URL and an object key.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// Service hands out presigned uploads scoped to the caller's wallet.
type Service struct {
	presigner Presigner
	publicURL string
	newID     func() string
	now       func() time.Time
}

// NewService builds an upload service. publicBaseURL is the CDN origin the
// bucket is served from.
func NewService(p Presigner, publicBaseURL string) *Service {
	return &Service{presigner: p, publicURL: publicBaseURL, newID: uuid.NewString, now: time.Now}
}

// Presign returns a presigned upload for a fresh object under wallet.
func (s *Service) Presign(ctx context.Context, wallet string) (*models.PresignedURLResponse, error) {
	key := ObjectKey(wallet, s.newID())
	p, err := s.presigner.PresignUpload(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	fields := make(map[string]string, len(p.Fields)+1)
	for k, v := range p.Fields {
		fields[k] = v
	}
	fields["key"] = key
	return &models.PresignedURLResponse{
		PreSignedURL: p.URL,
		Fields:       fields,
		PublicURL:    PublicURL(s.publicURL, key),
		ExpiresAt:    s.now().UTC().Add(s.presigner.Expiry()),
	}, nil
}

// ErrNotConfigured is returned when no upload bucket is configured.
var ErrNotConfigured = errors.New("uploads are not configured")

// Disabled refuses every upload.
type Disabled struct{}

func (Disabled) Expiry() time.Duration { return 0 }

func (Disabled) PresignUpload(context.Context, string) (Presigned, error) {
	return Presigned{}, ErrNotConfigured
}
