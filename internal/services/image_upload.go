package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"comet/internal/apperr"
	"comet/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxImageSize   = 4 << 20
	UploadInterval = 2 * time.Minute
)

var (
	AnyImage      = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}
	PNGOrJPEGOnly = []string{"image/png", "image/jpeg"}
)

// ImageStore puts image bytes somewhere public and returns the URL.
type ImageStore interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// ImgurResponse Imgur API 响应结构
type ImgurResponse struct {
	Data struct {
		ID   string `json:"id"`
		Link string `json:"link"`
		Type string `json:"type"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// ImgurStore uploads anonymously with a client id.
type ImgurStore struct {
	clientID string
	endpoint string
	client   *http.Client
}

func NewImgurStore(clientID string) *ImgurStore {
	return &ImgurStore{
		clientID: clientID,
		endpoint: "https://api.imgur.com/3/image",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ImgurStore) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if s.clientID == "" {
		return "", fmt.Errorf("IMGUR_CLIENT_ID is not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("image", base64.StdEncoding.EncodeToString(data)); err != nil {
		return "", fmt.Errorf("write request body: %w", err)
	}
	if err := writer.WriteField("type", "base64"); err != nil {
		return "", fmt.Errorf("write request body: %w", err)
	}
	if filename != "" {
		if err := writer.WriteField("name", filename); err != nil {
			return "", fmt.Errorf("write request body: %w", err)
		}
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+s.clientID)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var imgurResp ImgurResponse
	if err := json.Unmarshal(raw, &imgurResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !imgurResp.Success || imgurResp.Data.Link == "" {
		return "", fmt.Errorf("imgur upload failed: status %d", imgurResp.Status)
	}
	return imgurResp.Data.Link, nil
}

// UploadService validates images and enforces the per-user upload interval.
type UploadService struct {
	db    *gorm.DB
	store ImageStore
	log   *zap.Logger
	now   func() time.Time
}

func NewUploadService(db *gorm.DB, store ImageStore, log *zap.Logger) *UploadService {
	return &UploadService{db: db, store: store, log: log, now: time.Now}
}

// DetectImage sniffs data and checks it against allowed MIME types.
func DetectImage(data []byte, allowed []string) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation("file is empty")
	}
	if len(data) > MaxImageSize {
		return "", apperr.Validation("Image must be smaller than 4MB")
	}
	mt := mimetype.Detect(data)
	for _, a := range allowed {
		if mt.Is(a) {
			return a, nil
		}
	}
	kinds := make([]string, len(allowed))
	for i, a := range allowed {
		kinds[i] = strings.ToUpper(strings.TrimPrefix(a, "image/"))
	}
	return "", apperr.Validation("Image must be " + strings.Join(kinds, ", "))
}

// Upload stores an image for user, at most once per UploadInterval unless
// the user is an admin.
func (s *UploadService) Upload(ctx context.Context, user *models.User, data []byte, filename string, allowed []string) (string, error) {
	if _, err := DetectImage(data, allowed); err != nil {
		return "", err
	}

	interval := UploadInterval
	if user.Admin {
		interval = 0
	}
	ok, err := claimSlot(s.db.WithContext(ctx), user.ID, "last_uploaded_image_at", interval, s.now())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.RateLimited(waitMessage(user.LastUploadedImageAt, interval, s.now(), "uploading another image"))
	}

	link, err := s.store.Upload(ctx, data, filename)
	if err != nil {
		s.log.Error("image upload failed", zap.String("user_id", user.ID), zap.Error(err))
		return "", fmt.Errorf("upload image: %w", err)
	}
	return link, nil
}
