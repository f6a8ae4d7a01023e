// media.go
//
// LUVNEST, a love page builder and viewer service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of luvnest.
// luvnest is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// luvnest is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with luvnest.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/localnerve/luvnest/internal/config"
	"github.com/localnerve/luvnest/internal/metrics"
	"github.com/localnerve/luvnest/internal/models"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// sniffLen is how much of an upload is read to detect its type.
const sniffLen = 3072

var allowedMedia = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"audio/mpeg",
	"audio/wav",
	"audio/ogg",
	"audio/mp3",
}

// BlobStore stores a blob and returns its public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// S3Store is a BlobStore on an S3 compatible bucket.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3Store builds the S3 client from configuration. A custom endpoint
// switches to path style addressing for MinIO and similar servers.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.S3PublicBaseURL
	if base == "" && cfg.S3Endpoint != "" {
		base = strings.TrimSuffix(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}

	return &S3Store{client: client, bucket: cfg.S3Bucket, publicBaseURL: strings.TrimSuffix(base, "/")}, nil
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", key, err)
	}
	return s.publicBaseURL + "/" + key, nil
}

// Upload is an incoming media file.
type Upload struct {
	OwnerID  string
	PageID   string
	FileName string
	Size     int64
	Body     io.Reader
}

// MediaService validates uploads, stores them and records them in
// media_files.
type MediaService struct {
	DB       *gorm.DB
	Store    BlobStore
	MaxBytes int64
	Log      zerolog.Logger
}

// DetectMedia sniffs the content type of head and checks it against the
// allowed images and audio types.
func DetectMedia(head []byte) (*mimetype.MIME, error) {
	m := mimetype.Detect(head)
	for _, allowed := range allowedMedia {
		if m.Is(allowed) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedMedia, m.String())
}

// Upload validates and stores u. Oversized or disallowed files are rejected
// before anything is written.
func (s *MediaService) Upload(ctx context.Context, u Upload) (*models.MediaFile, error) {
	if u.Size > s.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", types.ErrFileTooLarge, u.Size, s.MaxBytes)
	}

	var pageID *string
	if u.PageID != "" {
		var n int64
		if err := s.DB.WithContext(ctx).Model(&models.LovePage{}).
			Where("id = ? AND user_id = ?", u.PageID, u.OwnerID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, types.ErrNotFound
		}
		pageID = &u.PageID
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	m, err := DetectMedia(head)
	if err != nil {
		return nil, err
	}

	fileType := "image"
	if strings.HasPrefix(m.String(), "audio/") {
		fileType = "audio"
	}

	id := uuid.NewString()
	key := path.Join("users", u.OwnerID, id+m.Extension())
	url, err := s.Store.Put(ctx, key, io.MultiReader(bytes.NewReader(head), u.Body), u.Size, m.String())
	if err != nil {
		return nil, err
	}

	file := &models.MediaFile{
		ID:         id,
		UserID:     u.OwnerID,
		LovePageID: pageID,
		FileName:   path.Base(u.FileName),
		FileURL:    url,
		FileType:   fileType,
		FileSize:   u.Size,
		MimeType:   m.String(),
	}
	if err := s.DB.WithContext(ctx).Create(file).Error; err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	metrics.MediaUploads.WithLabelValues(fileType).Inc()
	s.Log.Info().Str("user", u.OwnerID).Str("key", key).Int64("size", u.Size).Msg("media stored")
	return file, nil
}
