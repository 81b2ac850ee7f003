package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clipshare/internal/config"
	"clipshare/internal/logging"
	"clipshare/internal/model"
)

// ObjectStore is the subset of the S3 client used for avatars.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// MediaService stores avatars and signs post media uploads on Cloudflare R2.
type MediaService struct {
	store     ObjectStore
	presigner *s3.PresignClient
	bucket    string
	publicURL string
	logger    *zap.Logger
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*MediaService, error) {
	if !cfg.MediaConfigured() {
		return nil, model.ErrMediaStorageDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return newMediaService(client, cfg.R2BucketName, cfg.R2PublicURL, logger), nil
}

func newMediaService(client *s3.Client, bucket, publicURL string, logger *zap.Logger) *MediaService {
	return &MediaService{
		store:     client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logging.OrNop(logger).Named("media_service"),
	}
}

// UploadAvatar enforces size/type, normalizes to 200x200 JPEG, and uploads to R2.
func (s *MediaService) UploadAvatar(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	data, _, err := readAndValidateImage(file, header, model.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, model.AvatarWidth, model.AvatarHeight, 85)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", model.AvatarFolder, uuid.NewString(), model.AvatarExt)
	_, err = s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(jpegBytes),
		ContentType:  aws.String(model.ContentTypeJPEG),
		CacheControl: aws.String(model.AvatarCacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to r2: %w", err)
	}

	s.logger.Debug("avatar uploaded", zap.String("key", key), zap.Int("bytes", len(jpegBytes)))
	return &model.UploadResult{URL: s.publicURL + "/" + key, Key: key}, nil
}

// PresignPostUpload signs a PUT for one post media object owned by userID.
// The client uploads the bytes itself and sends PublicURL in POST /posts.
func (s *MediaService) PresignPostUpload(ctx context.Context, userID int64, req model.PresignPostUploadRequest) (*model.PresignPostUploadResponse, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := model.MediaExtension(contentType)
	if !ok {
		return nil, model.ErrInvalidContentType
	}
	if req.FileSize < 0 || req.FileSize > model.MaxPostMediaSize {
		return nil, model.ErrFileTooLarge
	}

	key := fmt.Sprintf("%s/%d/%s%s", model.PostMediaFolder, userID, uuid.NewString(), ext)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if req.FileSize > 0 {
		input.ContentLength = aws.Int64(req.FileSize)
	}

	signed, err := s.presigner.PresignPutObject(ctx, input,
		s3.WithPresignExpires(time.Duration(model.PresignExpirySeconds)*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &model.PresignPostUploadResponse{
		UploadURL:  signed.URL,
		PublicURL:  s.publicURL + "/" + key,
		Key:        key,
		ExpiresInS: model.PresignExpirySeconds,
	}, nil
}

// PresignPostUploadBatch signs every item or none.
func (s *MediaService) PresignPostUploadBatch(ctx context.Context, userID int64, req model.PresignPostUploadBatchRequest) (*model.PresignPostUploadBatchResponse, error) {
	if len(req.Items) == 0 {
		return nil, model.ErrPresignBatchEmpty
	}
	if len(req.Items) > model.MaxPresignBatch {
		return nil, model.ErrPresignBatchTooLarge
	}

	out := &model.PresignPostUploadBatchResponse{Items: make([]model.PresignPostUploadResponse, 0, len(req.Items))}
	for _, item := range req.Items {
		signed, err := s.PresignPostUpload(ctx, userID, item)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, *signed)
	}
	return out, nil
}

// DeleteObject removes an object by key. Callers must not pass the shared default avatar key.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, "", model.ErrInvalidImageType
	}

	return data, contentType, nil
}

// resizeToJPEG center-crops to the target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.ErrInvalidImageType
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
