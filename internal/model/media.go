package model

import "clipshare/internal/apperr"

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024 // 5MB
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
	AvatarCacheControl = "public, max-age=31536000" // 1 year

	PresignExpirySeconds = 900
	MaxPresignBatch      = MaxPostImages
)

// Supported content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"

	ContentTypeMP4       = "video/mp4"
	ContentTypeWebM      = "video/webm"
	ContentTypeQuickTime = "video/quicktime"
)

var allowedImageTypes = map[string]string{
	ContentTypeJPEG: ".jpg",
	ContentTypePNG:  ".png",
	ContentTypeGIF:  ".gif",
	ContentTypeWebP: ".webp",
}

var allowedVideoTypes = map[string]string{
	ContentTypeMP4:       ".mp4",
	ContentTypeWebM:      ".webm",
	ContentTypeQuickTime: ".mov",
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeInvalidImageType   = "INVALID_IMAGE_TYPE"
	CodeInvalidContentType = "INVALID_CONTENT_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge         = apperr.New(apperr.KindValidation, "file too large")
	ErrInvalidImageType     = apperr.New(apperr.KindValidation, "unsupported image type")
	ErrInvalidContentType   = apperr.New(apperr.KindValidation, "unsupported media type")
	ErrMediaStorageDisabled = apperr.New(apperr.KindInternal, "media storage is not configured")
	ErrPresignBatchTooLarge = apperr.New(apperr.KindValidation, "too many items in presign batch")
	ErrPresignBatchEmpty    = apperr.New(apperr.KindValidation, "presign batch must not be empty")
)

// UploadResult represents the uploaded object location
// URL is the public-facing URL (using R2 public endpoint)
// Key is the object key inside the bucket (useful for future deletes)
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignPostUploadRequest requests a presigned URL for uploading post media directly to R2.
// The client PUTs bytes to UploadURL, then references PublicURL in POST /posts.
type PresignPostUploadRequest struct {
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"` // Optional but recommended for validation
}

// PresignPostUploadResponse returns upload details for direct-to-R2 uploads.
type PresignPostUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	PublicURL  string `json:"public_url"`
	Key        string `json:"key"`
	ExpiresInS int    `json:"expires_in"`
}

// PresignPostUploadBatchRequest requests multiple presigned URLs in a single call.
type PresignPostUploadBatchRequest struct {
	Items []PresignPostUploadRequest `json:"items"`
}

// PresignPostUploadBatchResponse returns presigned URLs for each requested item.
type PresignPostUploadBatchResponse struct {
	Items []PresignPostUploadResponse `json:"items"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// MediaExtension returns the object suffix for an accepted post media
// content type, or false when the type is not accepted.
func MediaExtension(contentType string) (string, bool) {
	if ext, ok := allowedImageTypes[contentType]; ok {
		return ext, true
	}
	ext, ok := allowedVideoTypes[contentType]
	return ext, ok
}
