package domain

import "errors"

// Failure taxonomy for a single asset's pipeline. All of these are recovered
// at the asset-pipeline boundary and turned into an absent UploadResult; only
// errors outside this set propagate to the top level.
var (
	// ErrInvalidAsset: local bytes do not decode as an image.
	ErrInvalidAsset = errors.New("asset is not a valid image")
	// ErrDownloadExhausted: retry budget consumed without a successful fetch.
	ErrDownloadExhausted = errors.New("download attempts exhausted")
	// ErrThumbnailCreation: transcoder cannot process a fetched image.
	ErrThumbnailCreation = errors.New("thumbnail creation failed")
	// ErrUploadFailure: blob store rejected or errored on the upload.
	ErrUploadFailure = errors.New("blob upload failed")
	// ErrPostProcessing: content index rejected or errored on the post record.
	ErrPostProcessing = errors.New("post submission failed")
)

// IsAssetFailure reports whether err belongs to the recoverable per-asset
// taxonomy.
func IsAssetFailure(err error) bool {
	return errors.Is(err, ErrInvalidAsset) ||
		errors.Is(err, ErrDownloadExhausted) ||
		errors.Is(err, ErrThumbnailCreation) ||
		errors.Is(err, ErrUploadFailure) ||
		errors.Is(err, ErrPostProcessing)
}
