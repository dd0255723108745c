package cloudinary

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Service stores submission files as raw Cloudinary assets.
type Service struct {
	client *cloudinary.Cloudinary
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload writes the stream under the given storage path and returns its secure URL.
// Existing assets at the same path are never overwritten.
func (s *Service) Upload(ctx context.Context, path string, reader io.Reader, contentType string) (string, error) {
	publicID, err := PublicID(path)
	if err != nil {
		return "", err
	}

	params := uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "raw",
		Overwrite:    api.Bool(false),
		Context:      api.CldAPIMap{"content_type": contentType},
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Int("bytes", result.Bytes).Msg("file uploaded to cloudinary")

	return result.SecureURL, nil
}

// PublicID converts a slash separated storage path into a Cloudinary public id.
func PublicID(path string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return "", fmt.Errorf("storage path must not be empty")
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("invalid storage path %q", path)
		}
	}
	return trimmed, nil
}
