// Package uploader hands image inputs to the hosting service and returns
// their durable URLs.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// PosterFolder is the folder every catalog poster is uploaded into.
const PosterFolder = "posters"

// uploadTimeout bounds a single upload call.
const uploadTimeout = 30 * time.Second

// ErrUpload wraps every failure reported by the hosting service.
var ErrUpload = errors.New("image upload failed")

// Options selects where and as what the input is stored.
type Options struct {
	Folder       string
	ResourceType string
}

// Result is what the hosting service returned for a successful upload.
type Result struct {
	SecureURL string
}

// Uploader accepts an image input (a remote URL, data URI or base64 payload)
// and returns its hosted URL.
type Uploader interface {
	Upload(ctx context.Context, input string, opts Options) (*Result, error)
}

// Cloudinary uploads through the Cloudinary API.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary returns a Cloudinary uploader for the given account.
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

// Upload sends input to Cloudinary. Transport errors and errors reported in
// the response body are both wrapped in ErrUpload.
func (c *Cloudinary) Upload(ctx context.Context, input string, opts Options) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	resp, err := c.cld.Upload.Upload(ctx, input, uploader.UploadParams{
		Folder:       opts.Folder,
		ResourceType: opts.ResourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpload, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, fmt.Errorf("%w: empty secure_url in response", ErrUpload)
	}

	return &Result{SecureURL: resp.SecureURL}, nil
}

// Disabled rejects every upload. It stands in when no hosting account is
// configured so poster-less requests still work.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, Options) (*Result, error) {
	return nil, fmt.Errorf("%w: image hosting is not configured", ErrUpload)
}
