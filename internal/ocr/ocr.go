// Package ocr reads label text out of product images: it ranks the images on
// a page and runs them through an OCR backend until one looks like a label.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/labelscore/internal/config"
	"github.com/sells-group/labelscore/pkg/ocrspace"
)

// Extractor extracts text from a remote image.
type Extractor interface {
	ExtractText(ctx context.Context, imageURL string) (string, error)
}

// NewExtractor creates an Extractor based on config. A nil Extractor with a
// nil error means OCR is disabled.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "ocrspace", "":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return NewOCRSpace(ocrspace.NewClient(cfg.APIKey), cfg.Language), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	case "none":
		return nil, nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// OCRSpace extracts text through the OCR.space image endpoint.
type OCRSpace struct {
	client   ocrspace.Client
	language string
}

// NewOCRSpace wraps an OCR.space client.
func NewOCRSpace(client ocrspace.Client, language string) *OCRSpace {
	return &OCRSpace{client: client, language: language}
}

// ExtractText runs engine 2 with upscaling, which reads small label print best.
func (o *OCRSpace) ExtractText(ctx context.Context, imageURL string) (string, error) {
	resp, err := o.client.ParseImage(ctx, ocrspace.ParseRequest{
		ImageURL: imageURL,
		Language: o.language,
		Engine:   2,
		Scale:    true,
	})
	if err != nil {
		return "", eris.Wrapf(err, "ocr: ocrspace %s", imageURL)
	}
	return resp.Text(), nil
}
