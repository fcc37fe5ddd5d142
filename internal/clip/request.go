package clip

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Request describes the clip a caller wants extracted.
type Request struct {
	Description string `json:"description" validate:"required,min=1"`
	AspectRatio string `json:"aspect_ratio" validate:"required,oneof=wide tall"`
	Subtitles   bool   `json:"subtitles"`
	Quality     string `json:"quality" validate:"required,oneof=fast medium high"`
}

var requestValidator = validator.New()

// ValidateRequest checks the request before it enters the pipeline:
// non-empty description and enum membership for the format fields.
func ValidateRequest(req Request) error {
	if err := requestValidator.Struct(req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("invalid clip request: field %s failed %s", e.Field(), e.Tag())
		}
		return fmt.Errorf("invalid clip request: %w", err)
	}
	return nil
}
