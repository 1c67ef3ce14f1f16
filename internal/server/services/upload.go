package services

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/dmitrijs2005/quickstash/internal/common"
)

// UploadMetadata describes an accepted upload as reported by the transport
// layer: the user-visible name plus the (discriminator, hash, size) triple
// produced when the physical blob was stored.
type UploadMetadata struct {
	Name          string
	Discriminator string
	Hash          []byte
	Size          int64
}

// Validate checks the metadata before it is allowed anywhere near the
// database. Violations are reported as common.ErrValidation.
func (m UploadMetadata) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.Name,
			validation.Required,
			validation.Length(1, 255),
			validation.By(noPathSeparators)),
		validation.Field(&m.Discriminator, validation.Required),
		validation.Field(&m.Hash, validation.Required),
		validation.Field(&m.Size, validation.Min(int64(0))),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrValidation, err)
	}
	return nil
}

func noPathSeparators(value interface{}) error {
	name, _ := value.(string)
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("must not contain path separators")
	}
	return nil
}
