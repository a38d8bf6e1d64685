// Package model maps domain entities to the field maps stored in document collections.
package model

import (
	"time"

	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"

	"github.com/go-viper/mapstructure/v2"
)

// Document is the schemaless field map a collection stores.
type Document = map[string]any

// decodeDocument fills out from doc. Every key in required must be present and
// non-nil, and every present field must already have the target type; no
// weak conversions are applied.
func decodeDocument(kind string, doc Document, required []string, out any) error {
	if doc == nil {
		return domainerrors.ErrDecodeFailure.WithDetails(kind + ": empty document")
	}

	for _, key := range required {
		if v, ok := doc[key]; !ok || v == nil {
			return domainerrors.ErrDecodeFailure.WithDetails(kind + ": missing field " + key)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "doc",
	})
	if err != nil {
		return errors.Wrap(err, "failed to build document decoder")
	}

	if err := decoder.Decode(doc); err != nil {
		return errors.WithStack(domainerrors.ErrDecodeFailure.WithDetails(kind + ": " + err.Error()))
	}

	return nil
}

// utc normalises stored times so round trips compare equal regardless of the
// location the driver hands back.
func utc(t time.Time) time.Time {
	return t.UTC()
}
