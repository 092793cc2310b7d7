// Package request holds body decoding helpers shared by the CRUD handlers.
package request

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// BindPatch decodes a partial update body into dst, rejecting fields dst
// does not declare, then runs the binding validators. An empty body leaves
// dst untouched.
func BindPatch(c *gin.Context, dst any) error {
	if c.Request.Body == nil {
		return nil
	}

	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}

	return binding.Validator.ValidateStruct(dst)
}
