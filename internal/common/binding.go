// File: internal/common/binding.go
package common

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// BindStrictJSON decodes the request body into obj, rejecting unknown fields,
// then runs the standard gin binding validators against the result. Records
// are explicit structs; arbitrary extra fields are not passed through.
func BindStrictJSON(c *gin.Context, obj interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}
