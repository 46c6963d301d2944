package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamID parses a positive integer path parameter.
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		return 0, InvalidInput("Invalid " + name)
	}
	return uint(id), nil
}

// BindJSON decodes the request body, reporting malformed input as InvalidInput.
func BindJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return Wrap(KindInvalidInput, "Invalid JSON body", err)
	}
	return nil
}
