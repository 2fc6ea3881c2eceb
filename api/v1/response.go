package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/defect-tracker/services"
	"github.com/defect-tracker/utils"
	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"status": "success",
		"data":   data,
	})
}

// respondError maps service errors onto status codes. Unexpected failures only
// carry their detail outside release mode.
func respondError(c *gin.Context, message string, err error) {
	var verrs services.ValidationErrors
	var conflict *services.ConflictError

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Validation failed",
			"errors":  verrs,
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": notFoundMessage(err),
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"status":  "error",
			"message": conflict.Message,
		})
	case errors.Is(err, services.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{
			"status":  "error",
			"message": "The record was changed by someone else; reload and try again",
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"status":  "error",
			"message": "You do not have permission to perform this action",
		})
	default:
		body := gin.H{
			"status":  "error",
			"message": message,
		}
		if gin.Mode() != gin.ReleaseMode {
			body["error"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

// notFoundMessage turns "defect: not found" into "Defect not found"
func notFoundMessage(err error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+services.ErrNotFound.Error())
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if msg == "" || msg == services.ErrNotFound.Error() {
		return "Not found"
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + " not found"
}

// respondBindError reports a request body that failed to bind or validate
func respondBindError(c *gin.Context, err error) {
	if fields, ok := utils.DescribeValidation(err); ok {
		verrs := make(services.ValidationErrors, 0, len(fields))
		for _, f := range fields {
			verrs = append(verrs, services.FieldError{Field: f.Field, Message: f.Message})
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Validation failed",
			"errors":  verrs,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"status":  "error",
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// paramID parses a positive numeric path parameter, answering 400 when it is not one
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}
