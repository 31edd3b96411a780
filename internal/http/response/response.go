// Package response writes the JSON envelopes shared by every handler.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

// Failure is the body of every failed request.
type Failure struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Results []models.DocumentRecord `json:"results"`
}

// RespondError writes a Failure with message taken from err.
func RespondError(c *gin.Context, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	RespondFailure(c, status, msg)
}

func RespondFailure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Failure{
		Success: false,
		Message: message,
		Results: []models.DocumentRecord{},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Attachment sends body as a download named filename.
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}
