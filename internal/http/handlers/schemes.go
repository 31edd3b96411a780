package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/pattadocumentflow/internal/http/response"
	"github.com/Lllllllleong/pattadocumentflow/internal/schemes"
)

type schemesResponse struct {
	Claimant        schemes.Summary `json:"claimant"`
	EligibleSchemes []string        `json:"eligible_schemes"`
}

type SchemesHandler struct{}

func NewSchemesHandler() *SchemesHandler { return &SchemesHandler{} }

// GET /eligible-schemes
func (h *SchemesHandler) DefaultClaimant(c *gin.Context) {
	respond(c, schemes.DefaultClaimant())
}

// POST /eligible-schemes
func (h *SchemesHandler) Evaluate(c *gin.Context) {
	var claimant schemes.Claimant
	if err := c.ShouldBindJSON(&claimant); err != nil {
		response.RespondError(c, http.StatusBadRequest, err)
		return
	}
	respond(c, claimant)
}

func respond(c *gin.Context, claimant schemes.Claimant) {
	response.RespondOK(c, schemesResponse{
		Claimant:        claimant.Summary(),
		EligibleSchemes: schemes.Recommend(claimant),
	})
}
