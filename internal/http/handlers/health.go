package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Bindings reports which external clients came up at boot. The health
// endpoint exposes it so a misconfigured deployment is visible without log
// access.
type Bindings struct {
	Postgres  bool `json:"postgres"`
	Storage   bool `json:"storage"`
	Cache     bool `json:"cache"`
	Vectors   bool `json:"vectors"`
	Hansard   bool `json:"hansard"`
	YouTube   bool `json:"youtube"`
	OpenAI    bool `json:"openai"`
	WorkersAI bool `json:"workers_ai"`
}

type HealthHandler struct {
	bindings Bindings
}

func NewHealthHandler(bindings Bindings) *HealthHandler {
	return &HealthHandler{bindings: bindings}
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"bindings": h.bindings,
	})
}
