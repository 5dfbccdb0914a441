package server

import (
	"coderace/internal/problem"
	"coderace/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles problem bank endpoints.
type ProblemController struct {
	problems problem.Source
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problems problem.Source) *ProblemController {
	return &ProblemController{problems: problems}
}

// List handles the problem bank listing. Only metadata is exposed; hidden
// tests never leave the server.
func (h *ProblemController) List(c *gin.Context) {
	metas, err := h.problems.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, metas)
}
