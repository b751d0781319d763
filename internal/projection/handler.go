package projection

import (
	"errors"
	"net/http"

	"github.com/aevon-lab/knocklog/internal/core/aggregation"
	httperr "github.com/aevon-lab/knocklog/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/counts/today", s.HandleToday)
	r.GET("/v1/graph", s.HandleGraph)
}

// HandleToday handles GET /v1/counts/today
func (s *Service) HandleToday(c *gin.Context) {
	c.JSON(http.StatusOK, s.Today())
}

// HandleGraph handles GET /v1/graph
// Query parameters: scope (day, week, month)
func (s *Service) HandleGraph(c *gin.Context) {
	var query GraphQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidScopeError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Graph(query.Scope)
	if err != nil {
		if errors.Is(err, aggregation.ErrInvalidScope) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidScopeError,
				Message:   "Invalid graph scope",
				Details:   err.Error(),
			})
			return
		}

		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to build graph",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
