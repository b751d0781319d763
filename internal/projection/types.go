package projection

import (
	"time"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/aevon-lab/knocklog/internal/core/aggregation"
	"github.com/shopspring/decimal"
)

// TodayResponse is the home-screen view: counts since local midnight.
type TodayResponse struct {
	Since  time.Time                       `json:"since"`
	Counts aggregation.Counts              `json:"counts"`
	Total  int                             `json:"total"`
	Shares map[v1.Category]decimal.Decimal `json:"shares"`
}

// GraphQueryRequest holds the graph query parameters.
type GraphQueryRequest struct {
	Scope string `form:"scope"` // default: "day"
}

// GraphResponse is the chart view for one scope.
type GraphResponse struct {
	Scope       aggregation.Scope                   `json:"scope"`
	WindowStart time.Time                           `json:"window_start"`
	Rows        []aggregation.BucketRow             `json:"rows"`
	Series      map[v1.Category][]aggregation.Point `json:"series"`
}
