package health

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/artifexhq/artifex/domain/repository"
)

// StatsHandler reports repository-level counts.
type StatsHandler struct {
	svc *repository.Service
}

func NewStatsHandler(svc *repository.Service) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// RepositoryStats summarizes the artifact population.
type RepositoryStats struct {
	TotalArtifacts int64            `json:"totalArtifacts"`
	ByModel        map[string]int64 `json:"byModel"`
	Timestamp      string           `json:"timestamp"`
}

// Stats counts artifacts overall and per model.
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	count := func(expression string) (int64, error) {
		q, err := h.svc.CreateQuery(expression, "", true)
		if err != nil {
			return 0, err
		}
		_, total, err := h.svc.Query(ctx, q, 0, 1, nil)
		return total, err
	}

	total, err := count("/artifex")
	if err != nil {
		return err
	}

	byModel := map[string]int64{}
	for _, model := range []string{"core", "xsd", "wsdl", "json"} {
		n, err := count("/artifex/" + model)
		if err != nil {
			return err
		}
		if n > 0 {
			byModel[model] = n
		}
	}

	return c.JSON(http.StatusOK, RepositoryStats{
		TotalArtifacts: total,
		ByModel:        byModel,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}
