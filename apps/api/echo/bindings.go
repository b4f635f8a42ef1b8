package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/plagcheck/core"
)

const orderingParam = "ordering"

// orderingFrom reads the "ordering" query param: comma separated fields, "-" prefix for descending
// (e.g. "-similarityScore,createdAt"). Unknown fields are rejected by the store.
func orderingFrom(ctx echo.Context) []core.DBOrdering {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil
	}

	var ordering []core.DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		ordering = append(ordering, core.DBOrdering{Field: field, Ascending: !desc})
	}
	return ordering
}
