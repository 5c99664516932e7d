package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/peqlink/internal/api/models"
)

func (s *Server) registerFilterRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-filters",
		Method:      http.MethodGet,
		Path:        "/api/filters",
		Summary:     "Filter list",
		Description: "The filter list being edited. Pulls replace it, pushes read it.",
		Tags:        []string{"filters"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.FiltersResponse, error) {
		return &models.FiltersResponse{Body: s.filters.ElemToFilters()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "replace-filters",
		Method:      http.MethodPut,
		Path:        "/api/filters",
		Summary:     "Replace filter list",
		Description: "Replace the edited filter list. Values are checked against the device only when pushing.",
		Tags:        []string{"filters"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(ctx context.Context, input *models.FiltersRequest) (*models.FiltersResponse, error) {
		if err := s.filters.Replace(input.Body); err != nil {
			return nil, toHTTPError(err)
		}
		return &models.FiltersResponse{Body: s.filters.ElemToFilters()}, nil
	})
}
