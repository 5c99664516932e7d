package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/peqlink/internal/api/models"
)

func (s *Server) registerRegistryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-registry",
		Method:      http.MethodGet,
		Path:        "/api/registry",
		Summary:     "Device registry",
		Description: "The capability catalogue with overrides applied, and every model resolved to its capability",
		Tags:        []string{"registry"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.RegistryResponse, error) {
		catalog := s.registry.Catalog()
		return &models.RegistryResponse{
			Body: models.RegistryData{
				Vendors: catalog.Vendors,
				Entries: catalog.Entries(),
			},
		}, nil
	})
}
