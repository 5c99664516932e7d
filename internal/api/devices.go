package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/peqlink/internal/api/models"
	"github.com/smazurov/peqlink/internal/connector"
)

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List devices",
		Description: "Enumerate attached devices of one transport with the capability the registry resolves for each",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 500},
	}, func(ctx context.Context, input *models.DevicesRequest) (*models.DevicesResponse, error) {
		found, err := s.orchestrator.Candidates(ctx, input.Transport)
		if err != nil {
			return nil, toHTTPError(err)
		}
		if found == nil {
			found = []connector.Candidate{}
		}
		return &models.DevicesResponse{
			Body: models.DevicesData{
				Devices: found,
				Count:   len(found),
			},
		}, nil
	})
}
