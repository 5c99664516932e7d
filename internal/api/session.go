package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/peqlink/internal/api/models"
	"github.com/smazurov/peqlink/internal/connector"
	"github.com/smazurov/peqlink/internal/peq"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "connect-device",
		Method:      http.MethodPost,
		Path:        "/api/session",
		Summary:     "Connect",
		Description: "Open a session to a device. Only one session can be open at a time.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      append(deviceErrors, http.StatusPreconditionFailed),
	}, func(ctx context.Context, input *models.ConnectRequest) (*models.SessionResponse, error) {
		sess, err := s.orchestrator.Connect(ctx, input.Body)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.SessionResponse{Body: s.describeSession(ctx, sess)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Current session",
		Description: "Describe the connected device, its capability and active slot",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 409},
	}, func(ctx context.Context, input *struct{}) (*models.SessionResponse, error) {
		sess, err := s.orchestrator.Session()
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.SessionResponse{Body: s.describeSession(ctx, sess)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "disconnect-device",
		Method:      http.MethodDelete,
		Path:        "/api/session",
		Summary:     "Disconnect",
		Description: "Close the open session. Succeeds when nothing is connected.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.DisconnectResponse, error) {
		_, err := s.orchestrator.Session()
		s.orchestrator.Disconnect()
		resp := &models.DisconnectResponse{}
		resp.Body.Disconnected = err == nil
		resp.Body.Message = "Disconnected"
		if err != nil {
			resp.Body.Message = "No device was connected"
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-slots",
		Method:      http.MethodGet,
		Path:        "/api/session/slots",
		Summary:     "Slots",
		Description: "List the device's EQ slots and the active one",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      deviceErrors,
	}, func(ctx context.Context, input *struct{}) (*models.SlotsResponse, error) {
		info, err := s.orchestrator.Slots(ctx)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.SlotsResponse{Body: info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "select-slot",
		Method:      http.MethodPut,
		Path:        "/api/session/slot",
		Summary:     "Select slot",
		Description: "Activate a slot. Slot -1 turns PEQ off.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      deviceErrors,
	}, func(ctx context.Context, input *models.SelectSlotRequest) (*models.SelectSlotResponse, error) {
		if err := s.orchestrator.SelectSlot(ctx, input.Body.SlotID); err != nil {
			return nil, toHTTPError(err)
		}
		return &models.SelectSlotResponse{Body: models.SelectSlotResult{
			SlotID:  input.Body.SlotID,
			Enabled: input.Body.SlotID != peq.DisabledSlotID,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "pull-filters",
		Method:      http.MethodPost,
		Path:        "/api/session/pull",
		Summary:     "Pull",
		Description: "Read the filters stored in a slot into the filter list",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      deviceErrors,
	}, func(ctx context.Context, input *models.PullRequest) (*models.PullResponse, error) {
		out, err := s.orchestrator.Pull(ctx, input.Body.SlotID)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.PullResponse{Body: out}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "push-filters",
		Method:      http.MethodPost,
		Path:        "/api/session/push",
		Summary:     "Push",
		Description: "Validate the filter list against the device and write it to a slot",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      deviceErrors,
	}, func(ctx context.Context, input *models.PushRequest) (*models.PushResponse, error) {
		out, err := s.orchestrator.Push(ctx, input.Body.SlotID, input.Body.Preamp)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.PushResponse{Body: out}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-device",
		Method:      http.MethodPost,
		Path:        "/api/session/reset",
		Summary:     "Factory reset",
		Description: "Restore the device's factory EQ where the driver supports it",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      deviceErrors,
	}, func(ctx context.Context, input *struct{}) (*models.DisconnectResponse, error) {
		if err := s.orchestrator.Reset(ctx); err != nil {
			return nil, toHTTPError(err)
		}
		resp := &models.DisconnectResponse{}
		resp.Body.Message = "Device EQ reset"
		return resp, nil
	})
}

// describeSession reads the live parts of a session. Read failures are
// reported in the body rather than failing the request.
func (s *Server) describeSession(ctx context.Context, sess *connector.DeviceSession) models.SessionData {
	c := sess.Capability
	data := models.SessionData{
		ID:         sess.ID,
		Device:     sess.Device,
		Vendor:     sess.Vendor,
		Capability: c,
		Known:      sess.Known,
		Handler:    sess.Handler(),
		OpenedAt:   sess.OpenedAt.Format(time.RFC3339),
		Stats:      sess.Stats(),
	}
	if c.Experimental {
		data.Warnings = append(data.Warnings, peq.Warning{
			Code:    peq.WarnExperimental,
			Message: fmt.Sprintf("Support for %s is experimental.", c.Model),
		})
	}
	if !sess.Known {
		data.Warnings = append(data.Warnings, peq.Warning{
			Code:    peq.WarnUnknownDevice,
			Message: "Device is not in the registry, vendor defaults are in use.",
		})
	}

	if slot, err := sess.CurrentSlot(ctx); err != nil {
		data.SlotError = err.Error()
	} else {
		data.CurrentSlot = &slot
	}
	if v, ok, err := sess.Version(ctx); ok && err == nil {
		data.Firmware = v
	} else if err != nil {
		s.logger.Debug("Firmware version unavailable", "session", sess.ID, "error", err)
	}
	return data
}
