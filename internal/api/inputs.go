package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/uvcnode/internal/api/models"
	"github.com/smazurov/uvcnode/internal/input"
)

func (s *Server) registerInputRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-inputs",
		Method:      http.MethodGet,
		Path:        "/api/inputs",
		Summary:     "List Inputs",
		Description: "Status of every configured capture input",
		Tags:        []string{"inputs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.InputListResponse, error) {
		statuses := []input.Status{}
		if s.options.Inputs != nil {
			for _, src := range s.options.Inputs.List() {
				statuses = append(statuses, src.Status())
			}
		}
		return &models.InputListResponse{
			Body: models.InputListData{Inputs: statuses, Count: len(statuses)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-input",
		Method:      http.MethodGet,
		Path:        "/api/inputs/{id}",
		Summary:     "Get Input",
		Description: "Streaming state, consumers, format and tunables of one input",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, req *models.InputPath) (*models.InputStatusResponse, error) {
		src, err := s.source(req.ID)
		if err != nil {
			return nil, err
		}
		return &models.InputStatusResponse{Body: src.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-input-controls",
		Method:      http.MethodGet,
		Path:        "/api/inputs/{id}/controls",
		Summary:     "List Controls",
		Description: "Quality, resolution, device and generic controls with current values",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, req *models.InputPath) (*models.ControlsResponse, error) {
		src, err := s.source(req.ID)
		if err != nil {
			return nil, err
		}
		return &models.ControlsResponse{
			Body: models.ControlsData{InputID: req.ID, Controls: src.Controls()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-input-resolutions",
		Method:      http.MethodGet,
		Path:        "/api/inputs/{id}/resolutions",
		Summary:     "List Resolutions",
		Description: "Resolutions selectable through the resolution control group",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, req *models.InputPath) (*models.ResolutionsResponse, error) {
		src, err := s.source(req.ID)
		if err != nil {
			return nil, err
		}
		list, current := src.Resolutions()
		return &models.ResolutionsResponse{
			Body: models.ResolutionsData{InputID: req.ID, Resolutions: list, Current: current},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "input-command",
		Method:      http.MethodPost,
		Path:        "/api/inputs/{id}/command",
		Summary:     "Send Command",
		Description: "Change a control. Resolution values are list indices, quality is 0-100.",
		Tags:        []string{"inputs"},
		Errors:      []int{400, 401, 403, 404, 409, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, req *models.CommandRequest) (*models.CommandResponse, error) {
		if s.options.CommandsDisabled {
			return nil, huma.Error403Forbidden("commands are disabled")
		}
		src, err := s.source(req.ID)
		if err != nil {
			return nil, err
		}
		group, err := input.ParseControlGroup(req.Body.Group)
		if err != nil {
			return nil, inputError("invalid control group", err)
		}

		id := req.Body.ControlID
		switch group {
		case input.GroupResolution:
			id = input.ResolutionControlID
		case input.GroupQuality:
			id = input.QualityControlID
		}

		if err := src.Command(ctx, group, id, req.Body.Value); err != nil {
			return nil, inputError("command failed", err)
		}
		return &models.CommandResponse{
			Body: models.CommandResult{
				InputID:   req.ID,
				Group:     string(group),
				ControlID: id,
				Value:     req.Body.Value,
				OK:        true,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "pause-input",
		Method:      http.MethodPost,
		Path:        "/api/inputs/{id}/pause",
		Summary:     "Pause Input",
		Description: "Stop producing frames; the device stays configured",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, req *models.InputPath) (*models.StateResponse, error) {
		return s.changeState(req.ID, (*input.Source).Pause)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "resume-input",
		Method:      http.MethodPost,
		Path:        "/api/inputs/{id}/resume",
		Summary:     "Resume Input",
		Description: "Resume frame production after a pause",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, req *models.InputPath) (*models.StateResponse, error) {
		return s.changeState(req.ID, (*input.Source).Resume)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "input-snapshot",
		Method:      http.MethodGet,
		Path:        "/api/inputs/{id}/snapshot",
		Summary:     "Snapshot",
		Description: "One JPEG frame. Counts as a consumer while waiting, so an idle input is woken.",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404, 409, 504},
		Security:    withAuth(),
	}, func(ctx context.Context, req *models.SnapshotRequest) (*models.SnapshotResponse, error) {
		src, err := s.source(req.ID)
		if err != nil {
			return nil, err
		}
		timeout := s.options.SnapshotTimeout
		if req.TimeoutMs > 0 {
			timeout = time.Duration(req.TimeoutMs) * time.Millisecond
		}
		if timeout <= 0 {
			timeout = defaultSnapshotTimeout
		}

		frame, err := snapshot(ctx, src, timeout)
		if err != nil {
			return nil, inputError("no frame available", err)
		}
		return &models.SnapshotResponse{
			ContentType:  "image/jpeg",
			CacheControl: "no-store",
			Generation:   strconv.FormatUint(frame.Generation, 10),
			Timestamp:    frame.Timestamp.UTC().Format(time.RFC3339Nano),
			Body:         frame.Data,
		}, nil
	})
}

// snapshot returns the latest frame if the input is producing, otherwise
// it registers as a consumer and waits for the next one.
func snapshot(ctx context.Context, src *input.Source, timeout time.Duration) (input.Frame, error) {
	state := src.State()

	sub := src.Subscribe()
	defer sub.Close()

	if state == input.StateActive || state == input.StatePaused {
		if frame, err := src.LatestFrame(); err == nil {
			return frame, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return src.NextFrame(ctx, src.Generation())
}

func (s *Server) changeState(id int, fn func(*input.Source) error) (*models.StateResponse, error) {
	src, err := s.source(id)
	if err != nil {
		return nil, err
	}
	if err := fn(src); err != nil {
		return nil, inputError("state change failed", err)
	}
	return &models.StateResponse{
		Body: models.StateData{InputID: id, State: src.State().String()},
	}, nil
}

func (s *Server) source(id int) (*input.Source, error) {
	if s.options.Inputs != nil {
		if src, ok := s.options.Inputs.Get(id); ok {
			return src, nil
		}
	}
	return nil, huma.Error404NotFound(fmt.Sprintf("input %d not found", id))
}
