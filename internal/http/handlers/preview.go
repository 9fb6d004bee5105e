package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/dlcut/internal/service"
)

// PreviewHandler controls the local preview file server.
type PreviewHandler struct {
	previews *service.PreviewService
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(previews *service.PreviewService) *PreviewHandler {
	return &PreviewHandler{previews: previews}
}

// StartPreviewInput is the input for starting a preview.
type StartPreviewInput struct {
	Body struct {
		Path string `json:"path" doc:"Local file to serve"`
	}
}

// PreviewOutput is the output for preview endpoints.
type PreviewOutput struct {
	Body service.Preview
}

// PreviewInput is the input for the preview status and stop endpoints.
type PreviewInput struct{}

// Register registers the preview routes with the API.
func (h *PreviewHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "startPreview",
		Method:      "POST",
		Path:        "/api/v1/preview",
		Summary:     "Start preview",
		Description: "Serves a local file over loopback HTTP with range support. Replaces any running preview.",
		Tags:        []string{"Preview"},
	}, h.Start)

	huma.Register(api, huma.Operation{
		OperationID: "getPreview",
		Method:      "GET",
		Path:        "/api/v1/preview",
		Summary:     "Current preview",
		Tags:        []string{"Preview"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "stopPreview",
		Method:      "DELETE",
		Path:        "/api/v1/preview",
		Summary:     "Stop preview",
		Tags:        []string{"Preview"},
	}, h.Stop)
}

// Start starts a preview server.
func (h *PreviewHandler) Start(ctx context.Context, input *StartPreviewInput) (*PreviewOutput, error) {
	p, err := h.previews.Start(input.Body.Path)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &PreviewOutput{Body: p}, nil
}

// Get returns the running preview.
func (h *PreviewHandler) Get(ctx context.Context, input *PreviewInput) (*PreviewOutput, error) {
	p, ok := h.previews.Current()
	if !ok {
		return nil, toHumaError(service.ErrNoPreview)
	}
	return &PreviewOutput{Body: p}, nil
}

// Stop stops the preview server.
func (h *PreviewHandler) Stop(ctx context.Context, input *PreviewInput) (*struct{}, error) {
	if err := h.previews.Stop(); err != nil {
		return nil, toHumaError(err)
	}
	return nil, nil
}
