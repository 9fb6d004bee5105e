package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/dlcut/internal/deps"
	"github.com/jmylchreest/dlcut/internal/progress"
)

// DepsHandler reports and installs the external tools.
type DepsHandler struct {
	checker   *deps.Checker
	installer *deps.Installer
	hub       *progress.Hub
	baseCtx   context.Context
}

// NewDepsHandler creates a new deps handler. Installs run under baseCtx so
// they outlive the request that started them.
func NewDepsHandler(baseCtx context.Context, checker *deps.Checker, installer *deps.Installer, hub *progress.Hub) *DepsHandler {
	return &DepsHandler{
		checker:   checker,
		installer: installer,
		hub:       hub,
		baseCtx:   baseCtx,
	}
}

// DepsStatusInput is the input for the deps status endpoint.
type DepsStatusInput struct{}

// DepsStatusOutput is the output for the deps status endpoint.
type DepsStatusOutput struct {
	Body deps.Status
}

// InstallDepsInput is the input for the install endpoint.
type InstallDepsInput struct{}

// InstallDepsOutput is the output for the install endpoint.
type InstallDepsOutput struct {
	Body struct {
		Status  string `json:"status" example:"started"`
		Message string `json:"message"`
	}
}

// Register registers the deps routes with the API.
func (h *DepsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getDependencies",
		Method:      "GET",
		Path:        "/api/v1/deps",
		Summary:     "Dependency status",
		Description: "Reports whether yt-dlp and ffmpeg are available and their versions",
		Tags:        []string{"Dependencies"},
	}, h.GetStatus)

	huma.Register(api, huma.Operation{
		OperationID:   "installDependencies",
		Method:        "POST",
		Path:          "/api/v1/deps/install",
		Summary:       "Install dependencies",
		Description:   "Downloads missing tools in the background. Progress is published as install events.",
		Tags:          []string{"Dependencies"},
		DefaultStatus: http.StatusAccepted,
	}, h.Install)
}

// GetStatus returns the dependency status.
func (h *DepsHandler) GetStatus(ctx context.Context, input *DepsStatusInput) (*DepsStatusOutput, error) {
	return &DepsStatusOutput{Body: h.checker.Status(ctx)}, nil
}

// Install starts a background install.
func (h *DepsHandler) Install(ctx context.Context, input *InstallDepsInput) (*InstallDepsOutput, error) {
	var sink progress.Sink = progress.Discard
	if h.hub != nil {
		sink = h.hub.InstallSink()
	}
	if err := h.installer.InstallAsync(h.baseCtx, sink); err != nil {
		return nil, toHumaError(err)
	}

	out := &InstallDepsOutput{}
	out.Body.Status = "started"
	out.Body.Message = "Installing dependencies"
	return out, nil
}
