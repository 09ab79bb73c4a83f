package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/winstate/internal/app"
	"github.com/okian/winstate/internal/domain/model"
)

const (
	// IdempotencyKeyHeader carries the request id when the body has none.
	IdempotencyKeyHeader = "Idempotency-Key"

	maxBodyBytes = 1 << 20

	receivedMessage = "Win data received successfully"
)

// WinStateDependencies defines the interface for recording results.
type WinStateDependencies interface {
	RecordResult(ctx context.Context, sub model.Submission) (service.Receipt, error)
}

// WinStateHandler handles result submissions.
type WinStateHandler struct {
	deps WinStateDependencies
}

// NewWinStateHandler creates a new win state handler.
func NewWinStateHandler(deps WinStateDependencies) *WinStateHandler {
	return &WinStateHandler{deps: deps}
}

// winStateRequest mirrors the OpenAPI schema for POST /api/win_state.
type winStateRequest struct {
	Moves     *int   `json:"moves"`
	Time      string `json:"time"`
	Game      string `json:"game"`
	Name      string `json:"name"`
	RequestID string `json:"request_id"`
}

func (req winStateRequest) validate() error {
	switch {
	case req.Moves == nil:
		return errors.New("missing moves")
	case strings.TrimSpace(req.Game) == "":
		return errors.New("missing game")
	case strings.TrimSpace(req.Time) == "":
		return errors.New("missing time")
	}
	return nil
}

type winStateResponse struct {
	Message   string `json:"message"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// HandlePostWinState handles POST /api/win_state requests.
func (h *WinStateHandler) HandlePostWinState(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_win_state"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req winStateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	}

	rec, err := h.deps.RecordResult(r.Context(), model.Submission{
		Game:      req.Game,
		Moves:     *req.Moves,
		Time:      req.Time,
		Name:      req.Name,
		RequestID: requestID,
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, winStateResponse{Message: receivedMessage, Duplicate: rec.Duplicate})
}
