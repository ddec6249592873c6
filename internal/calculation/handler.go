package calculation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/calculator-api/internal/auth"
	"github.com/redmonkez12/calculator-api/internal/httputil"
	"github.com/redmonkez12/calculator-api/internal/logging"
)

// Handler contains HTTP handlers for calculation endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// CreateCalculationRequest represents the calculation creation request body
type CreateCalculationRequest struct {
	Operation string  `json:"operation"`
	Operand1  float64 `json:"operand1"`
	Operand2  float64 `json:"operand2"`
}

// UpdateCalculationRequest represents a partial calculation update.
// Omitted fields keep their stored value; the result is always recomputed.
type UpdateCalculationRequest struct {
	Operation *string  `json:"operation,omitempty"`
	Operand1  *float64 `json:"operand1,omitempty"`
	Operand2  *float64 `json:"operand2,omitempty"`
}

// StatsResponse represents the calculation stats summary
type StatsResponse struct {
	UserID      uuid.UUID           `json:"user_id"`
	Email       string              `json:"email,omitempty"`
	Total       int64               `json:"total"`
	ByOperation map[Operation]int64 `json:"by_operation"`
}

// Create handles calculation creation
// @Summary      Create a calculation
// @Description  Create a calculation for the authenticated user. The result is computed on the server.
// @Tags         calculations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateCalculationRequest true "Calculation data"
// @Success      201 {object} Calculation
// @Failure      400 {object} httputil.ErrorResponse "Invalid operation or division by zero"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /calculations [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateCalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid calculation request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	calc, err := h.service.Create(r.Context(), userID, CreateInput{
		Operation: req.Operation,
		Operand1:  req.Operand1,
		Operand2:  req.Operand2,
	})
	if err != nil {
		h.respondCalculationError(w, logger, err, "failed to create calculation")
		return
	}

	logger.Info("calculation created", "calculation_id", calc.ID, "operation", calc.Operation)

	httputil.RespondJSON(w, calc, http.StatusCreated)
}

// List handles listing the user's calculations
// @Summary      List calculations
// @Description  List the authenticated user's calculations in insertion order
// @Tags         calculations
// @Produce      json
// @Security     BearerAuth
// @Param        skip  query int false "Number of records to skip" default(0)
// @Param        limit query int false "Maximum records to return" default(100)
// @Success      200 {array} Calculation
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /calculations [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	calcs, err := h.service.List(r.Context(), userID, skip, limit)
	if err != nil {
		logger.Error("failed to list calculations", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list calculations", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, calcs, http.StatusOK)
}

// Get handles fetching a single calculation
// @Summary      Get a calculation
// @Description  Get one of the authenticated user's calculations by ID
// @Tags         calculations
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Calculation ID"
// @Success      200 {object} Calculation
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Calculation not found"
// @Router       /calculations/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, calcID, ok := h.ownedCalculationID(w, r)
	if !ok {
		return
	}

	calc, err := h.service.Get(r.Context(), userID, calcID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "calculation not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get calculation", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get calculation", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, calc, http.StatusOK)
}

// Update handles a partial calculation update
// @Summary      Update a calculation
// @Description  Update one of the authenticated user's calculations. Omitted fields are kept; the result is recomputed.
// @Tags         calculations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Calculation ID"
// @Param        request body UpdateCalculationRequest true "Fields to update"
// @Success      200 {object} Calculation
// @Failure      400 {object} httputil.ErrorResponse "Invalid operation or division by zero"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Calculation not found"
// @Router       /calculations/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, calcID, ok := h.ownedCalculationID(w, r)
	if !ok {
		return
	}

	var req UpdateCalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid calculation update body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	calc, err := h.service.Update(r.Context(), userID, calcID, UpdateInput{
		Operation: req.Operation,
		Operand1:  req.Operand1,
		Operand2:  req.Operand2,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "calculation not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		h.respondCalculationError(w, logger, err, "failed to update calculation")
		return
	}

	logger.Info("calculation updated", "calculation_id", calc.ID)

	httputil.RespondJSON(w, calc, http.StatusOK)
}

// Delete handles calculation deletion
// @Summary      Delete a calculation
// @Description  Delete one of the authenticated user's calculations
// @Tags         calculations
// @Security     BearerAuth
// @Param        id path string true "Calculation ID"
// @Success      204 "No Content"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Calculation not found"
// @Router       /calculations/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, calcID, ok := h.ownedCalculationID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, calcID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "calculation not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete calculation", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete calculation", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("calculation deleted", "calculation_id", calcID)

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles the calculation stats summary
// @Summary      Calculation stats
// @Description  Summarize the authenticated user's calculation history
// @Tags         calculations
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} StatsResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /calculations/stats/summary [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	stats, err := h.service.GetStats(r.Context(), userID)
	if err != nil {
		logger.Error("failed to aggregate calculation stats", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get stats", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	email, _ := auth.GetUserEmailFromContext(r.Context())

	httputil.RespondJSON(w, StatsResponse{
		UserID:      userID,
		Email:       email,
		Total:       stats.Total,
		ByOperation: stats.ByOperation,
	}, http.StatusOK)
}

// ownedCalculationID pulls the authenticated user and the calculation ID from
// the request. A malformed ID is reported as not found so URL probing gives
// nothing away.
func (h *Handler) ownedCalculationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}

	calcID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "calculation not found", httputil.CodeNotFound, http.StatusNotFound)
		return uuid.Nil, uuid.Nil, false
	}

	return userID, calcID, true
}

func (h *Handler) respondCalculationError(w http.ResponseWriter, logger *logging.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidOperation):
		httputil.RespondErrorWithCode(w, "operation must be one of add, subtract, multiply, divide", httputil.CodeInvalidOperation, http.StatusBadRequest)
	case errors.Is(err, ErrDivisionByZero):
		httputil.RespondErrorWithCode(w, "division by zero is not allowed", httputil.CodeDivisionByZero, http.StatusBadRequest)
	default:
		logger.Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
