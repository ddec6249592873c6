package calculation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/redmonkez12/calculator-api/internal/logging"
)

// CalculationRepository defines the persistence operations the service needs
type CalculationRepository interface {
	Create(ctx context.Context, calc *Calculation) (*Calculation, error)
	ListByOwner(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*Calculation, error)
	GetByOwnerAndID(ctx context.Context, userID, id uuid.UUID) (*Calculation, error)
	Update(ctx context.Context, calc *Calculation) (*Calculation, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	StatsByOwner(ctx context.Context, userID uuid.UUID) (*Stats, error)
}

// Service implements the calculation business logic
type Service struct {
	repo   CalculationRepository
	logger *logging.Logger
}

func NewService(repo CalculationRepository, logger *logging.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateInput carries the fields needed to create a calculation
type CreateInput struct {
	Operation string
	Operand1  float64
	Operand2  float64
}

// UpdateInput carries a partial update. Nil fields keep their stored value.
type UpdateInput struct {
	Operation *string
	Operand1  *float64
	Operand2  *float64
}

// Create validates the input, computes the result eagerly and persists the
// calculation for the owner. A divide-by-zero never reaches the database.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*Calculation, error) {
	op, err := ParseOperation(input.Operation)
	if err != nil {
		return nil, err
	}

	result, err := Compute(op, input.Operand1, input.Operand2)
	if err != nil {
		return nil, err
	}

	calc, err := s.repo.Create(ctx, &Calculation{
		UserID:    ownerID,
		Operation: op,
		Operand1:  input.Operand1,
		Operand2:  input.Operand2,
		Result:    result,
	})
	if err != nil {
		return nil, fmt.Errorf("create calculation: %w", err)
	}

	return calc, nil
}

// List returns the owner's calculations in insertion order
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, skip, limit int) ([]*Calculation, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	return s.repo.ListByOwner(ctx, ownerID, skip, limit)
}

// Get returns a single calculation scoped to its owner
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Calculation, error) {
	return s.repo.GetByOwnerAndID(ctx, ownerID, id)
}

// Update applies the supplied fields to an owned calculation and recomputes
// the result unconditionally before persisting.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateInput) (*Calculation, error) {
	calc, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if input.Operation != nil {
		op, err := ParseOperation(*input.Operation)
		if err != nil {
			return nil, err
		}
		calc.Operation = op
	}
	if input.Operand1 != nil {
		calc.Operand1 = *input.Operand1
	}
	if input.Operand2 != nil {
		calc.Operand2 = *input.Operand2
	}

	result, err := Compute(calc.Operation, calc.Operand1, calc.Operand2)
	if err != nil {
		return nil, err
	}
	calc.Result = result

	updated, err := s.repo.Update(ctx, calc)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes an owned calculation
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// GetStats aggregates the owner's calculation history
func (s *Service) GetStats(ctx context.Context, ownerID uuid.UUID) (*Stats, error) {
	return s.repo.StatsByOwner(ctx, ownerID)
}
