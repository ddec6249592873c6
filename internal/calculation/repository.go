package calculation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/calculator-api/internal/database"
)

// ErrNotFound is returned for calculations that do not exist or belong to a
// different user. The two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("calculation not found")

// Repository handles calculation persistence using bun
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new calculation and returns it with generated fields
func (r *Repository) Create(ctx context.Context, calc *Calculation) (*Calculation, error) {
	dbCalc := &database.Calculation{
		UserID:    calc.UserID,
		Operation: string(calc.Operation),
		Operand1:  calc.Operand1,
		Operand2:  calc.Operand2,
		Result:    calc.Result,
	}

	_, err := r.db.NewInsert().
		Model(dbCalc).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create calculation: %w", err)
	}

	return mapDBCalculationToModel(dbCalc), nil
}

// ListByOwner returns the user's calculations in insertion order
func (r *Repository) ListByOwner(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*Calculation, error) {
	var dbCalcs []*database.Calculation
	err := r.db.NewSelect().
		Model(&dbCalcs).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}

	calcs := make([]*Calculation, 0, len(dbCalcs))
	for _, dbCalc := range dbCalcs {
		calcs = append(calcs, mapDBCalculationToModel(dbCalc))
	}

	return calcs, nil
}

// GetByOwnerAndID returns a single calculation scoped to its owner
func (r *Repository) GetByOwnerAndID(ctx context.Context, userID, id uuid.UUID) (*Calculation, error) {
	dbCalc := new(database.Calculation)
	err := r.db.NewSelect().
		Model(dbCalc).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get calculation: %w", err)
	}

	return mapDBCalculationToModel(dbCalc), nil
}

// Update persists the mutable fields of an owned calculation
func (r *Repository) Update(ctx context.Context, calc *Calculation) (*Calculation, error) {
	dbCalc := new(database.Calculation)
	err := r.db.NewUpdate().
		Model(dbCalc).
		Set("operation = ?", string(calc.Operation)).
		Set("operand1 = ?", calc.Operand1).
		Set("operand2 = ?", calc.Operand2).
		Set("result = ?", calc.Result).
		Set("updated_at = NOW()").
		Where("id = ?", calc.ID).
		Where("user_id = ?", calc.UserID).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update calculation: %w", err)
	}

	return mapDBCalculationToModel(dbCalc), nil
}

// Delete removes an owned calculation
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Calculation)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete calculation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// StatsByOwner aggregates per-operation counts for a user
func (r *Repository) StatsByOwner(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	var rows []struct {
		Operation string `bun:"operation"`
		Count     int64  `bun:"count"`
	}

	err := r.db.NewSelect().
		Model((*database.Calculation)(nil)).
		Column("operation").
		ColumnExpr("COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("operation").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate calculation stats: %w", err)
	}

	stats := &Stats{ByOperation: make(map[Operation]int64)}
	for _, row := range rows {
		stats.ByOperation[Operation(row.Operation)] = row.Count
		stats.Total += row.Count
	}

	return stats, nil
}

// mapDBCalculationToModel converts database model to domain model
func mapDBCalculationToModel(dbCalc *database.Calculation) *Calculation {
	return &Calculation{
		ID:        dbCalc.ID,
		UserID:    dbCalc.UserID,
		Operation: Operation(dbCalc.Operation),
		Operand1:  dbCalc.Operand1,
		Operand2:  dbCalc.Operand2,
		Result:    dbCalc.Result,
		CreatedAt: dbCalc.CreatedAt,
		UpdatedAt: dbCalc.UpdatedAt,
	}
}
