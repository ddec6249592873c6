package calculation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidOperation = errors.New("invalid operation")
	ErrDivisionByZero   = errors.New("division by zero is not allowed")
)

// Operation is an arithmetic operation supported by the API
type Operation string

const (
	OperationAdd      Operation = "add"
	OperationSubtract Operation = "subtract"
	OperationMultiply Operation = "multiply"
	OperationDivide   Operation = "divide"
)

// ParseOperation validates and normalizes an operation string
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	switch op {
	case OperationAdd, OperationSubtract, OperationMultiply, OperationDivide:
		return op, nil
	}
	return "", ErrInvalidOperation
}

// Compute evaluates the operation over the two operands. The result is
// computed eagerly so a stored calculation always carries its value.
func Compute(op Operation, operand1, operand2 float64) (float64, error) {
	switch op {
	case OperationAdd:
		return operand1 + operand2, nil
	case OperationSubtract:
		return operand1 - operand2, nil
	case OperationMultiply:
		return operand1 * operand2, nil
	case OperationDivide:
		if operand2 == 0 {
			return 0, ErrDivisionByZero
		}
		return operand1 / operand2, nil
	}
	return 0, ErrInvalidOperation
}

// Calculation represents a stored calculation owned by a user
type Calculation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Operation Operation `json:"operation"`
	Operand1  float64   `json:"operand1"`
	Operand2  float64   `json:"operand2"`
	Result    float64   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes a user's calculation history
type Stats struct {
	Total       int64               `json:"total"`
	ByOperation map[Operation]int64 `json:"by_operation"`
}
