package calculation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/calculator-api/internal/logging"
)

type fakeRepo struct {
	mu    sync.Mutex
	calcs []*Calculation
}

func (r *fakeRepo) Create(ctx context.Context, calc *Calculation) (*Calculation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	calc.ID = uuid.New()
	calc.CreatedAt = time.Now()
	calc.UpdatedAt = calc.CreatedAt
	r.calcs = append(r.calcs, calc)
	return calc, nil
}

func (r *fakeRepo) ListByOwner(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*Calculation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var owned []*Calculation
	for _, calc := range r.calcs {
		if calc.UserID == userID {
			owned = append(owned, calc)
		}
	}

	if offset >= len(owned) {
		return nil, nil
	}
	owned = owned[offset:]
	if limit < len(owned) {
		owned = owned[:limit]
	}
	return owned, nil
}

func (r *fakeRepo) GetByOwnerAndID(ctx context.Context, userID, id uuid.UUID) (*Calculation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, calc := range r.calcs {
		if calc.ID == id && calc.UserID == userID {
			copied := *calc
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) Update(ctx context.Context, calc *Calculation) (*Calculation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range r.calcs {
		if stored.ID == calc.ID && stored.UserID == calc.UserID {
			stored.Operation = calc.Operation
			stored.Operand1 = calc.Operand1
			stored.Operand2 = calc.Operand2
			stored.Result = calc.Result
			stored.UpdatedAt = time.Now()
			copied := *stored
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, calc := range r.calcs {
		if calc.ID == id && calc.UserID == userID {
			r.calcs = append(r.calcs[:i], r.calcs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *fakeRepo) StatsByOwner(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &Stats{ByOperation: make(map[Operation]int64)}
	for _, calc := range r.calcs {
		if calc.UserID == userID {
			stats.ByOperation[calc.Operation]++
			stats.Total++
		}
	}
	return stats, nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := &fakeRepo{}
	return NewService(repo, logging.NewLogger(true)), repo
}

func TestCompute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		op      Operation
		a, b    float64
		want    float64
		wantErr error
	}{
		{OperationAdd, 2, 3, 5, nil},
		{OperationSubtract, 2, 3, -1, nil},
		{OperationMultiply, 2, 3, 6, nil},
		{OperationDivide, 6, 3, 2, nil},
		{OperationDivide, 1, 0, 0, ErrDivisionByZero},
	}

	for _, tc := range cases {
		got, err := Compute(tc.op, tc.a, tc.b)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("Compute(%s, %v, %v) error = %v, want %v", tc.op, tc.a, tc.b, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("Compute(%s, %v, %v) = %v, want %v", tc.op, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCreateComputesResult(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	owner := uuid.New()

	calc, err := svc.Create(context.Background(), owner, CreateInput{
		Operation: "multiply",
		Operand1:  6,
		Operand2:  7,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if calc.Result != 42 {
		t.Errorf("Result = %v, want 42", calc.Result)
	}
	if calc.UserID != owner {
		t.Errorf("UserID = %v, want %v", calc.UserID, owner)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService()
	owner := uuid.New()
	ctx := context.Background()

	if _, err := svc.Create(ctx, owner, CreateInput{Operation: "modulo", Operand1: 1, Operand2: 2}); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("invalid operation error = %v, want ErrInvalidOperation", err)
	}
	if _, err := svc.Create(ctx, owner, CreateInput{Operation: "divide", Operand1: 1, Operand2: 0}); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("divide by zero error = %v, want ErrDivisionByZero", err)
	}

	// Nothing reached the repository
	if len(repo.calcs) != 0 {
		t.Errorf("repository has %d calculations, want 0", len(repo.calcs))
	}
}

func TestGetIsOwnerScoped(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	owner := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()

	calc, err := svc.Create(ctx, owner, CreateInput{Operation: "add", Operand1: 1, Operand2: 2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, owner, calc.ID); err != nil {
		t.Errorf("owner Get: %v", err)
	}

	// A foreign calculation is indistinguishable from a missing one
	if _, err := svc.Get(ctx, stranger, calc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("stranger Get error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, owner, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing Get error = %v, want ErrNotFound", err)
	}
}

func TestUpdateRecomputesResult(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	owner := uuid.New()
	ctx := context.Background()

	calc, err := svc.Create(ctx, owner, CreateInput{Operation: "add", Operand1: 2, Operand2: 3})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Changing a single operand recomputes with the kept fields
	newOperand := 10.0
	updated, err := svc.Update(ctx, owner, calc.ID, UpdateInput{Operand1: &newOperand})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Result != 13 {
		t.Errorf("Result = %v, want 13", updated.Result)
	}
	if updated.Operation != OperationAdd {
		t.Errorf("Operation = %q, want add", updated.Operation)
	}

	// Changing only the operation recomputes too
	op := "multiply"
	updated, err = svc.Update(ctx, owner, calc.ID, UpdateInput{Operation: &op})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Result != 30 {
		t.Errorf("Result = %v, want 30", updated.Result)
	}
}

func TestUpdateRejectsDivisionByZero(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	owner := uuid.New()
	ctx := context.Background()

	calc, err := svc.Create(ctx, owner, CreateInput{Operation: "divide", Operand1: 6, Operand2: 3})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	zero := 0.0
	if _, err := svc.Update(ctx, owner, calc.ID, UpdateInput{Operand2: &zero}); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("Update error = %v, want ErrDivisionByZero", err)
	}

	// The stored calculation is untouched
	stored, err := svc.Get(ctx, owner, calc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Operand2 != 3 || stored.Result != 2 {
		t.Errorf("stored calculation changed: operand2=%v result=%v", stored.Operand2, stored.Result)
	}
}

func TestUpdateIsOwnerScoped(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	owner := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()

	calc, err := svc.Create(ctx, owner, CreateInput{Operation: "add", Operand1: 1, Operand2: 2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	op := "multiply"
	if _, err := svc.Update(ctx, stranger, calc.ID, UpdateInput{Operation: &op}); !errors.Is(err, ErrNotFound) {
		t.Errorf("stranger Update error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	owner := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()

	calc, err := svc.Create(ctx, owner, CreateInput{Operation: "add", Operand1: 1, Operand2: 2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, stranger, calc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("stranger Delete error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, owner, calc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, owner, calc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestListPagination(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	owner := uuid.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, owner, CreateInput{Operation: "add", Operand1: float64(i), Operand2: 1}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	page, err := svc.List(ctx, owner, 2, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}
	if page[0].Operand1 != 2 {
		t.Errorf("page starts at operand1=%v, want 2", page[0].Operand1)
	}

	// Negative skip and oversized limit fall back to defaults
	all, err := svc.List(ctx, owner, -1, 1000)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("len(all) = %d, want 5", len(all))
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	owner := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()

	inputs := []CreateInput{
		{Operation: "add", Operand1: 1, Operand2: 2},
		{Operation: "add", Operand1: 3, Operand2: 4},
		{Operation: "divide", Operand1: 6, Operand2: 3},
	}
	for _, input := range inputs {
		if _, err := svc.Create(ctx, owner, input); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := svc.Create(ctx, stranger, CreateInput{Operation: "multiply", Operand1: 2, Operand2: 2}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stats, err := svc.GetStats(ctx, owner)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByOperation[OperationAdd] != 2 {
		t.Errorf("add count = %d, want 2", stats.ByOperation[OperationAdd])
	}
	if stats.ByOperation[OperationDivide] != 1 {
		t.Errorf("divide count = %d, want 1", stats.ByOperation[OperationDivide])
	}
	if _, ok := stats.ByOperation[OperationMultiply]; ok {
		t.Error("stats include another user's operations")
	}
}
