package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	storeErr := NewStoreError("customers.insert", errors.New("connection reset"))

	tests := []struct {
		name           string
		err            error
		wantNotFound   bool
		wantValidation bool
		wantStore      bool
		wantConflict   bool
	}{
		{name: "customer not found", err: ErrCustomerNotFound, wantNotFound: true},
		{name: "wrapped order not found", err: fmt.Errorf("get: %w", ErrOrderNotFound), wantNotFound: true},
		{name: "validation error", err: &ValidationError{Entity: "customer", Fields: []string{"FirstName"}}, wantValidation: true},
		{name: "empty patch", err: ErrEmptyPatch, wantValidation: true},
		{name: "invalid id", err: ErrInvalidID, wantValidation: true},
		{name: "payment invalid", err: ErrPaymentInvalid, wantValidation: true},
		{name: "store failure", err: storeErr, wantStore: true},
		{name: "joined store failure", err: errors.Join(storeErr, errors.New("context")), wantStore: true},
		{name: "balance changed", err: fmt.Errorf("pay: %w", ErrBalanceChanged), wantConflict: true},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.wantNotFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.wantNotFound)
			}
			if got := IsValidation(tt.err); got != tt.wantValidation {
				t.Errorf("IsValidation() = %v, want %v", got, tt.wantValidation)
			}
			if got := IsStoreFailure(tt.err); got != tt.wantStore {
				t.Errorf("IsStoreFailure() = %v, want %v", got, tt.wantStore)
			}
			if got := IsConflict(tt.err); got != tt.wantConflict {
				t.Errorf("IsConflict() = %v, want %v", got, tt.wantConflict)
			}
		})
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := NewStoreError("orders.find", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected store error to unwrap to cause")
	}
	if err.Error() != "orders.find: timeout" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if NewStoreError("noop", nil) != nil {
		t.Fatalf("nil cause must stay nil")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Entity: "order", Fields: []string{"CustomerID", "SubOrders"}}
	want := "order: validation failed: missing CustomerID, SubOrders"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}
