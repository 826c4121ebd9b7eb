package models

import "testing"

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    TransactionStatus
		to      TransactionStatus
		allowed bool
	}{
		{name: "pending to processing", from: TransactionStatusPending, to: TransactionStatusProcessing, allowed: true},
		{name: "pending to completed", from: TransactionStatusPending, to: TransactionStatusCompleted, allowed: true},
		{name: "pending to failed", from: TransactionStatusPending, to: TransactionStatusFailed, allowed: true},
		{name: "pending to cancelled", from: TransactionStatusPending, to: TransactionStatusCancelled, allowed: true},
		{name: "pending to refunded", from: TransactionStatusPending, to: TransactionStatusRefunded, allowed: false},
		{name: "processing to completed", from: TransactionStatusProcessing, to: TransactionStatusCompleted, allowed: true},
		{name: "processing to pending", from: TransactionStatusProcessing, to: TransactionStatusPending, allowed: false},
		{name: "completed to refunded", from: TransactionStatusCompleted, to: TransactionStatusRefunded, allowed: true},
		{name: "completed to failed", from: TransactionStatusCompleted, to: TransactionStatusFailed, allowed: false},
		{name: "completed to pending", from: TransactionStatusCompleted, to: TransactionStatusPending, allowed: false},
		{name: "failed is terminal", from: TransactionStatusFailed, to: TransactionStatusCompleted, allowed: false},
		{name: "cancelled is terminal", from: TransactionStatusCancelled, to: TransactionStatusPending, allowed: false},
		{name: "refunded is terminal", from: TransactionStatusRefunded, to: TransactionStatusCompleted, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := PaymentTransaction{Status: tt.from}
			if got := txn.CanTransitionTo(tt.to); got != tt.allowed {
				t.Errorf("CanTransitionTo(%s -> %s) = %v; want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []TransactionStatus{
		TransactionStatusCompleted,
		TransactionStatusFailed,
		TransactionStatusCancelled,
		TransactionStatusRefunded,
	}
	for _, status := range terminal {
		txn := PaymentTransaction{Status: status}
		if !txn.IsTerminal() {
			t.Errorf("expected %s to be terminal", status)
		}
	}

	for _, status := range []TransactionStatus{TransactionStatusPending, TransactionStatusProcessing} {
		txn := PaymentTransaction{Status: status}
		if txn.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", status)
		}
	}
}
