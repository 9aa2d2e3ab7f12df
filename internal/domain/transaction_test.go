package domain

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tx      Transaction
		wantErr bool
	}{
		{"valid debit", Transaction{UserID: "u1", Amount: 12.34, Type: TypeDebit}, false},
		{"valid credit", Transaction{UserID: "u1", Amount: 1000, Type: TypeCredit}, false},
		{"missing user", Transaction{Amount: 10, Type: TypeDebit}, true},
		{"zero amount", Transaction{UserID: "u1", Amount: 0, Type: TypeDebit}, true},
		{"negative amount", Transaction{UserID: "u1", Amount: -3.50, Type: TypeDebit}, true},
		{"unknown type", Transaction{UserID: "u1", Amount: 10, Type: "transfer"}, true},
		{"sub-cent precision", Transaction{UserID: "u1", Amount: 9.999, Type: TypeDebit}, true},
		{"two decimals exactly", Transaction{UserID: "u1", Amount: 9.99, Type: TypeDebit}, false},
		{"float noise tolerated", Transaction{UserID: "u1", Amount: 0.1 + 0.2, Type: TypeDebit}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHour(t *testing.T) {
	at := time.Date(2025, 6, 10, 23, 15, 0, 0, time.UTC)
	tx := Transaction{Timestamp: &at}
	if got := tx.Hour(); got != 23 {
		t.Errorf("Hour = %d, want 23", got)
	}

	none := Transaction{}
	if got := none.Hour(); got != 12 {
		t.Errorf("Hour without timestamp = %d, want 12", got)
	}
}

func TestWeekday(t *testing.T) {
	// 2025-06-09 is a Monday, 2025-06-15 a Sunday.
	tests := []struct {
		date string
		want int
	}{
		{"2025-06-09", 0},
		{"2025-06-11", 2},
		{"2025-06-14", 5},
		{"2025-06-15", 6},
	}
	for _, tt := range tests {
		at, err := time.Parse("2006-01-02", tt.date)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.date, err)
		}
		tx := Transaction{Timestamp: &at}
		if got := tx.Weekday(); got != tt.want {
			t.Errorf("Weekday(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}

	none := Transaction{}
	if got := none.Weekday(); got != -1 {
		t.Errorf("Weekday without timestamp = %d, want -1", got)
	}
}

func TestIsWeekend(t *testing.T) {
	sat := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	sun := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	tue := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	if !(&Transaction{Timestamp: &sat}).IsWeekend() {
		t.Error("Saturday should be weekend")
	}
	if !(&Transaction{Timestamp: &sun}).IsWeekend() {
		t.Error("Sunday should be weekend")
	}
	if (&Transaction{Timestamp: &tue}).IsWeekend() {
		t.Error("Tuesday should not be weekend")
	}
	if (&Transaction{}).IsWeekend() {
		t.Error("missing timestamp should not be weekend")
	}
}
