package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name         string
		request      *models.PaymentRequest
		wantErr      bool
		validateFunc func(t *testing.T, outstanding map[string]decimal.Decimal)
	}{
		{
			name: "one and three parts of 100",
			request: &models.PaymentRequest{
				Amount: d("100"),
				Shares: []models.RequestShare{
					{ID: "a", UserID: 1, Parts: d("1")},
					{ID: "b", UserID: 2, Parts: d("3")},
				},
			},
			validateFunc: func(t *testing.T, outstanding map[string]decimal.Decimal) {
				if !outstanding["a"].Equal(d("25")) {
					t.Errorf("share a = %s, want 25", outstanding["a"])
				}
				if !outstanding["b"].Equal(d("75")) {
					t.Errorf("share b = %s, want 75", outstanding["b"])
				}
			},
		},
		{
			name: "partially paid share",
			request: &models.PaymentRequest{
				Amount: d("60"),
				Shares: []models.RequestShare{
					{ID: "a", UserID: 1, Parts: d("1"), PayedAmount: d("10")},
					{ID: "b", UserID: 2, Parts: d("1")},
				},
			},
			validateFunc: func(t *testing.T, outstanding map[string]decimal.Decimal) {
				if !outstanding["a"].Equal(d("20")) {
					t.Errorf("share a = %s, want 20", outstanding["a"])
				}
			},
		},
		{
			name: "overpaid share is negative",
			request: &models.PaymentRequest{
				Amount: d("10"),
				Shares: []models.RequestShare{
					{ID: "a", UserID: 1, Parts: d("1"), PayedAmount: d("15")},
				},
			},
			validateFunc: func(t *testing.T, outstanding map[string]decimal.Decimal) {
				if !outstanding["a"].Equal(d("-5")) {
					t.Errorf("share a = %s, want -5", outstanding["a"])
				}
			},
		},
		{
			name: "zero total parts should error",
			request: &models.PaymentRequest{
				Amount: d("10"),
				Shares: []models.RequestShare{{ID: "a", UserID: 1, Parts: d("0")}},
			},
			wantErr: true,
		},
		{
			name:    "no shares should error",
			request: &models.PaymentRequest{Amount: d("10")},
			wantErr: true,
		},
		{
			name: "negative amount should error",
			request: &models.PaymentRequest{
				Amount: d("-1"),
				Shares: []models.RequestShare{{ID: "a", UserID: 1, Parts: d("1")}},
			},
			wantErr: true,
		},
		{
			name: "duplicate user should error",
			request: &models.PaymentRequest{
				Amount: d("10"),
				Shares: []models.RequestShare{
					{ID: "a", UserID: 1, Parts: d("1")},
					{ID: "b", UserID: 1, Parts: d("2")},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outstanding, err := Allocate(tt.request)
			if (err != nil) != tt.wantErr {
				t.Errorf("Allocate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Allocate() error = %v, want a validation error", err)
			}
			if !tt.wantErr && tt.validateFunc != nil {
				tt.validateFunc(t, outstanding)
			}
		})
	}
}

func TestOwedRejectsZeroTotal(t *testing.T) {
	if _, err := Owed(d("1"), decimal.Zero, d("100")); err == nil {
		t.Error("expected error for zero total parts")
	}
}

func TestIsSettled(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"0", true},
		{"0.009", true},
		{"-0.0099", true},
		{"0.01", false},
		{"-0.01", false},
		{"3", false},
	}
	for _, tt := range tests {
		if got := IsSettled(d(tt.amount)); got != tt.want {
			t.Errorf("IsSettled(%s) = %v, want %v", tt.amount, got, tt.want)
		}
	}
}
