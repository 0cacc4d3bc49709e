package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trackwell/attribution-service/internal/cache"
	"github.com/trackwell/attribution-service/internal/models"
)

const testWindow = 30 * 24 * time.Hour

type conversionFixture struct {
	svc   *ConversionService
	links *fakeLinkRepo
	convs *fakeConversionRepo
	rates *fakeRateRepo
	link  *models.TrackingLink
}

func newConversionFixture(t *testing.T, lastClick *time.Time) *conversionFixture {
	t.Helper()
	links := newFakeLinkRepo()
	convs := newFakeConversionRepo()
	rates := newFakeRateRepo()

	link := &models.TrackingLink{
		ID:            uuid.New(),
		InfluencerID:  uuid.New(),
		ProductID:     uuid.New(),
		Code:          "abc12345",
		Status:        models.LinkActive,
		LastClickedAt: lastClick,
	}
	links.links[link.Code] = link
	rates.contexts[link.ID] = &models.RateContext{
		LinkID:      link.ID,
		ProductRate: rate("0.10"),
	}

	svc := NewConversionService(links, convs, rates, cache.NewMemoryRateCache(time.Minute), testWindow)
	return &conversionFixture{svc: svc, links: links, convs: convs, rates: rates, link: link}
}

func ts(t time.Time) *time.Time { return &t }

func TestRecordConversionWithinWindow(t *testing.T) {
	clicked := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fix := newConversionFixture(t, ts(clicked))

	conv, err := fix.svc.Record(context.Background(), RecordConversionInput{
		Code:       fix.link.Code,
		OrderID:    "order-1",
		OrderValue: decimal.RequireFromString("100.00"),
		OccurredAt: clicked.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if conv.Status != models.ConversionPending {
		t.Fatalf("status = %s, want PENDING", conv.Status)
	}
	if !conv.CommissionRate.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("commission_rate = %s, want 0.10", conv.CommissionRate)
	}
	if !conv.CommissionAmount.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("commission_amount = %s, want 10.00", conv.CommissionAmount)
	}
	if conv.InfluencerID != fix.link.InfluencerID {
		t.Fatalf("conversion not attributed to link owner")
	}
}

func TestRecordConversionWindowBoundary(t *testing.T) {
	clicked := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("exactly on the edge is accepted", func(t *testing.T) {
		fix := newConversionFixture(t, ts(clicked))
		_, err := fix.svc.Record(context.Background(), RecordConversionInput{
			Code:       fix.link.Code,
			OrderID:    "order-edge",
			OrderValue: decimal.RequireFromString("50.00"),
			OccurredAt: clicked.Add(testWindow),
		})
		if err != nil {
			t.Fatalf("conversion at window edge rejected: %v", err)
		}
	})

	t.Run("one second past the edge is stale", func(t *testing.T) {
		fix := newConversionFixture(t, ts(clicked))
		_, err := fix.svc.Record(context.Background(), RecordConversionInput{
			Code:       fix.link.Code,
			OrderID:    "order-late",
			OrderValue: decimal.RequireFromString("50.00"),
			OccurredAt: clicked.Add(testWindow + time.Second),
		})
		if !errors.Is(err, models.ErrAttributionExpired) {
			t.Fatalf("expected ErrAttributionExpired, got %v", err)
		}
	})
}

func TestRecordConversionNoClickEver(t *testing.T) {
	fix := newConversionFixture(t, nil)
	_, err := fix.svc.Record(context.Background(), RecordConversionInput{
		Code:       fix.link.Code,
		OrderID:    "order-1",
		OrderValue: decimal.RequireFromString("10.00"),
		OccurredAt: time.Now().UTC(),
	})
	if !errors.Is(err, models.ErrAttributionExpired) {
		t.Fatalf("expected ErrAttributionExpired without a click, got %v", err)
	}
}

func TestRecordConversionUnknownCode(t *testing.T) {
	fix := newConversionFixture(t, ts(time.Now().UTC()))
	_, err := fix.svc.Record(context.Background(), RecordConversionInput{
		Code:       "missing",
		OrderID:    "order-1",
		OrderValue: decimal.RequireFromString("10.00"),
		OccurredAt: time.Now().UTC(),
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordConversionDuplicateOrder(t *testing.T) {
	clicked := time.Now().UTC().Add(-time.Hour)
	fix := newConversionFixture(t, ts(clicked))

	in := RecordConversionInput{
		Code:       fix.link.Code,
		OrderID:    "order-dup",
		OrderValue: decimal.RequireFromString("42.00"),
		OccurredAt: clicked.Add(time.Minute),
	}
	first, err := fix.svc.Record(context.Background(), in)
	if err != nil {
		t.Fatalf("first Record error: %v", err)
	}

	second, err := fix.svc.Record(context.Background(), in)
	if !errors.Is(err, models.ErrDuplicateConversion) {
		t.Fatalf("expected ErrDuplicateConversion, got %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Fatalf("duplicate must return the existing conversion unchanged")
	}
	if len(fix.convs.byID) != 1 {
		t.Fatalf("duplicate created a second row: %d rows", len(fix.convs.byID))
	}
}

func TestRecordConversionUsesRateCache(t *testing.T) {
	clicked := time.Now().UTC().Add(-time.Hour)
	fix := newConversionFixture(t, ts(clicked))

	for i, order := range []string{"o1", "o2", "o3"} {
		_, err := fix.svc.Record(context.Background(), RecordConversionInput{
			Code:       fix.link.Code,
			OrderID:    order,
			OrderValue: decimal.RequireFromString("10.00"),
			OccurredAt: clicked.Add(time.Duration(i+1) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record %s error: %v", order, err)
		}
	}
	if fix.rates.loads != 1 {
		t.Fatalf("rate context loaded %d times, want 1 (cached)", fix.rates.loads)
	}
}

func TestCommissionAmountHalfUpRounding(t *testing.T) {
	tests := []struct {
		orderValue string
		rate       string
		want       string
	}{
		{"100.00", "0.20", "20.00"},
		{"100.00", "0.10", "10.00"},
		{"100.00", "0.08", "8.00"},
		{"12.49", "0.10", "1.25"},  // 1.249 rounds up
		{"12.44", "0.10", "1.24"},  // 1.244 rounds down
		{"10.05", "0.15", "1.51"},  // 1.5075 rounds up
		{"33.35", "0.10", "3.34"},  // 3.335 exact half rounds up
		{"0.00", "0.10", "0.00"},
	}
	for _, tt := range tests {
		got := CommissionAmount(decimal.RequireFromString(tt.orderValue), decimal.RequireFromString(tt.rate))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("CommissionAmount(%s, %s) = %s, want %s", tt.orderValue, tt.rate, got, tt.want)
		}
	}
}

func TestApproveRejectTransitions(t *testing.T) {
	clicked := time.Now().UTC().Add(-time.Hour)
	fix := newConversionFixture(t, ts(clicked))

	conv, err := fix.svc.Record(context.Background(), RecordConversionInput{
		Code:       fix.link.Code,
		OrderID:    "order-1",
		OrderValue: decimal.RequireFromString("10.00"),
		OccurredAt: clicked.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	approved, err := fix.svc.Approve(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if approved.Status != models.ConversionApproved || approved.ApprovedAt == nil {
		t.Fatalf("approve did not set status/timestamp: %+v", approved)
	}

	// Approving twice, or rejecting an approved conversion, is a conflict.
	if _, err := fix.svc.Approve(context.Background(), conv.ID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("re-approve: expected ErrConflict, got %v", err)
	}
	if _, err := fix.svc.Reject(context.Background(), conv.ID, "late"); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("reject after approve: expected ErrConflict, got %v", err)
	}
}
