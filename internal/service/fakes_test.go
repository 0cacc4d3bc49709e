package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trackwell/attribution-service/internal/models"
)

// In-memory fakes for the repo interfaces. They reproduce just enough of the
// storage semantics (unique codes, duplicate orders, attachment claims) for
// the services to be exercised without Postgres.

type fakeLinkRepo struct {
	links       map[string]*models.TrackingLink // by code
	failCreates int                             // force this many ErrConflict on Create
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[string]*models.TrackingLink)}
}

func (f *fakeLinkRepo) Create(_ context.Context, link *models.TrackingLink) error {
	if f.failCreates > 0 {
		f.failCreates--
		return models.ErrConflict
	}
	if _, exists := f.links[link.Code]; exists {
		return models.ErrConflict
	}
	link.CreatedAt = time.Now().UTC()
	link.UpdatedAt = link.CreatedAt
	f.links[link.Code] = link
	return nil
}

func (f *fakeLinkRepo) GetByCode(_ context.Context, code string) (*models.TrackingLink, error) {
	return f.links[code], nil
}

func (f *fakeLinkRepo) RecordClick(_ context.Context, code string, at time.Time) (uuid.UUID, string, error) {
	link, ok := f.links[code]
	if !ok || link.Status != models.LinkActive {
		return uuid.Nil, "", models.ErrNotFound
	}
	link.Clicks++
	t := at
	link.LastClickedAt = &t
	return link.ID, "https://shop.example.com/p/" + link.ProductID.String(), nil
}

type fakeClickSink struct {
	events []models.ClickEvent
	full   bool
}

func (f *fakeClickSink) Enqueue(ev models.ClickEvent) bool {
	if f.full {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

type convKey struct {
	link  uuid.UUID
	order string
}

type fakeConversionRepo struct {
	byOrder map[convKey]*models.Conversion
	byID    map[uuid.UUID]*models.Conversion
}

func newFakeConversionRepo() *fakeConversionRepo {
	return &fakeConversionRepo{
		byOrder: make(map[convKey]*models.Conversion),
		byID:    make(map[uuid.UUID]*models.Conversion),
	}
}

func (f *fakeConversionRepo) Create(_ context.Context, conv *models.Conversion) (*models.Conversion, error) {
	key := convKey{link: conv.TrackingLinkID, order: conv.OrderID}
	if existing, ok := f.byOrder[key]; ok {
		return existing, models.ErrDuplicateConversion
	}
	conv.CreatedAt = time.Now().UTC()
	conv.UpdatedAt = conv.CreatedAt
	f.byOrder[key] = conv
	f.byID[conv.ID] = conv
	return conv, nil
}

func (f *fakeConversionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Conversion, error) {
	conv, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return conv, nil
}

func (f *fakeConversionRepo) Approve(_ context.Context, id uuid.UUID, at time.Time) (*models.Conversion, error) {
	conv, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if conv.Status != models.ConversionPending {
		return nil, models.ErrConflict
	}
	conv.Status = models.ConversionApproved
	t := at
	conv.ApprovedAt = &t
	return conv, nil
}

func (f *fakeConversionRepo) Reject(_ context.Context, id uuid.UUID, reason string, at time.Time) (*models.Conversion, error) {
	conv, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if conv.Status != models.ConversionPending {
		return nil, models.ErrConflict
	}
	conv.Status = models.ConversionRejected
	t := at
	conv.RejectedAt = &t
	conv.RejectionReason = reason
	return conv, nil
}

type fakeRateRepo struct {
	contexts map[uuid.UUID]*models.RateContext
	loads    int
}

func newFakeRateRepo() *fakeRateRepo {
	return &fakeRateRepo{contexts: make(map[uuid.UUID]*models.RateContext)}
}

func (f *fakeRateRepo) ContextForLink(_ context.Context, linkID uuid.UUID) (*models.RateContext, error) {
	f.loads++
	rc, ok := f.contexts[linkID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return rc, nil
}

type fakePayoutRepo struct {
	balance    models.Balance
	attachable []models.ConversionRef
	payouts    map[uuid.UUID]*models.Payout
	attached   map[uuid.UUID]uuid.UUID // conversion -> payout
	createErr  error
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{
		payouts:  make(map[uuid.UUID]*models.Payout),
		attached: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakePayoutRepo) BalanceSummary(_ context.Context, _ uuid.UUID) (models.Balance, error) {
	return f.balance, nil
}

func (f *fakePayoutRepo) ListAttachable(_ context.Context, _ uuid.UUID) ([]models.ConversionRef, error) {
	var free []models.ConversionRef
	for _, ref := range f.attachable {
		if _, claimed := f.attached[ref.ID]; !claimed {
			free = append(free, ref)
		}
	}
	return free, nil
}

func (f *fakePayoutRepo) CreateWithAttachments(_ context.Context, p *models.Payout, conversionIDs []uuid.UUID) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, cid := range conversionIDs {
		if _, claimed := f.attached[cid]; claimed {
			return models.ErrConflict
		}
	}
	for _, cid := range conversionIDs {
		f.attached[cid] = p.ID
	}
	p.ConversionIDs = conversionIDs
	f.payouts[p.ID] = p
	f.balance.AvailableBalance = f.balance.AvailableBalance.Sub(p.Amount)
	return nil
}

func (f *fakePayoutRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Payout, error) {
	p, ok := f.payouts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (f *fakePayoutRepo) Cancel(_ context.Context, id, influencerID uuid.UUID, at time.Time) (*models.Payout, error) {
	p, ok := f.payouts[id]
	if !ok || p.InfluencerID != influencerID {
		return nil, models.ErrNotFound
	}
	if p.Status != models.PayoutPending {
		return nil, models.ErrConflict
	}
	p.Status = models.PayoutCancelled
	t := at
	p.CancelledAt = &t
	for cid, pid := range f.attached {
		if pid == id {
			delete(f.attached, cid)
		}
	}
	f.balance.AvailableBalance = f.balance.AvailableBalance.Add(p.Amount)
	return p, nil
}

func (f *fakePayoutRepo) Advance(_ context.Context, id uuid.UUID, next models.PayoutStatus, failureReason string, at time.Time) (*models.Payout, error) {
	p, ok := f.payouts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.Status = next
	if next == models.PayoutFailed {
		p.FailureReason = failureReason
		for cid, pid := range f.attached {
			if pid == id {
				delete(f.attached, cid)
			}
		}
	}
	return p, nil
}
