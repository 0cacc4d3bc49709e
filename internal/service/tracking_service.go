package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/trackwell/attribution-service/internal/models"
)

const codeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const maxCodeRetries = 5

// Repos required by the service (interfaces to allow mocking).
type LinkRepo interface {
	Create(ctx context.Context, link *models.TrackingLink) error
	GetByCode(ctx context.Context, code string) (*models.TrackingLink, error)
	RecordClick(ctx context.Context, code string, at time.Time) (uuid.UUID, string, error)
}

// ClickSink receives click audit events off the request path.
type ClickSink interface {
	Enqueue(ev models.ClickEvent) bool
}

// ClickMeta is the request metadata kept in the audit log.
type ClickMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

type TrackingService struct {
	links   LinkRepo
	clicks  ClickSink
	codeLen int
}

func NewTrackingService(links LinkRepo, clicks ClickSink, codeLen int) *TrackingService {
	return &TrackingService{links: links, clicks: clicks, codeLen: codeLen}
}

// RecordClick counts one click on the code and returns the product URL to
// redirect to. The count and the last-click timestamp are updated in a single
// atomic statement by the repository; the audit event is enqueued best-effort
// and never blocks or fails the redirect.
func (s *TrackingService) RecordClick(ctx context.Context, code string, meta ClickMeta) (string, error) {
	now := time.Now().UTC()
	linkID, redirectURL, err := s.links.RecordClick(ctx, code, now)
	if err != nil {
		return "", err
	}

	if s.clicks != nil {
		accepted := s.clicks.Enqueue(models.ClickEvent{
			TrackingLinkID: linkID,
			ClickedAt:      now,
			ClientIP:       meta.ClientIP,
			UserAgent:      meta.UserAgent,
			Referrer:       meta.Referrer,
		})
		_ = accepted // dropped audit rows are acceptable, lost clicks are not
	}
	return redirectURL, nil
}

// CreateLink mints a tracking link with a fresh unique code, retrying
// generation on the rare collision.
func (s *TrackingService) CreateLink(ctx context.Context, influencerID, productID uuid.UUID, campaignID *uuid.UUID) (*models.TrackingLink, error) {
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		code, err := generateCode(s.codeLen)
		if err != nil {
			return nil, err
		}
		link := &models.TrackingLink{
			ID:           uuid.New(),
			InfluencerID: influencerID,
			ProductID:    productID,
			CampaignID:   campaignID,
			Code:         code,
			Status:       models.LinkActive,
		}
		err = s.links.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("unable to generate a unique tracking code after %d attempts", maxCodeRetries)
}

func (s *TrackingService) GetLink(ctx context.Context, code string) (*models.TrackingLink, error) {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, models.ErrNotFound
	}
	return link, nil
}

func generateCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", fmt.Errorf("generate tracking code: %w", err)
		}
		b[i] = codeCharset[n.Int64()]
	}
	return string(b), nil
}
