package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/trackwell/attribution-service/internal/models"
)

func TestRecordClick(t *testing.T) {
	links := newFakeLinkRepo()
	sink := &fakeClickSink{}
	svc := NewTrackingService(links, sink, 8)

	link := &models.TrackingLink{
		ID:           uuid.New(),
		InfluencerID: uuid.New(),
		ProductID:    uuid.New(),
		Code:         "clickme1",
		Status:       models.LinkActive,
	}
	links.links[link.Code] = link

	url, err := svc.RecordClick(context.Background(), link.Code, ClickMeta{ClientIP: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("RecordClick error: %v", err)
	}
	if url == "" {
		t.Fatal("expected a redirect URL")
	}
	if link.Clicks != 1 {
		t.Fatalf("clicks = %d, want 1", link.Clicks)
	}
	if link.LastClickedAt == nil {
		t.Fatal("last click timestamp not set")
	}
	if len(sink.events) != 1 || sink.events[0].TrackingLinkID != link.ID {
		t.Fatalf("audit event not enqueued: %+v", sink.events)
	}
}

func TestRecordClickUnknownOrInactive(t *testing.T) {
	links := newFakeLinkRepo()
	svc := NewTrackingService(links, &fakeClickSink{}, 8)

	if _, err := svc.RecordClick(context.Background(), "missing1", ClickMeta{}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown code: expected ErrNotFound, got %v", err)
	}

	paused := &models.TrackingLink{ID: uuid.New(), Code: "paused12", Status: models.LinkPaused}
	links.links[paused.Code] = paused
	if _, err := svc.RecordClick(context.Background(), paused.Code, ClickMeta{}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("paused link: expected ErrNotFound, got %v", err)
	}
}

func TestRecordClickSurvivesFullAuditQueue(t *testing.T) {
	links := newFakeLinkRepo()
	svc := NewTrackingService(links, &fakeClickSink{full: true}, 8)

	link := &models.TrackingLink{ID: uuid.New(), Code: "fullq123", Status: models.LinkActive}
	links.links[link.Code] = link

	if _, err := svc.RecordClick(context.Background(), link.Code, ClickMeta{}); err != nil {
		t.Fatalf("a full audit queue must not fail the click: %v", err)
	}
	if link.Clicks != 1 {
		t.Fatalf("click was not counted")
	}
}

func TestCreateLink(t *testing.T) {
	links := newFakeLinkRepo()
	svc := NewTrackingService(links, nil, 8)

	campaign := uuid.New()
	link, err := svc.CreateLink(context.Background(), uuid.New(), uuid.New(), &campaign)
	if err != nil {
		t.Fatalf("CreateLink error: %v", err)
	}
	if len(link.Code) != 8 {
		t.Fatalf("code length = %d, want 8", len(link.Code))
	}
	if link.Status != models.LinkActive {
		t.Fatalf("status = %s, want active", link.Status)
	}
	if link.CampaignID == nil || *link.CampaignID != campaign {
		t.Fatalf("campaign not carried onto the link")
	}
}

func TestCreateLinkRetriesOnCodeCollision(t *testing.T) {
	links := newFakeLinkRepo()
	links.failCreates = 2
	svc := NewTrackingService(links, nil, 8)

	if _, err := svc.CreateLink(context.Background(), uuid.New(), uuid.New(), nil); err != nil {
		t.Fatalf("CreateLink should retry past collisions: %v", err)
	}
}

func TestGetLinkUnknown(t *testing.T) {
	svc := NewTrackingService(newFakeLinkRepo(), nil, 8)
	if _, err := svc.GetLink(context.Background(), "missing1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateCode(8)
		if err != nil {
			t.Fatalf("generateCode error: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(codeCharset, c) {
				t.Fatalf("code %q contains %q outside the charset", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Fatalf("suspicious collision rate: %d unique of 100", len(seen))
	}
}
