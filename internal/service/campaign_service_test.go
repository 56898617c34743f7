package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/igrejaconnect/campaign-service/internal/dispatch"
	"github.com/igrejaconnect/campaign-service/internal/domain"
)

type fakeRecipientStore struct {
	filtered []domain.Recipient
	byID     map[int64]domain.Recipient

	filterCalls []domain.RecipientFilter
}

func (f *fakeRecipientStore) Filter(ctx context.Context, criteria domain.RecipientFilter) ([]domain.Recipient, error) {
	f.filterCalls = append(f.filterCalls, criteria)
	return f.filtered, nil
}

func (f *fakeRecipientStore) ListByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error) {
	var out []domain.Recipient
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCampaignStore struct {
	byName map[string]*domain.Campaign

	created      []*domain.Campaign
	statusWrites []domain.CampaignStatus
	closedIDs    []int64
}

func (f *fakeCampaignStore) Create(ctx context.Context, campaign *domain.Campaign) error {
	campaign.ID = int64(len(f.created) + 1)
	f.created = append(f.created, campaign)
	return nil
}

func (f *fakeCampaignStore) GetByName(ctx context.Context, name string) (*domain.Campaign, error) {
	return f.byName[name], nil
}

func (f *fakeCampaignStore) UpdateStatus(ctx context.Context, id int64, status domain.CampaignStatus) error {
	f.statusWrites = append(f.statusWrites, status)
	return nil
}

func (f *fakeCampaignStore) Close(ctx context.Context, id int64) error {
	f.closedIDs = append(f.closedIDs, id)
	return nil
}

type fakeDeliveryStore struct {
	failed    []domain.DeliveryRecord
	pageRows  []domain.DeliveryRecord
	pageTotal int64
	counts    domain.StatusCounts
	summaries []domain.CampaignSummary

	deletedCampaigns []int64
	deletedAll       bool
	removedPerCall   int64
}

func (f *fakeDeliveryStore) ListFailed(ctx context.Context, campaignID int64) ([]domain.DeliveryRecord, error) {
	return f.failed, nil
}

func (f *fakeDeliveryStore) Page(ctx context.Context, campaignID int64, page, pageSize int) ([]domain.DeliveryRecord, int64, error) {
	start := (page - 1) * pageSize
	if start >= len(f.pageRows) {
		return nil, f.pageTotal, nil
	}
	end := start + pageSize
	if end > len(f.pageRows) {
		end = len(f.pageRows)
	}
	return f.pageRows[start:end], f.pageTotal, nil
}

func (f *fakeDeliveryStore) SummarizeByCampaign(ctx context.Context, campaignID int64) (*domain.StatusCounts, error) {
	counts := f.counts
	return &counts, nil
}

func (f *fakeDeliveryStore) SummarizeAll(ctx context.Context) ([]domain.CampaignSummary, error) {
	return f.summaries, nil
}

func (f *fakeDeliveryStore) DeleteByCampaign(ctx context.Context, campaignID int64) (int64, error) {
	f.deletedCampaigns = append(f.deletedCampaigns, campaignID)
	return f.removedPerCall, nil
}

func (f *fakeDeliveryStore) DeleteAll(ctx context.Context) (int64, error) {
	f.deletedAll = true
	return f.removedPerCall, nil
}

type fakeDispatcher struct {
	report *dispatch.Report
	err    error

	dispatchedRecipients []domain.Recipient
	reprocessTargets     []dispatch.Target
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, campaign *domain.Campaign, recipients []domain.Recipient) (*dispatch.Report, error) {
	f.dispatchedRecipients = recipients
	return f.report, f.err
}

func (f *fakeDispatcher) Reprocess(ctx context.Context, campaign *domain.Campaign, targets []dispatch.Target) (*dispatch.Report, error) {
	f.reprocessTargets = targets
	return f.report, f.err
}

func newTestService(recipients *fakeRecipientStore, campaigns *fakeCampaignStore, deliveries *fakeDeliveryStore, dispatcher *fakeDispatcher) *CampaignService {
	return NewCampaignService(recipients, campaigns, deliveries, dispatcher, nil, 1000)
}

func TestParseCriteria_InvalidDate(t *testing.T) {
	_, err := ParseCriteria(FilterCriteria{DateStart: "31/12/2024"})
	if !errors.Is(err, domain.ErrInvalidCriteria) {
		t.Fatalf("expected ErrInvalidCriteria, got %v", err)
	}
}

func TestParseCriteria_InvertedRangeIsKept(t *testing.T) {
	filter, err := ParseCriteria(FilterCriteria{DateStart: "2024-06-01", DateEnd: "2024-01-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.DateStart == nil || filter.DateEnd == nil {
		t.Fatal("expected both bounds to be set")
	}
	if !filter.DateEnd.Before(*filter.DateStart) {
		t.Fatal("expected the inverted range to be preserved")
	}
}

func TestParseCriteria_ValidBounds(t *testing.T) {
	min, max := 18, 30
	filter, err := ParseCriteria(FilterCriteria{
		DateStart: "2024-01-01",
		DateEnd:   "2024-06-01",
		AgeMin:    &min,
		AgeMax:    &max,
		Gender:    "F",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.DateStart == nil || filter.DateStart.Format("2006-01-02") != "2024-01-01" {
		t.Errorf("unexpected DateStart: %v", filter.DateStart)
	}
	if filter.AgeMin == nil || *filter.AgeMin != 18 {
		t.Errorf("unexpected AgeMin: %v", filter.AgeMin)
	}
	if filter.Gender != "F" {
		t.Errorf("unexpected Gender: %q", filter.Gender)
	}
}

func TestSendCampaign_CriteriaFlow(t *testing.T) {
	recipients := &fakeRecipientStore{
		filtered: []domain.Recipient{
			{ID: 1, Name: "Ana", Phone: "5548990000001"},
			{ID: 2, Name: "Bento", Phone: "5548990000002"},
		},
	}
	campaigns := &fakeCampaignStore{}
	deliveries := &fakeDeliveryStore{}
	dispatcher := &fakeDispatcher{report: &dispatch.Report{Attempted: 2, Sent: 2}}

	svc := newTestService(recipients, campaigns, deliveries, dispatcher)

	result, err := svc.SendCampaign(context.Background(), SendRequest{
		Name:     "easter-service",
		Message:  "Ola {name}",
		Criteria: FilterCriteria{Gender: "F"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(campaigns.created) != 1 {
		t.Fatalf("expected 1 campaign created, got %d", len(campaigns.created))
	}
	if campaigns.created[0].Criteria == "" {
		t.Error("expected criteria snapshot on the campaign row")
	}
	if len(dispatcher.dispatchedRecipients) != 2 {
		t.Errorf("expected 2 recipients dispatched, got %d", len(dispatcher.dispatchedRecipients))
	}
	if len(campaigns.closedIDs) != 1 {
		t.Errorf("expected campaign closed after a full run, got %v", campaigns.closedIDs)
	}
	if result.Campaign.Status != domain.CampaignFinished {
		t.Errorf("expected finished status, got %s", result.Campaign.Status)
	}
}

func TestSendCampaign_ExplicitIDsSkipFilter(t *testing.T) {
	recipients := &fakeRecipientStore{
		byID: map[int64]domain.Recipient{
			5: {ID: 5, Name: "Carla", Phone: "5548990000005"},
		},
	}
	campaigns := &fakeCampaignStore{}
	dispatcher := &fakeDispatcher{report: &dispatch.Report{Attempted: 1, Sent: 1}}

	svc := newTestService(recipients, campaigns, &fakeDeliveryStore{}, dispatcher)

	_, err := svc.SendCampaign(context.Background(), SendRequest{
		Name:         "visitors",
		Message:      "Bem-vindo!",
		RecipientIDs: []int64{5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recipients.filterCalls) != 0 {
		t.Errorf("expected filter not to run with explicit ids, got %d calls", len(recipients.filterCalls))
	}
	if len(dispatcher.dispatchedRecipients) != 1 {
		t.Errorf("expected 1 recipient dispatched, got %d", len(dispatcher.dispatchedRecipients))
	}
}

func TestSendCampaign_NoMatchesClosesImmediately(t *testing.T) {
	campaigns := &fakeCampaignStore{}
	dispatcher := &fakeDispatcher{}

	svc := newTestService(&fakeRecipientStore{}, campaigns, &fakeDeliveryStore{}, dispatcher)

	result, err := svc.SendCampaign(context.Background(), SendRequest{
		Name:     "empty",
		Message:  "hi",
		Criteria: FilterCriteria{Gender: "X"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dispatcher.dispatchedRecipients != nil {
		t.Error("expected no dispatch for an empty selection")
	}
	if result.Report.Attempted != 0 {
		t.Errorf("expected empty report, got %+v", result.Report)
	}
	if result.Campaign.Status != domain.CampaignFinished {
		t.Errorf("expected finished status, got %s", result.Campaign.Status)
	}
}

func TestSendCampaign_TruncatesLongMessage(t *testing.T) {
	recipients := &fakeRecipientStore{filtered: []domain.Recipient{{ID: 1, Phone: "5548990000001"}}}
	campaigns := &fakeCampaignStore{}
	dispatcher := &fakeDispatcher{report: &dispatch.Report{Attempted: 1, Sent: 1}}

	svc := NewCampaignService(recipients, campaigns, &fakeDeliveryStore{}, dispatcher, nil, 10)

	_, err := svc.SendCampaign(context.Background(), SendRequest{
		Name:     "long",
		Message:  "this message is much longer than ten characters",
		Criteria: FilterCriteria{Gender: "F"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := campaigns.created[0].Message; len([]rune(got)) != 10 {
		t.Errorf("expected message truncated to 10 runes, got %q", got)
	}
}

func TestSendCampaign_UnreachableKeepsCampaignOpen(t *testing.T) {
	recipients := &fakeRecipientStore{filtered: []domain.Recipient{{ID: 1, Phone: "5548990000001"}}}
	campaigns := &fakeCampaignStore{}
	dispatcher := &fakeDispatcher{
		report: &dispatch.Report{Attempted: 0, Aborted: true},
		err:    domain.ErrProviderUnreachable,
	}

	svc := newTestService(recipients, campaigns, &fakeDeliveryStore{}, dispatcher)

	result, err := svc.SendCampaign(context.Background(), SendRequest{
		Name:     "outage",
		Message:  "hi",
		Criteria: FilterCriteria{Gender: "F"},
	})
	if !errors.Is(err, domain.ErrProviderUnreachable) {
		t.Fatalf("expected ErrProviderUnreachable, got %v", err)
	}

	if len(campaigns.closedIDs) != 0 {
		t.Error("expected campaign left open after an aborted run")
	}
	if result == nil || !result.Report.Aborted {
		t.Error("expected the partial report back alongside the error")
	}
}

func TestReprocess_UnknownCampaign(t *testing.T) {
	svc := newTestService(&fakeRecipientStore{}, &fakeCampaignStore{}, &fakeDeliveryStore{}, &fakeDispatcher{})

	_, err := svc.Reprocess(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReprocess_NoFailedIsNoOp(t *testing.T) {
	campaigns := &fakeCampaignStore{
		byName: map[string]*domain.Campaign{"clean": {ID: 3, Name: "clean"}},
	}
	dispatcher := &fakeDispatcher{}

	svc := newTestService(&fakeRecipientStore{}, campaigns, &fakeDeliveryStore{}, dispatcher)

	result, err := svc.Reprocess(context.Background(), "clean")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dispatcher.reprocessTargets != nil {
		t.Error("expected dispatcher not to run with nothing failed")
	}
	if result.Report.Attempted != 0 {
		t.Errorf("expected empty report, got %+v", result.Report)
	}
}

func TestReprocess_FallsBackToLedgerPhone(t *testing.T) {
	campaigns := &fakeCampaignStore{
		byName: map[string]*domain.Campaign{"retry": {ID: 4, Name: "retry"}},
	}
	deliveries := &fakeDeliveryStore{
		failed: []domain.DeliveryRecord{
			{CampaignID: 4, RecipientID: 10, Phone: "5548990000010", Status: domain.StatusFailed},
			{CampaignID: 4, RecipientID: 11, Phone: "5548990000011", Status: domain.StatusFailed},
		},
	}
	// Recipient 11 was deleted from the directory after the first run.
	recipients := &fakeRecipientStore{
		byID: map[int64]domain.Recipient{
			10: {ID: 10, Name: "Davi", Phone: "5548991111110"},
		},
	}
	dispatcher := &fakeDispatcher{report: &dispatch.Report{Attempted: 2, Sent: 2}}

	svc := newTestService(recipients, campaigns, deliveries, dispatcher)

	if _, err := svc.Reprocess(context.Background(), "retry"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dispatcher.reprocessTargets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(dispatcher.reprocessTargets))
	}
	if dispatcher.reprocessTargets[0].Phone != "5548991111110" {
		t.Errorf("expected directory phone for known recipient, got %s", dispatcher.reprocessTargets[0].Phone)
	}
	if dispatcher.reprocessTargets[1].Phone != "5548990000011" {
		t.Errorf("expected ledger phone fallback, got %s", dispatcher.reprocessTargets[1].Phone)
	}
}

func TestCampaignStatus_Pagination(t *testing.T) {
	rows := make([]domain.DeliveryRecord, 25)
	for i := range rows {
		at := time.Now().Add(time.Duration(i) * time.Second)
		rows[i] = domain.DeliveryRecord{
			CampaignID:  6,
			RecipientID: int64(i + 1),
			Status:      domain.StatusSent,
			AttemptedAt: &at,
		}
	}

	campaigns := &fakeCampaignStore{
		byName: map[string]*domain.Campaign{"big": {ID: 6, Name: "big"}},
	}
	deliveries := &fakeDeliveryStore{
		pageRows:  rows,
		pageTotal: 25,
		counts:    domain.StatusCounts{Sent: 25},
	}

	svc := newTestService(&fakeRecipientStore{}, campaigns, deliveries, &fakeDispatcher{})

	wantSizes := []int{10, 10, 5, 0}
	for i, want := range wantSizes {
		page, err := svc.CampaignStatus(context.Background(), "big", i+1, 10)
		if err != nil {
			t.Fatalf("page %d: unexpected error: %v", i+1, err)
		}
		if len(page.Records) != want {
			t.Errorf("page %d: expected %d records, got %d", i+1, want, len(page.Records))
		}
		if page.TotalCount != 25 {
			t.Errorf("page %d: expected total 25, got %d", i+1, page.TotalCount)
		}
		if page.TotalPages != 3 {
			t.Errorf("page %d: expected 3 total pages, got %d", i+1, page.TotalPages)
		}
	}
}

func TestClearHistory_SingleCampaign(t *testing.T) {
	campaigns := &fakeCampaignStore{
		byName: map[string]*domain.Campaign{"old": {ID: 9, Name: "old"}},
	}
	deliveries := &fakeDeliveryStore{removedPerCall: 42}

	svc := newTestService(&fakeRecipientStore{}, campaigns, deliveries, &fakeDispatcher{})

	removed, err := svc.ClearHistory(context.Background(), "old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if removed != 42 {
		t.Errorf("expected 42 removed, got %d", removed)
	}
	if len(deliveries.deletedCampaigns) != 1 || deliveries.deletedCampaigns[0] != 9 {
		t.Errorf("expected delete scoped to campaign 9, got %v", deliveries.deletedCampaigns)
	}
	if deliveries.deletedAll {
		t.Error("expected single-campaign clear not to touch other campaigns")
	}
}

func TestClearHistory_All(t *testing.T) {
	deliveries := &fakeDeliveryStore{removedPerCall: 100}

	svc := newTestService(&fakeRecipientStore{}, &fakeCampaignStore{}, deliveries, &fakeDispatcher{})

	removed, err := svc.ClearHistory(context.Background(), "all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if removed != 100 {
		t.Errorf("expected 100 removed, got %d", removed)
	}
	if !deliveries.deletedAll {
		t.Error("expected all history cleared")
	}
}

func TestClearHistory_UnknownCampaignIsNoOp(t *testing.T) {
	deliveries := &fakeDeliveryStore{removedPerCall: 42}
	svc := newTestService(&fakeRecipientStore{}, &fakeCampaignStore{}, deliveries, &fakeDispatcher{})

	removed, err := svc.ClearHistory(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}
	if len(deliveries.deletedCampaigns) != 0 || deliveries.deletedAll {
		t.Error("expected no delete to reach the ledger")
	}
}
