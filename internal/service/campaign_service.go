package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/igrejaconnect/campaign-service/internal/dispatch"
	"github.com/igrejaconnect/campaign-service/internal/domain"
	"github.com/igrejaconnect/campaign-service/pkg/logger"
)

type recipientStore interface {
	Filter(ctx context.Context, criteria domain.RecipientFilter) ([]domain.Recipient, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error)
}

type campaignStore interface {
	Create(ctx context.Context, campaign *domain.Campaign) error
	GetByName(ctx context.Context, name string) (*domain.Campaign, error)
	UpdateStatus(ctx context.Context, id int64, status domain.CampaignStatus) error
	Close(ctx context.Context, id int64) error
}

type deliveryStore interface {
	ListFailed(ctx context.Context, campaignID int64) ([]domain.DeliveryRecord, error)
	Page(ctx context.Context, campaignID int64, page, pageSize int) ([]domain.DeliveryRecord, int64, error)
	SummarizeByCampaign(ctx context.Context, campaignID int64) (*domain.StatusCounts, error)
	SummarizeAll(ctx context.Context) ([]domain.CampaignSummary, error)
	DeleteByCampaign(ctx context.Context, campaignID int64) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type campaignDispatcher interface {
	Dispatch(ctx context.Context, campaign *domain.Campaign, recipients []domain.Recipient) (*dispatch.Report, error)
	Reprocess(ctx context.Context, campaign *domain.Campaign, targets []dispatch.Target) (*dispatch.Report, error)
}

// SummaryCache is an optional read-through cache for status counts. A nil
// cache disables it; every method must tolerate backend errors silently.
type SummaryCache interface {
	CacheSummary(ctx context.Context, campaignID int64, counts domain.StatusCounts) error
	GetCachedSummary(ctx context.Context, campaignID int64) (*domain.StatusCounts, error)
	DropSummary(ctx context.Context, campaignID int64) error
	DropAllSummaries(ctx context.Context) error
}

// FilterCriteria is the raw selection input before validation. Dates use
// the 2006-01-02 layout; an empty field imposes no bound.
type FilterCriteria struct {
	DateStart string `json:"dateStart,omitempty"`
	DateEnd   string `json:"dateEnd,omitempty"`
	AgeMin    *int   `json:"ageMin,omitempty"`
	AgeMax    *int   `json:"ageMax,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

// SendRequest describes one campaign to create and dispatch. When
// RecipientIDs is set the criteria are ignored and the explicit list wins.
type SendRequest struct {
	Name         string
	Message      string
	MediaURL     *string
	Criteria     FilterCriteria
	RecipientIDs []int64
}

// SendResult pairs the created campaign with its run report.
type SendResult struct {
	Campaign *domain.Campaign `json:"campaign"`
	Report   *dispatch.Report `json:"report"`
}

// StatusPage is one page of a campaign's delivery records together with the
// aggregate counts for the whole campaign.
type StatusPage struct {
	Campaign   *domain.Campaign        `json:"campaign"`
	Counts     domain.StatusCounts     `json:"counts"`
	Records    []domain.DeliveryRecord `json:"records"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"pageSize"`
	TotalCount int64                   `json:"totalCount"`
	TotalPages int                     `json:"totalPages"`
}

// CampaignService ties the recipient directory, the campaign store, the
// delivery ledger and the dispatcher together behind the HTTP surface.
type CampaignService struct {
	recipients recipientStore
	campaigns  campaignStore
	deliveries deliveryStore
	dispatcher campaignDispatcher
	cache      SummaryCache

	maxMessageLength int
}

func NewCampaignService(
	recipients recipientStore,
	campaigns campaignStore,
	deliveries deliveryStore,
	dispatcher campaignDispatcher,
	cache SummaryCache,
	maxMessageLength int,
) *CampaignService {
	return &CampaignService{
		recipients:       recipients,
		campaigns:        campaigns,
		deliveries:       deliveries,
		dispatcher:       dispatcher,
		cache:            cache,
		maxMessageLength: maxMessageLength,
	}
}

// ParseCriteria validates raw criteria into a filter. Only syntactically
// malformed bounds wrap domain.ErrInvalidCriteria; inverted or out-of-range
// bounds are kept as-is and simply match nothing.
func ParseCriteria(raw FilterCriteria) (*domain.RecipientFilter, error) {
	filter := &domain.RecipientFilter{
		AgeMin: raw.AgeMin,
		AgeMax: raw.AgeMax,
		Gender: raw.Gender,
	}

	if raw.DateStart != "" {
		start, err := time.Parse("2006-01-02", raw.DateStart)
		if err != nil {
			return nil, fmt.Errorf("dateStart %q: %w", raw.DateStart, domain.ErrInvalidCriteria)
		}
		filter.DateStart = &start
	}

	if raw.DateEnd != "" {
		end, err := time.Parse("2006-01-02", raw.DateEnd)
		if err != nil {
			return nil, fmt.Errorf("dateEnd %q: %w", raw.DateEnd, domain.ErrInvalidCriteria)
		}
		filter.DateEnd = &end
	}

	return filter, nil
}

// FilterRecipients previews which recipients a set of criteria selects,
// without creating a campaign.
func (s *CampaignService) FilterRecipients(ctx context.Context, raw FilterCriteria) ([]domain.Recipient, error) {
	filter, err := ParseCriteria(raw)
	if err != nil {
		return nil, err
	}
	return s.recipients.Filter(ctx, *filter)
}

// SendCampaign creates a campaign, resolves its recipients and runs the
// dispatch loop to completion. The campaign row keeps a JSON snapshot of the
// criteria so the selection stays auditable after the directory changes.
func (s *CampaignService) SendCampaign(ctx context.Context, req SendRequest) (*SendResult, error) {
	message := req.Message
	if s.maxMessageLength > 0 && len([]rune(message)) > s.maxMessageLength {
		message = string([]rune(message)[:s.maxMessageLength])
		logger.Warnf("Campaign %q message truncated to %d characters", req.Name, s.maxMessageLength)
	}

	recipients, criteriaJSON, err := s.resolveRecipients(ctx, req)
	if err != nil {
		return nil, err
	}

	campaign := &domain.Campaign{
		Name:     req.Name,
		Message:  message,
		MediaURL: req.MediaURL,
		Criteria: criteriaJSON,
		Status:   domain.CampaignDraft,
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, err
	}

	if len(recipients) == 0 {
		if err := s.campaigns.Close(ctx, campaign.ID); err != nil {
			return nil, err
		}
		campaign.Status = domain.CampaignFinished
		logger.Infof("Campaign %q matched no recipients", req.Name)
		return &SendResult{Campaign: campaign, Report: &dispatch.Report{}}, nil
	}

	if err := s.campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignSending); err != nil {
		return nil, err
	}
	campaign.Status = domain.CampaignSending

	report, runErr := s.dispatcher.Dispatch(ctx, campaign, recipients)
	if report != nil {
		s.refreshSummary(ctx, campaign.ID)
	}
	if runErr != nil {
		// The campaign stays in sending; a reprocess or a fresh send
		// picks up the rows the aborted run left pending.
		return &SendResult{Campaign: campaign, Report: report}, runErr
	}

	if !report.Aborted {
		if err := s.campaigns.Close(ctx, campaign.ID); err != nil {
			return nil, err
		}
		campaign.Status = domain.CampaignFinished
	}

	return &SendResult{Campaign: campaign, Report: report}, nil
}

func (s *CampaignService) resolveRecipients(ctx context.Context, req SendRequest) ([]domain.Recipient, string, error) {
	if len(req.RecipientIDs) > 0 {
		recipients, err := s.recipients.ListByIDs(ctx, req.RecipientIDs)
		if err != nil {
			return nil, "", err
		}
		return recipients, fmt.Sprintf(`{"recipientIds":%d}`, len(req.RecipientIDs)), nil
	}

	filter, err := ParseCriteria(req.Criteria)
	if err != nil {
		return nil, "", err
	}

	recipients, err := s.recipients.Filter(ctx, *filter)
	if err != nil {
		return nil, "", err
	}

	return recipients, criteriaSnapshot(req.Criteria), nil
}

// Reprocess retries every failed record of the named campaign. Recipients
// deleted from the directory since the first run are still retried through
// the phone number kept on the ledger row.
func (s *CampaignService) Reprocess(ctx context.Context, campaignName string) (*SendResult, error) {
	campaign, err := s.campaigns.GetByName(ctx, campaignName)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %q: %w", campaignName, domain.ErrNotFound)
	}

	failed, err := s.deliveries.ListFailed(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	if len(failed) == 0 {
		logger.Infof("Campaign %q has no failed deliveries to reprocess", campaignName)
		return &SendResult{Campaign: campaign, Report: &dispatch.Report{}}, nil
	}

	targets, err := s.buildRetryTargets(ctx, failed)
	if err != nil {
		return nil, err
	}

	report, runErr := s.dispatcher.Reprocess(ctx, campaign, targets)
	if report != nil {
		s.refreshSummary(ctx, campaign.ID)
	}
	if runErr != nil {
		return &SendResult{Campaign: campaign, Report: report}, runErr
	}

	return &SendResult{Campaign: campaign, Report: report}, nil
}

func (s *CampaignService) buildRetryTargets(ctx context.Context, failed []domain.DeliveryRecord) ([]dispatch.Target, error) {
	ids := make([]int64, 0, len(failed))
	for _, record := range failed {
		ids = append(ids, record.RecipientID)
	}

	recipients, err := s.recipients.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Recipient, len(recipients))
	for _, r := range recipients {
		byID[r.ID] = r
	}

	targets := make([]dispatch.Target, 0, len(failed))
	for _, record := range failed {
		tgt := dispatch.Target{RecipientID: record.RecipientID, Phone: record.Phone}
		if recipient, ok := byID[record.RecipientID]; ok {
			tgt.Phone = recipient.Phone
			tgt.Name = recipient.Name
		}
		targets = append(targets, tgt)
	}
	return targets, nil
}

// StatusOverview lists per-campaign counts across the whole ledger, most
// recent campaign first.
func (s *CampaignService) StatusOverview(ctx context.Context) ([]domain.CampaignSummary, error) {
	return s.deliveries.SummarizeAll(ctx)
}

// CampaignStatus returns one page of the named campaign's records plus the
// full aggregate counts. Counts come from the cache when fresh.
func (s *CampaignService) CampaignStatus(ctx context.Context, campaignName string, page, pageSize int) (*StatusPage, error) {
	campaign, err := s.campaigns.GetByName(ctx, campaignName)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %q: %w", campaignName, domain.ErrNotFound)
	}

	counts := s.cachedSummary(ctx, campaign.ID)
	if counts == nil {
		counts, err = s.deliveries.SummarizeByCampaign(ctx, campaign.ID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if cacheErr := s.cache.CacheSummary(ctx, campaign.ID, *counts); cacheErr != nil {
				logger.Debugf("Failed to cache summary for campaign %d: %v", campaign.ID, cacheErr)
			}
		}
	}

	records, total, err := s.deliveries.Page(ctx, campaign.ID, page, pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &StatusPage{
		Campaign:   campaign,
		Counts:     *counts,
		Records:    records,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// ClearHistory prunes delivery records for one campaign by name, or for all
// campaigns when target is "all". Returns how many records were removed.
// An unknown campaign name is a no-op reporting zero removed.
func (s *CampaignService) ClearHistory(ctx context.Context, target string) (int64, error) {
	if target == "all" {
		removed, err := s.deliveries.DeleteAll(ctx)
		if err != nil {
			return 0, err
		}
		if s.cache != nil {
			if cacheErr := s.cache.DropAllSummaries(ctx); cacheErr != nil {
				logger.Warnf("Failed to drop cached summaries: %v", cacheErr)
			}
		}
		logger.Infof("Cleared %d delivery records across all campaigns", removed)
		return removed, nil
	}

	campaign, err := s.campaigns.GetByName(ctx, target)
	if err != nil {
		return 0, err
	}
	if campaign == nil {
		logger.Infof("Clear history for unknown campaign %q, nothing to remove", target)
		return 0, nil
	}

	removed, err := s.deliveries.DeleteByCampaign(ctx, campaign.ID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if cacheErr := s.cache.DropSummary(ctx, campaign.ID); cacheErr != nil {
			logger.Warnf("Failed to drop cached summary for campaign %d: %v", campaign.ID, cacheErr)
		}
	}

	logger.Infof("Cleared %d delivery records for campaign %q", removed, target)
	return removed, nil
}

func (s *CampaignService) cachedSummary(ctx context.Context, campaignID int64) *domain.StatusCounts {
	if s.cache == nil {
		return nil
	}
	counts, err := s.cache.GetCachedSummary(ctx, campaignID)
	if err != nil {
		logger.Debugf("Summary cache read failed for campaign %d: %v", campaignID, err)
		return nil
	}
	return counts
}

// refreshSummary recomputes and caches the counts right after a run so the
// first status poll is warm. Errors only get logged.
func (s *CampaignService) refreshSummary(ctx context.Context, campaignID int64) {
	if s.cache == nil {
		return
	}
	counts, err := s.deliveries.SummarizeByCampaign(ctx, campaignID)
	if err != nil {
		logger.Debugf("Failed to summarize campaign %d after run: %v", campaignID, err)
		return
	}
	if err := s.cache.CacheSummary(ctx, campaignID, *counts); err != nil {
		logger.Debugf("Failed to cache summary for campaign %d: %v", campaignID, err)
	}
}

func criteriaSnapshot(raw FilterCriteria) string {
	snapshot, err := json.Marshal(raw)
	if err != nil {
		return "{}"
	}
	return string(snapshot)
}
