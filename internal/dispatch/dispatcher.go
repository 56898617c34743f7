package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/igrejaconnect/campaign-service/internal/domain"
	"github.com/igrejaconnect/campaign-service/pkg/logger"
)

// Sender delivers one message to one phone number. Implementations report
// provider rejections through the returned SendOutcome and reserve the error
// for cases where the provider could not be reached at all.
type Sender interface {
	Send(ctx context.Context, phone, message string, mediaURL *string) (*domain.SendOutcome, error)
}

// RunLocker guards a campaign run across processes. The zero value of a
// Dispatcher works without one; the in-process lock still applies.
type RunLocker interface {
	AcquireRunLock(ctx context.Context, campaignID int64, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, campaignID int64) error
}

type deliveryLedger interface {
	UpsertPending(ctx context.Context, campaignID int64, recipients []domain.Recipient) error
	ListByCampaign(ctx context.Context, campaignID int64) ([]domain.DeliveryRecord, error)
	RecordOutcome(ctx context.Context, campaignID, recipientID int64, status domain.DeliveryStatus, errorReason string) error
}

// Report describes what one run accomplished. Aborted is set when the run
// stopped before exhausting its targets, whether by cancellation or because
// the provider went unreachable.
type Report struct {
	Attempted int  `json:"attempted"`
	Sent      int  `json:"sent"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	Aborted   bool `json:"aborted"`
}

// campaignLocks serializes runs per campaign inside this process.
type campaignLocks struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func (l *campaignLocks) tryAcquire(campaignID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[campaignID]; busy {
		return false
	}
	l.held[campaignID] = struct{}{}
	return true
}

func (l *campaignLocks) release(campaignID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, campaignID)
}

// Dispatcher walks a campaign's recipients one at a time, records every
// outcome in the ledger and waits the pacing delay after each attempt.
type Dispatcher struct {
	ledger     deliveryLedger
	sender     Sender
	runLocker  RunLocker
	locks      campaignLocks
	pacing     time.Duration
	runLockTTL time.Duration
}

func NewDispatcher(ledger deliveryLedger, sender Sender, runLocker RunLocker, pacing, runLockTTL time.Duration) *Dispatcher {
	return &Dispatcher{
		ledger:     ledger,
		sender:     sender,
		runLocker:  runLocker,
		locks:      campaignLocks{held: make(map[int64]struct{})},
		pacing:     pacing,
		runLockTTL: runLockTTL,
	}
}

// Target is one recipient of a run. Dispatch builds its own targets from
// the recipient list; Reprocess takes them prepared by the caller.
type Target struct {
	RecipientID int64
	Phone       string
	Name        string
}

// Dispatch seeds pending records for every recipient and then runs them in
// input order. Recipients whose record is already sent are skipped without
// pacing. Returns domain.ErrCampaignBusy when another run holds the
// campaign, and domain.ErrProviderUnreachable (with the partial report)
// when the provider drops mid-run.
func (d *Dispatcher) Dispatch(ctx context.Context, campaign *domain.Campaign, recipients []domain.Recipient) (*Report, error) {
	release, err := d.acquire(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := d.ledger.UpsertPending(ctx, campaign.ID, recipients); err != nil {
		return nil, err
	}

	sent, err := d.sentSet(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	targets := make([]Target, 0, len(recipients))
	for _, recipient := range recipients {
		targets = append(targets, Target{
			RecipientID: recipient.ID,
			Phone:       recipient.Phone,
			Name:        recipient.Name,
		})
	}

	return d.run(ctx, campaign, targets, sent)
}

// Reprocess retries a prepared list of failed targets. Callers select the
// targets; the dispatcher only guarantees ordering, pacing and the ledger
// writes, same as a first run.
func (d *Dispatcher) Reprocess(ctx context.Context, campaign *domain.Campaign, targets []Target) (*Report, error) {
	release, err := d.acquire(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	sent, err := d.sentSet(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	return d.run(ctx, campaign, targets, sent)
}

func (d *Dispatcher) acquire(ctx context.Context, campaignID int64) (func(), error) {
	if !d.locks.tryAcquire(campaignID) {
		return nil, fmt.Errorf("campaign %d: %w", campaignID, domain.ErrCampaignBusy)
	}

	if d.runLocker == nil {
		return func() { d.locks.release(campaignID) }, nil
	}

	acquired, err := d.runLocker.AcquireRunLock(ctx, campaignID, d.runLockTTL)
	if err != nil {
		// Lock backend trouble should not block the campaign; the
		// in-process lock still protects this instance.
		logger.Warnf("Run lock unavailable for campaign %d, continuing with local lock: %v", campaignID, err)
		return func() { d.locks.release(campaignID) }, nil
	}
	if !acquired {
		d.locks.release(campaignID)
		return nil, fmt.Errorf("campaign %d locked by another process: %w", campaignID, domain.ErrCampaignBusy)
	}

	return func() {
		if err := d.runLocker.ReleaseRunLock(context.Background(), campaignID); err != nil {
			logger.Warnf("Failed to release run lock for campaign %d: %v", campaignID, err)
		}
		d.locks.release(campaignID)
	}, nil
}

func (d *Dispatcher) sentSet(ctx context.Context, campaignID int64) (map[int64]struct{}, error) {
	records, err := d.ledger.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	sent := make(map[int64]struct{}, len(records))
	for _, record := range records {
		if record.Status.Terminal() {
			sent[record.RecipientID] = struct{}{}
		}
	}
	return sent, nil
}

func (d *Dispatcher) run(ctx context.Context, campaign *domain.Campaign, targets []Target, sent map[int64]struct{}) (*Report, error) {
	report := &Report{}

	logger.Infof("Dispatching campaign %d (%s) to %d recipients", campaign.ID, campaign.Name, len(targets))

	for i, tgt := range targets {
		select {
		case <-ctx.Done():
			report.Aborted = true
			logger.Warnf("Campaign %d cancelled after %d attempts", campaign.ID, report.Attempted)
			return report, nil
		default:
		}

		if _, done := sent[tgt.RecipientID]; done {
			report.Skipped++
			continue
		}

		message := renderMessage(campaign.Message, tgt.Name)

		outcome, err := d.sender.Send(ctx, tgt.Phone, message, campaign.MediaURL)
		if err != nil {
			if errors.Is(err, domain.ErrProviderUnreachable) {
				report.Aborted = true
				logger.Errorf("Provider unreachable during campaign %d, aborting run: %v", campaign.ID, err)
				return report, err
			}
			return report, err
		}

		report.Attempted++

		if outcome.Success {
			report.Sent++
			if err := d.ledger.RecordOutcome(ctx, campaign.ID, tgt.RecipientID, domain.StatusSent, ""); err != nil {
				if errors.Is(err, domain.ErrTerminalState) {
					logger.Warnf("Record for campaign %d recipient %d already terminal", campaign.ID, tgt.RecipientID)
				} else {
					return report, err
				}
			}
		} else {
			report.Failed++
			if err := d.ledger.RecordOutcome(ctx, campaign.ID, tgt.RecipientID, domain.StatusFailed, outcome.ErrorCode); err != nil {
				if errors.Is(err, domain.ErrTerminalState) {
					logger.Warnf("Record for campaign %d recipient %d already terminal, keeping sent", campaign.ID, tgt.RecipientID)
				} else {
					return report, err
				}
			}
		}

		select {
		case <-time.After(d.pacing):
		case <-ctx.Done():
			// A cancel during the wait that follows the last target
			// interrupts nothing; the run already attempted everyone.
			if i < len(targets)-1 {
				report.Aborted = true
				logger.Warnf("Campaign %d cancelled during pacing after %d attempts", campaign.ID, report.Attempted)
				return report, nil
			}
		}
	}

	logger.Infof("Campaign %d run complete: %d sent, %d failed, %d skipped",
		campaign.ID, report.Sent, report.Failed, report.Skipped)

	return report, nil
}

func renderMessage(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}
