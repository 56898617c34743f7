package domain

import "time"

type CampaignStatus string

const (
	CampaignDraft    CampaignStatus = "draft"
	CampaignSending  CampaignStatus = "sending"
	CampaignFinished CampaignStatus = "finished"
)

// Campaign is one broadcast intent: a message template, an optional media
// reference and the criteria snapshot used to select recipients. It is
// immutable after creation except for being closed once dispatch finishes.
type Campaign struct {
	ID        int64          `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Message   string         `db:"message" json:"message"`
	MediaURL  *string        `db:"media_url" json:"mediaUrl,omitempty"`
	Criteria  string         `db:"criteria" json:"criteria,omitempty"`
	Status    CampaignStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	ClosedAt  *time.Time     `db:"closed_at" json:"closedAt,omitempty"`
}

// CampaignSummary is the per-campaign delivery breakdown used by the
// status overview.
type CampaignSummary struct {
	CampaignID   int64     `db:"campaign_id" json:"campaignId"`
	CampaignName string    `db:"campaign_name" json:"campaignName"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	Sent         int64     `db:"sent" json:"sent"`
	Failed       int64     `db:"failed" json:"failed"`
	Pending      int64     `db:"pending" json:"pending"`
}
