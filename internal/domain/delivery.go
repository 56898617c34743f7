package domain

import "time"

type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "pending"
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
)

// Terminal reports whether a status can never change again. Only Sent is
// terminal; Failed rows stay eligible for reprocessing.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusSent
}

// DeliveryRecord tracks the outcome of sending one campaign's message to one
// recipient. Exactly one record exists per (campaign, recipient) pair; a
// reprocessing pass updates the record in place. The phone number is
// denormalized so the audit trail survives later edits to the recipient.
type DeliveryRecord struct {
	ID          int64          `db:"id" json:"id"`
	CampaignID  int64          `db:"campaign_id" json:"campaignId"`
	RecipientID int64          `db:"recipient_id" json:"recipientId"`
	Phone       string         `db:"phone" json:"phone"`
	Status      DeliveryStatus `db:"status" json:"status"`
	AttemptedAt *time.Time     `db:"attempted_at" json:"attemptedAt,omitempty"`
	ErrorReason *string        `db:"error_reason" json:"errorReason,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// StatusCounts is the sent/failed/pending breakdown for one campaign.
type StatusCounts struct {
	Sent    int64 `db:"sent" json:"sent"`
	Failed  int64 `db:"failed" json:"failed"`
	Pending int64 `db:"pending" json:"pending"`
}

// SendOutcome is the fixed contract at the provider-client boundary. Any real
// gateway response is adapted into this shape at the edge; the engine never
// inspects provider-specific payloads.
type SendOutcome struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"errorCode,omitempty"`
}
