package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType names a committed marketplace instruction. It doubles as the
// routing key when events are published.
type EventType string

const (
	EventCampaignCreated       EventType = "campaign.created"
	EventCampaignUpdated       EventType = "campaign.updated"
	EventCampaignAccepted      EventType = "campaign.accepted"
	EventCampaignFulfilled     EventType = "campaign.fulfilled"
	EventCampaignDiscarded     EventType = "campaign.discarded"
	EventOpenCampaignCreated   EventType = "open_campaign.created"
	EventOpenCampaignCompleted EventType = "open_campaign.completed"
)

// Event is emitted after an instruction commits.
type Event struct {
	Type       EventType        `json:"type"`
	RequestID  string           `json:"request_id"`
	Address    solana.PublicKey `json:"address"`
	CampaignID uint64           `json:"campaign_id"`
	Actor      solana.PublicKey `json:"actor"`
	Status     string           `json:"status"`
	Transfers  []Transfer       `json:"transfers,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
