package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind определяет тип события жизненного цикла
type NotificationKind string

const (
	NotifyDonationRequested NotificationKind = "donation_requested"
	NotifyDonationAccepted  NotificationKind = "donation_accepted"
	NotifyDonationConfirmed NotificationKind = "donation_confirmed"
	NotifyTradeRequested    NotificationKind = "trade_requested"
	NotifyTradeAccepted     NotificationKind = "trade_accepted"
	NotifyTradeCompleted    NotificationKind = "trade_completed"
	NotifyLoanOffered       NotificationKind = "loan_offered"
	NotifyLoanAccepted      NotificationKind = "loan_accepted"
	NotifyLoanConfirmed     NotificationKind = "loan_confirmed"
)

// Notification представляет уведомление о событии жизненного цикла
type Notification struct {
	ID         uuid.UUID        `json:"id"`
	ToUserID   uuid.UUID        `json:"to_user_id"`
	FromUserID *uuid.UUID       `json:"from_user_id,omitempty"`
	Kind       NotificationKind `json:"kind"`
	Title      string           `json:"title"`
	Body       string           `json:"body,omitempty"`
	RelatedID  *uuid.UUID       `json:"related_id,omitempty"`
	IsRead     bool             `json:"is_read"`
	CreatedAt  time.Time        `json:"created_at"`
}
