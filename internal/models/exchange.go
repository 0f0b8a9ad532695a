package models

import (
	"time"

	"github.com/google/uuid"
)

// Variant определяет разновидность заявки на обмен
type Variant string

const (
	VariantTrade    Variant = "trade"
	VariantDonation Variant = "donation"
	VariantLoan     Variant = "loan"
)

// RequestStatus определяет статус заявки на обмен
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusOffered   RequestStatus = "offered"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusConfirmed RequestStatus = "confirmed"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal сообщает, возможны ли из статуса дальнейшие переходы
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ExchangeRequest представляет заявку на обмен любой разновидности.
// Одна структура с тегом варианта; поля, не относящиеся к варианту, остаются пустыми:
//   - trade:    FromItemID (вещь инициатора), ToItemID (вещь получателя)
//   - donation: ToItemID (вещь владельца), инициатор — проситель
//   - loan:     ItemName (свободный текст), ToUserID и FromItemID заполняются оффером
type ExchangeRequest struct {
	ID         uuid.UUID     `json:"id"`
	Variant    Variant       `json:"variant"`
	Status     RequestStatus `json:"status"`
	FromUserID uuid.UUID     `json:"from_user_id"`
	ToUserID   *uuid.UUID    `json:"to_user_id,omitempty"`
	FromItemID *uuid.UUID    `json:"from_item_id,omitempty"`
	ToItemID   *uuid.UUID    `json:"to_item_id,omitempty"`
	ItemName   string        `json:"item_name,omitempty"`
	Message    string        `json:"message,omitempty"`

	// Двухфазное подтверждение займа
	ConfirmedByRequester bool `json:"confirmed_by_requester,omitempty"`
	ConfirmedByLender    bool `json:"confirmed_by_lender,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Дополнительные поля для API
	FromUser *User     `json:"from_user,omitempty"`
	ToUser   *User     `json:"to_user,omitempty"`
	FromItem *Item     `json:"from_item,omitempty"`
	ToItem   *Item     `json:"to_item,omitempty"`
	ChatID   uuid.UUID `json:"chat_id,omitempty"`
}

// IsParty сообщает, участвует ли пользователь в заявке
func (r *ExchangeRequest) IsParty(userID uuid.UUID) bool {
	if r.FromUserID == userID {
		return true
	}
	return r.ToUserID != nil && *r.ToUserID == userID
}

// ChatAllowed сообщает, открыта ли переписка по заявке.
// Переписка доступна только после принятия заявки.
func (r *ExchangeRequest) ChatAllowed() bool {
	switch r.Status {
	case StatusAccepted, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}
