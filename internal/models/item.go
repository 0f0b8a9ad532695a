package models

import (
	"time"

	"github.com/google/uuid"
)

// ExchangeType определяет, каким способом владелец готов расстаться с вещью
type ExchangeType string

const (
	ExchangeTypeTrade    ExchangeType = "trade"
	ExchangeTypeDonation ExchangeType = "donation"
	ExchangeTypeLoan     ExchangeType = "loan"
)

// Valid проверяет, что тип обмена известен
func (t ExchangeType) Valid() bool {
	return t == ExchangeTypeTrade || t == ExchangeTypeDonation || t == ExchangeTypeLoan
}

// ItemStatus определяет доступность вещи
type ItemStatus string

const (
	ItemAvailable        ItemStatus = "available"
	ItemReserved         ItemStatus = "reserved"
	ItemTraded           ItemStatus = "traded"
	ItemDonated          ItemStatus = "donated"
	ItemLoaned           ItemStatus = "loaned"
	ItemDonationAccepted ItemStatus = "donation_accepted"
	ItemLoanAccepted     ItemStatus = "loan_accepted"
)

// Historical сообщает, относится ли статус к завершенным или принятым обменам.
// Такие вещи остаются видимыми в ленте независимо от дружбы и настроек видимости.
func (s ItemStatus) Historical() bool {
	switch s {
	case ItemTraded, ItemDonated, ItemLoaned, ItemDonationAccepted, ItemLoanAccepted:
		return true
	}
	return false
}

// Item представляет вещь в системе
type Item struct {
	ID           uuid.UUID    `json:"id"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	ExchangeType ExchangeType `json:"exchange_type"`
	Status       ItemStatus   `json:"status"`
	ImageURL     string       `json:"image_url,omitempty"`

	// Заполняются при завершении обмена, для отображения истории в ленте
	ExchangedWithName  string     `json:"exchanged_with_name,omitempty"`
	ExchangedItemTitle string     `json:"exchanged_item_title,omitempty"`
	ExchangedAt        *time.Time `json:"exchanged_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Дополнительные поля для API
	Owner *User `json:"owner,omitempty"`
}
