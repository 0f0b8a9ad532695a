package models

// FeedItemType определяет тип элемента ленты
type FeedItemType string

const (
	FeedItemProduct     FeedItemType = "product"
	FeedItemPost        FeedItemType = "post"
	FeedItemLoanRequest FeedItemType = "loan_request"
)

// FeedItem — невоплощаемая в БД проекция элемента ленты.
// Ровно одно из полей Item / Post / LoanRequest заполнено, согласно ItemType.
type FeedItem struct {
	ItemType    FeedItemType     `json:"item_type"`
	Item        *Item            `json:"item,omitempty"`
	Post        *Post            `json:"post,omitempty"`
	LoanRequest *ExchangeRequest `json:"loan_request,omitempty"`
	IsNew       bool             `json:"is_new"`
	IsSeen      bool             `json:"is_seen"`
}
