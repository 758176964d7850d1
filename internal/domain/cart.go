package domain

import "time"

// CartItem is one product line in a session's cart. Name and price are
// snapshots taken when the item was added, so later catalog edits don't
// silently reprice carts.
type CartItem struct {
	SessionID  string    `json:"-" dynamodbav:"session_id"`
	ProductID  string    `json:"product_id" dynamodbav:"product_id"`
	Name       string    `json:"name" dynamodbav:"name"`
	PriceCents int64     `json:"price_cents" dynamodbav:"price_cents"`
	Quantity   int       `json:"quantity" dynamodbav:"quantity"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
}

type SetCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=999"`
}
