package domain

import "time"

type Product struct {
	ProductID   string    `json:"id" dynamodbav:"product_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description" dynamodbav:"description"`
	PriceCents  int64     `json:"price_cents" dynamodbav:"price_cents"`
	ImageObject string    `json:"-" dynamodbav:"image_object"`
	ImageURL    *string   `json:"image_url,omitempty" dynamodbav:"-"`
	Enable      bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	PriceCents  int64   `json:"price_cents" validate:"required,min=1"`
	ImageBase64 *string `json:"image_base64"`
	ImageName   *string `json:"image_name"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,min=1"`
	Enable      *bool   `json:"enable"`
}
