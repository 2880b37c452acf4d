package models

import "time"

// Course курс, доступ к которому регулируется записью или подпиской.
type Course struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Slug              string    `json:"slug"`
	ProductIdentifier string    `json:"product_identifier"` // Нормализованный идентификатор продукта
	CreatedAt         time.Time `json:"created_at"`
}

// CourseDraft используется для приёма данных из JSON-запроса на создание курса.
type CourseDraft struct {
	Title             string   `json:"title" validate:"required,max=200"`
	ProductIdentifier string   `json:"product_identifier" validate:"required,max=200"`
	StoreProductIDs   []string `json:"store_product_ids,omitempty" validate:"omitempty,dive,required,max=200"`
}
