package models

import "time"

// CartItem referencia el producto y las opciones solo por id.
type CartItem struct {
	ID         string          `json:"id" bson:"_id"`
	ProductID  string          `json:"product_id" bson:"product_id"`
	Selections []CartSelection `json:"selections" bson:"selections"`
	Quantity   int             `json:"quantity" bson:"quantity"`
	Label      string          `json:"label" bson:"label"`
	CreatedAt  time.Time       `json:"created_at" bson:"created_at"`
}

type CartSelection struct {
	AttributeID string `json:"attribute_id" bson:"attribute_id"`
	OptionID    string `json:"option_id" bson:"option_id"`
}
