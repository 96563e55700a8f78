package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product instancia un tipo de producto. Los overrides y las reglas propias
// se guardan aparte, indexados por ProductID.
type Product struct {
	ID            string          `json:"id" bson:"_id"`
	SKU           string          `json:"sku" bson:"sku"`
	Name          string          `json:"name" bson:"name"`
	Description   string          `json:"description,omitempty" bson:"description,omitempty"`
	Price         decimal.Decimal `json:"price" bson:"price"`
	MainImage     string          `json:"main_image,omitempty" bson:"main_image,omitempty"`
	Gallery       []string        `json:"gallery" bson:"gallery"`
	ProductTypeID string          `json:"product_type_id" bson:"product_type_id"`
	RuleIDs       []string        `json:"rule_ids" bson:"rule_ids"`
	CreatedAt     time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" bson:"updated_at"`
}

// AttributeOverride desactiva un atributo solo para un producto.
type AttributeOverride struct {
	ID          string `json:"id" bson:"_id"`
	ProductID   string `json:"product_id" bson:"product_id"`
	AttributeID string `json:"attribute_id" bson:"attribute_id"`
	Active      bool   `json:"active" bson:"active"`
}

// OptionOverride es único por (producto, opción). Active y OutOfStock son
// independientes: una opción puede estar activa y agotada.
type OptionOverride struct {
	ID         string `json:"id" bson:"_id"`
	ProductID  string `json:"product_id" bson:"product_id"`
	OptionID   string `json:"option_id" bson:"option_id"`
	Active     bool   `json:"active" bson:"active"`
	OutOfStock bool   `json:"out_of_stock" bson:"out_of_stock"`
}

// ExclusionOverride suprime una regla de exclusión para un producto.
type ExclusionOverride struct {
	ID        string `json:"id" bson:"_id"`
	ProductID string `json:"product_id" bson:"product_id"`
	RuleID    string `json:"rule_id" bson:"rule_id"`
	Active    bool   `json:"active" bson:"active"`
}
