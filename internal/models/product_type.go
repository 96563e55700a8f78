package models

import (
	"strings"
	"time"
)

// Customization decide si un tipo de producto admite nuevos atributos y reglas.
type Customization string

const (
	CustomizationCustomizable Customization = "customizable"
	CustomizationFixed        Customization = "fixed"
)

var customizationAliases = map[string]Customization{
	"customizable":       CustomizationCustomizable,
	"fully_customizable": CustomizationCustomizable,
	"fixed":              CustomizationFixed,
	"not_customizable":   CustomizationFixed,
}

// Customizations lista todas las variantes conocidas.
func Customizations() []Customization {
	return []Customization{CustomizationCustomizable, CustomizationFixed}
}

// ParseCustomization normaliza el valor recibido y acepta los alias heredados.
func ParseCustomization(raw string) (Customization, bool) {
	c, ok := customizationAliases[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

type ProductType struct {
	ID            string        `json:"id" bson:"_id"`
	Name          string        `json:"name" bson:"name"`
	Customization Customization `json:"customization" bson:"customization"`
	AttributeIDs  []string      `json:"attribute_ids" bson:"attribute_ids"`
	RuleIDs       []string      `json:"rule_ids" bson:"rule_ids"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
}

// Attribute es inmutable una vez creado; OptionIDs conserva el orden de alta.
type Attribute struct {
	ID            string   `json:"id" bson:"_id"`
	ProductTypeID string   `json:"product_type_id" bson:"product_type_id"`
	Name          string   `json:"name" bson:"name"`
	OptionIDs     []string `json:"option_ids" bson:"option_ids"`
}

type Option struct {
	ID          string `json:"id" bson:"_id"`
	AttributeID string `json:"attribute_id" bson:"attribute_id"`
	Name        string `json:"name" bson:"name"`
}

// RuleScope indica si una regla pertenece al tipo de producto o a un producto.
type RuleScope string

const (
	RuleScopeProductType RuleScope = "product_type"
	RuleScopeProduct     RuleScope = "product"
)

// RulePair es un par (atributo, opción) dentro de una regla de exclusión.
type RulePair struct {
	AttributeID string `json:"attribute_id" bson:"attribute_id"`
	OptionID    string `json:"option_id" bson:"option_id"`
}

// ExclusionRule prohíbe que todas sus opciones estén seleccionadas a la vez.
type ExclusionRule struct {
	ID            string     `json:"id" bson:"_id"`
	Scope         RuleScope  `json:"scope" bson:"scope"`
	ProductTypeID string     `json:"product_type_id" bson:"product_type_id"`
	ProductID     string     `json:"product_id,omitempty" bson:"product_id,omitempty"`
	Pairs         []RulePair `json:"pairs" bson:"pairs"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// OptionIDs devuelve las opciones nombradas por la regla.
func (r ExclusionRule) OptionIDs() []string {
	ids := make([]string, 0, len(r.Pairs))
	for _, p := range r.Pairs {
		ids = append(ids, p.OptionID)
	}
	return ids
}
