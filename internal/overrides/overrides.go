// Package overrides combina los valores por defecto del tipo de producto con
// los overrides de cada producto. La ausencia de override significa activo y
// con stock.
package overrides

import (
	"context"
	"fmt"

	"custom-shop/internal/models"
	"custom-shop/internal/repository"
)

// Resolution es el estado efectivo de un atributo, opción o regla.
type Resolution int

const (
	NoOverride Resolution = iota
	Active
	Inactive
)

// IsActive aplica el valor por defecto: sin override, activo.
func (r Resolution) IsActive() bool { return r != Inactive }

func (r Resolution) String() string {
	switch r {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return "no_override"
	}
}

func resolve(found, active bool) Resolution {
	switch {
	case !found:
		return NoOverride
	case active:
		return Active
	default:
		return Inactive
	}
}

// Reader es el subconjunto del Catalog Store que necesita el resolver.
type Reader interface {
	FindAttributeOverrides(ctx context.Context, productID string, filter repository.OverrideFilter) ([]models.AttributeOverride, error)
	FindOptionOverrides(ctx context.Context, productID string, filter repository.OverrideFilter) ([]models.OptionOverride, error)
	FindExclusionOverrides(ctx context.Context, productID string, filter repository.OverrideFilter) ([]models.ExclusionOverride, error)
}

type Resolver struct {
	reader Reader
}

func NewResolver(reader Reader) *Resolver {
	return &Resolver{reader: reader}
}

// Resolve lee los overrides actuales del producto. Es una lectura pura.
func (r *Resolver) Resolve(ctx context.Context, productID string) (Snapshot, error) {
	attrs, err := r.reader.FindAttributeOverrides(ctx, productID, repository.OverrideFilter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading attribute overrides: %w", err)
	}
	opts, err := r.reader.FindOptionOverrides(ctx, productID, repository.OverrideFilter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading option overrides: %w", err)
	}
	rules, err := r.reader.FindExclusionOverrides(ctx, productID, repository.OverrideFilter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading exclusion overrides: %w", err)
	}
	return NewSnapshot(attrs, opts, rules), nil
}

// Snapshot es el estado de overrides de un producto en un instante.
type Snapshot struct {
	attributes map[string]bool
	options    map[string]models.OptionOverride
	rules      map[string]bool
}

// NewSnapshot indexa los overrides. Si hay varios registros para el mismo
// elemento, gana la desactivación.
func NewSnapshot(attrs []models.AttributeOverride, opts []models.OptionOverride, rules []models.ExclusionOverride) Snapshot {
	s := Snapshot{
		attributes: make(map[string]bool, len(attrs)),
		options:    make(map[string]models.OptionOverride, len(opts)),
		rules:      make(map[string]bool, len(rules)),
	}
	for _, o := range attrs {
		prev, seen := s.attributes[o.AttributeID]
		s.attributes[o.AttributeID] = o.Active && (!seen || prev)
	}
	for _, o := range opts {
		if prev, seen := s.options[o.OptionID]; seen {
			o.Active = o.Active && prev.Active
			o.OutOfStock = o.OutOfStock || prev.OutOfStock
		}
		s.options[o.OptionID] = o
	}
	for _, o := range rules {
		prev, seen := s.rules[o.RuleID]
		s.rules[o.RuleID] = o.Active && (!seen || prev)
	}
	return s
}

func (s Snapshot) Attribute(attributeID string) Resolution {
	active, found := s.attributes[attributeID]
	return resolve(found, active)
}

func (s Snapshot) Option(optionID string) Resolution {
	o, found := s.options[optionID]
	return resolve(found, o.Active)
}

// OutOfStock es independiente de Option: una opción activa puede estar agotada.
func (s Snapshot) OutOfStock(optionID string) bool {
	return s.options[optionID].OutOfStock
}

func (s Snapshot) Rule(ruleID string) Resolution {
	active, found := s.rules[ruleID]
	return resolve(found, active)
}

func (s Snapshot) DeactivatedAttributes() models.IDSet {
	out := make(models.IDSet)
	for id := range s.attributes {
		if !s.Attribute(id).IsActive() {
			out.Add(id)
		}
	}
	return out
}

func (s Snapshot) DeactivatedOptions() models.IDSet {
	out := make(models.IDSet)
	for id := range s.options {
		if !s.Option(id).IsActive() {
			out.Add(id)
		}
	}
	return out
}

func (s Snapshot) OutOfStockOptions() models.IDSet {
	out := make(models.IDSet)
	for id, o := range s.options {
		if o.OutOfStock {
			out.Add(id)
		}
	}
	return out
}

// ActiveRules descarta las reglas desactivadas para el producto.
func (s Snapshot) ActiveRules(rules []models.ExclusionRule) []models.ExclusionRule {
	active := make([]models.ExclusionRule, 0, len(rules))
	for _, rule := range rules {
		if s.Rule(rule.ID).IsActive() {
			active = append(active, rule)
		}
	}
	return active
}
