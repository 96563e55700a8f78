// Package exclusion modela las combinaciones de opciones prohibidas.
//
// Una regla solo "dispara" cuando elegir una opción haría que todas las
// opciones de la regla estuvieran seleccionadas a la vez. Cada regla se evalúa
// de forma independiente, O(reglas × tamaño de regla).
package exclusion

import (
	"context"

	"custom-shop/internal/apperror"
	"custom-shop/internal/models"
)

// MinPairs es la cardinalidad mínima de una regla.
const MinPairs = 2

// References resuelve atributos y opciones durante la validación.
type References interface {
	GetAttribute(ctx context.Context, id string) (models.Attribute, error)
	GetOption(ctx context.Context, id string) (models.Option, error)
}

// ValidatePairs comprueba una regla antes de persistirla:
// al menos dos pares, cada atributo del tipo de producto indicado, cada opción
// de su atributo y ningún atributo repetido.
func ValidatePairs(ctx context.Context, refs References, productTypeID string, pairs []models.RulePair) error {
	const op = "exclusion.validate"

	if len(pairs) < MinPairs {
		return apperror.Validation(op,
			"each exclusion rule must have at least %d attribute-option pairs, got %d", MinPairs, len(pairs))
	}

	seen := make(models.IDSet, len(pairs))
	for _, pair := range pairs {
		attr, err := refs.GetAttribute(ctx, pair.AttributeID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.Validation(op, "attribute not found with ID: %s", pair.AttributeID)
			}
			return err
		}
		if attr.ProductTypeID != productTypeID {
			return apperror.Validation(op,
				"attribute with ID %s does not belong to product type %s", attr.ID, productTypeID)
		}
		if seen.Has(attr.ID) {
			return apperror.Validation(op, "attribute with ID %s appears more than once in the rule", attr.ID)
		}
		seen.Add(attr.ID)

		opt, err := refs.GetOption(ctx, pair.OptionID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.Validation(op, "attribute option not found with ID: %s", pair.OptionID)
			}
			return err
		}
		if opt.AttributeID != attr.ID {
			return apperror.Validation(op,
				"option with ID %s does not belong to the attribute with ID %s", opt.ID, attr.ID)
		}
	}
	return nil
}

// Forbidden devuelve las opciones de requestedAttributeID que completarían
// alguna regla si se sumaran a selected.
func Forbidden(selected []string, requestedAttributeID string, rules []models.ExclusionRule) models.IDSet {
	forbidden := make(models.IDSet)
	for _, rule := range rules {
		candidate, ok := optionFor(rule, requestedAttributeID)
		if !ok {
			continue
		}
		chosen := models.NewIDSet(selected...)
		chosen.Add(candidate)
		if chosen.ContainsAll(rule.OptionIDs()) {
			forbidden.Add(candidate)
		}
	}
	return forbidden
}

// Violations devuelve los ids de las reglas cuyas opciones están todas en selected.
func Violations(selected []string, rules []models.ExclusionRule) []string {
	chosen := models.NewIDSet(selected...)
	var violated []string
	for _, rule := range rules {
		if len(rule.Pairs) == 0 {
			continue
		}
		if chosen.ContainsAll(rule.OptionIDs()) {
			violated = append(violated, rule.ID)
		}
	}
	return violated
}

func optionFor(rule models.ExclusionRule, attributeID string) (string, bool) {
	for _, pair := range rule.Pairs {
		if pair.AttributeID == attributeID {
			return pair.OptionID, true
		}
	}
	return "", false
}
