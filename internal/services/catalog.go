package services

import (
	"context"
	"time"

	"custom-shop/internal/apperror"
	"custom-shop/internal/exclusion"
	"custom-shop/internal/models"
	"custom-shop/internal/overrides"
	"custom-shop/internal/repository"
)

// attributeWithOptions es un atributo con sus opciones cargadas, en orden.
type attributeWithOptions struct {
	models.Attribute
	Options []models.Option
}

func loadOptions(ctx context.Context, store repository.CatalogStore, attr models.Attribute) ([]models.Option, error) {
	opts := make([]models.Option, 0, len(attr.OptionIDs))
	for _, id := range attr.OptionIDs {
		opt, err := store.GetOption(ctx, id)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func loadAttributes(ctx context.Context, store repository.CatalogStore, pt models.ProductType) ([]attributeWithOptions, error) {
	out := make([]attributeWithOptions, 0, len(pt.AttributeIDs))
	for _, id := range pt.AttributeIDs {
		attr, err := store.GetAttribute(ctx, id)
		if err != nil {
			return nil, err
		}
		opts, err := loadOptions(ctx, store, attr)
		if err != nil {
			return nil, err
		}
		out = append(out, attributeWithOptions{Attribute: attr, Options: opts})
	}
	return out, nil
}

// attributeOfType resuelve un atributo referenciado en la entrada y exige
// que pertenezca al tipo de producto.
func attributeOfType(ctx context.Context, store repository.CatalogStore, op string, pt models.ProductType, attributeID string) (models.Attribute, error) {
	attr, err := store.GetAttribute(ctx, attributeID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return models.Attribute{}, apperror.Validation(op, "attribute not found with ID: %s", attributeID)
		}
		return models.Attribute{}, err
	}
	if attr.ProductTypeID != pt.ID {
		return models.Attribute{}, apperror.Validation(op,
			"attribute with ID %s does not belong to product type %s", attributeID, pt.ID)
	}
	return attr, nil
}

// optionOfType resuelve una opción y su atributo dentro del tipo de producto.
func optionOfType(ctx context.Context, store repository.CatalogStore, op string, pt models.ProductType, optionID string) (models.Option, models.Attribute, error) {
	opt, err := store.GetOption(ctx, optionID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return models.Option{}, models.Attribute{}, apperror.Validation(op, "invalid option ID: %s", optionID)
		}
		return models.Option{}, models.Attribute{}, err
	}
	attr, err := store.GetAttribute(ctx, opt.AttributeID)
	if err != nil {
		return models.Option{}, models.Attribute{}, err
	}
	if attr.ProductTypeID != pt.ID {
		return models.Option{}, models.Attribute{}, apperror.Validation(op,
			"option with ID %s does not belong to product type %s", optionID, pt.ID)
	}
	return opt, attr, nil
}

// activeRules devuelve las reglas de tipo y de producto que siguen vigentes
// para el producto, en ese orden.
func activeRules(ctx context.Context, store repository.CatalogStore, snap overrides.Snapshot, product models.Product) (typeRules, productRules []models.ExclusionRule, err error) {
	typeLevel, err := store.FindTypeLevelRules(ctx, product.ProductTypeID)
	if err != nil {
		return nil, nil, err
	}
	productLevel, err := store.FindProductLevelRules(ctx, product.ID)
	if err != nil {
		return nil, nil, err
	}
	return snap.ActiveRules(typeLevel), snap.ActiveRules(productLevel), nil
}

// buildRules valida todo el lote antes de crear ninguna regla.
func buildRules(ctx context.Context, store repository.CatalogStore, scope models.RuleScope, productTypeID, productID string, batch [][]models.RulePair, now func() time.Time) ([]models.ExclusionRule, error) {
	for _, pairs := range batch {
		if err := exclusion.ValidatePairs(ctx, store, productTypeID, pairs); err != nil {
			return nil, err
		}
	}
	rules := make([]models.ExclusionRule, 0, len(batch))
	for _, pairs := range batch {
		rules = append(rules, models.ExclusionRule{
			ID:            store.NewID(),
			Scope:         scope,
			ProductTypeID: productTypeID,
			ProductID:     productID,
			Pairs:         append([]models.RulePair(nil), pairs...),
			CreatedAt:     now(),
		})
	}
	return rules, nil
}
