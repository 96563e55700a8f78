package services

import (
	"context"
	"strings"
	"time"

	"custom-shop/internal/apperror"
	"custom-shop/internal/models"
	"custom-shop/internal/repository"
)

// NewAttribute describe un atributo a crear con sus opciones.
type NewAttribute struct {
	Name    string   `json:"name" validate:"notblank"`
	Options []string `json:"options" validate:"required,min=1,dive,notblank"`
}

// customizationPolicy decide si un tipo de producto admite mutaciones. Las
// variantes no guardan estado por llamada.
type customizationPolicy interface {
	addAttributes(ctx context.Context, store repository.CatalogStore, pt models.ProductType, attrs []NewAttribute, now func() time.Time) ([]models.Attribute, error)
	addExclusionRules(ctx context.Context, store repository.CatalogStore, pt models.ProductType, batch [][]models.RulePair, now func() time.Time) ([]models.ExclusionRule, error)
}

// customizationPolicies cubre cada valor de models.Customizations().
var customizationPolicies = map[models.Customization]customizationPolicy{
	models.CustomizationCustomizable: customizablePolicy{},
	models.CustomizationFixed:        fixedPolicy{},
}

func policyFor(pt models.ProductType) (customizationPolicy, error) {
	policy, ok := customizationPolicies[pt.Customization]
	if !ok {
		return nil, apperror.State("product_type.policy",
			"product type %s has unknown customization %q", pt.ID, pt.Customization)
	}
	return policy, nil
}

type customizablePolicy struct{}

func (customizablePolicy) addAttributes(ctx context.Context, store repository.CatalogStore, pt models.ProductType, attrs []NewAttribute, now func() time.Time) ([]models.Attribute, error) {
	const op = "product_type.add_attributes"

	if len(attrs) == 0 {
		return nil, apperror.Validation(op, "at least one attribute must be provided")
	}
	for _, a := range attrs {
		if err := validateCommand(op, a); err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(a.Options))
		for _, name := range a.Options {
			key := strings.ToLower(strings.TrimSpace(name))
			if seen[key] {
				return nil, apperror.Validation(op, "option %q is repeated in attribute %q", name, a.Name)
			}
			seen[key] = true
		}
	}

	created := make([]models.Attribute, 0, len(attrs))
	for _, a := range attrs {
		attr := models.Attribute{
			ID:            store.NewID(),
			ProductTypeID: pt.ID,
			Name:          strings.TrimSpace(a.Name),
		}
		for _, name := range a.Options {
			opt := models.Option{ID: store.NewID(), AttributeID: attr.ID, Name: strings.TrimSpace(name)}
			if err := store.SaveOption(ctx, opt); err != nil {
				return nil, err
			}
			attr.OptionIDs = append(attr.OptionIDs, opt.ID)
		}
		if err := store.SaveAttribute(ctx, attr); err != nil {
			return nil, err
		}
		pt.AttributeIDs = append(pt.AttributeIDs, attr.ID)
		created = append(created, attr)
	}

	if err := store.SaveProductType(ctx, pt); err != nil {
		return nil, err
	}
	return created, nil
}

func (customizablePolicy) addExclusionRules(ctx context.Context, store repository.CatalogStore, pt models.ProductType, batch [][]models.RulePair, now func() time.Time) ([]models.ExclusionRule, error) {
	const op = "product_type.add_exclusion_rules"

	if len(batch) == 0 {
		return nil, apperror.Validation(op, "there must be at least one not-allowed combination provided")
	}
	rules, err := buildRules(ctx, store, models.RuleScopeProductType, pt.ID, "", batch, now)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if err := store.SaveExclusionRule(ctx, rule); err != nil {
			return nil, err
		}
		pt.RuleIDs = append(pt.RuleIDs, rule.ID)
	}
	if err := store.SaveProductType(ctx, pt); err != nil {
		return nil, err
	}
	return rules, nil
}

type fixedPolicy struct{}

func (fixedPolicy) addAttributes(context.Context, repository.CatalogStore, models.ProductType, []NewAttribute, func() time.Time) ([]models.Attribute, error) {
	return nil, apperror.State("product_type.add_attributes", "cannot modify a non-customizable product type")
}

func (fixedPolicy) addExclusionRules(context.Context, repository.CatalogStore, models.ProductType, [][]models.RulePair, func() time.Time) ([]models.ExclusionRule, error) {
	return nil, apperror.State("product_type.add_exclusion_rules", "cannot modify a non-customizable product type")
}
