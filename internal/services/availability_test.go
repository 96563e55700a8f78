package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custom-shop/internal/apperror"
	"custom-shop/internal/models"
)

func TestAvailabilityExcludesForbiddenCombination(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{})

	got, err := b.availability.AvailableOptions(context.Background(), p.ID, b.wheels.ID, []string{b.matte})
	require.NoError(t, err)
	assert.Equal(t, b.wheels.ID, got.AttributeID)
	assert.Equal(t, "Wheels", got.AttributeName)
	assert.Equal(t, []string{"Road"}, optionNames(got.Options))
}

func TestAvailabilityWithoutSelectionReturnsAllOptions(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{})

	got, err := b.availability.AvailableOptions(context.Background(), p.ID, b.wheels.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Road", "Cruiser"}, optionNames(got.Options))

	got, err = b.availability.AvailableOptions(context.Background(), p.ID, b.wheels.ID, []string{b.shiny})
	require.NoError(t, err)
	assert.Equal(t, []string{"Road", "Cruiser"}, optionNames(got.Options))
}

func TestAvailabilitySkipsOutOfStockOption(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{OutOfStockOptions: []string{b.road}})

	got, err := b.availability.AvailableOptions(context.Background(), p.ID, b.wheels.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cruiser"}, optionNames(got.Options))

	got, err = b.availability.AvailableOptions(context.Background(), p.ID, b.wheels.ID, []string{b.matte})
	require.NoError(t, err)
	assert.Empty(t, got.Options)
	assert.NotNil(t, got.Options)
}

func TestAvailabilityDeactivatedProductRuleLeavesTypeRule(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{ExclusionRules: [][]models.RulePair{b.matteCruiser()}})
	ctx := context.Background()

	productRules, err := b.store.FindProductLevelRules(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, productRules, 1)
	require.NoError(t, b.products.DeactivateExclusionRules(ctx, p.ID, []string{productRules[0].ID}))

	got, err := b.availability.AvailableOptions(ctx, p.ID, b.wheels.ID, []string{b.matte})
	require.NoError(t, err)
	assert.Equal(t, []string{"Road"}, optionNames(got.Options))

	details, err := b.products.Details(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, details.ProductRules, 1)
	assert.False(t, details.ProductRules[0].Active)
	require.Len(t, details.TypeRules, 1)
	assert.True(t, details.TypeRules[0].Active)
}

func TestAvailabilityDeactivatedTypeRuleNoLongerFilters(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{DeactivatedRules: []string{b.rule.ID}})

	got, err := b.availability.AvailableOptions(context.Background(), p.ID, b.wheels.ID, []string{b.matte})
	require.NoError(t, err)
	assert.Equal(t, []string{"Road", "Cruiser"}, optionNames(got.Options))
}

func TestAvailabilityAppliesDeactivations(t *testing.T) {
	b := newBicycle(t)
	ctx := context.Background()

	p := b.createProduct(t, ProductOverrides{DeactivatedOptions: []string{b.road}})
	got, err := b.availability.AvailableOptions(ctx, p.ID, b.wheels.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cruiser"}, optionNames(got.Options))

	q := b.createProduct(t, ProductOverrides{DeactivatedAttributes: []string{b.wheels.ID}})
	got, err = b.availability.AvailableOptions(ctx, q.ID, b.wheels.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Options)
}

func TestAvailabilityIsIdempotent(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{OutOfStockOptions: []string{b.road}})
	ctx := context.Background()

	first, err := b.availability.AvailableOptions(ctx, p.ID, b.wheels.ID, []string{b.shiny})
	require.NoError(t, err)
	second, err := b.availability.AvailableOptions(ctx, p.ID, b.wheels.ID, []string{b.shiny})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAvailabilityRuleProperty(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{})
	ctx := context.Background()

	// Cruiser solo se excluye cuando Matte está elegido.
	cases := map[string]bool{b.matte: false, b.shiny: true}
	for selected, cruiserAvailable := range cases {
		got, err := b.availability.AvailableOptions(ctx, p.ID, b.wheels.ID, []string{selected})
		require.NoError(t, err)
		assert.Equal(t, cruiserAvailable, contains(optionNames(got.Options), "Cruiser"), "selected %s", selected)
		assert.Contains(t, optionNames(got.Options), "Road")
	}

	got, err := b.availability.AvailableOptions(ctx, p.ID, b.finish.ID, []string{b.cruiser})
	require.NoError(t, err)
	assert.Equal(t, []string{"Shiny"}, optionNames(got.Options))
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestAvailabilityRejectsInvalidInput(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{})
	ctx := context.Background()

	other, err := b.types.Create(ctx, CreateProductTypeCommand{Name: "Skis", Customization: "customizable"})
	require.NoError(t, err)
	skiAttrs, err := b.types.AddAttributes(ctx, other.ID, []NewAttribute{{Name: "Length", Options: []string{"170", "180"}}})
	require.NoError(t, err)

	tests := []struct {
		name      string
		productID string
		attrID    string
		selected  []string
		kind      apperror.Kind
		message   string
	}{
		{"unknown product", "missing", b.wheels.ID, nil, apperror.KindNotFound, "product not found"},
		{"unknown attribute", p.ID, "missing", nil, apperror.KindNotFound, "attribute not found"},
		{"attribute of another type", p.ID, skiAttrs[0].ID, nil, apperror.KindValidation, "does not belong to product type"},
		{"unknown option", p.ID, b.wheels.ID, []string{"ghost"}, apperror.KindValidation, "invalid option ID: ghost"},
		{"option of another type", p.ID, b.wheels.ID, []string{skiAttrs[0].OptionIDs[0]}, apperror.KindValidation, "does not belong to product type"},
		{"two options of one attribute", p.ID, b.wheels.ID, []string{b.matte, b.shiny}, apperror.KindValidation,
			"Multiple options selected for the same attribute: " + b.finish.ID},
		{"option of requested attribute", p.ID, b.wheels.ID, []string{b.road}, apperror.KindValidation,
			"Selected option belongs to the requested attribute: " + b.road},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.availability.AvailableOptions(ctx, tt.productID, tt.attrID, tt.selected)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
