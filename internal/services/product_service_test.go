package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"custom-shop/internal/apperror"
	"custom-shop/internal/models"
	"custom-shop/internal/repository"
	"custom-shop/internal/storage/mocks"
)

func upload(name, body string) Upload {
	return Upload{Name: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}}
}

func TestCreateProductStoresImagesBestEffort(t *testing.T) {
	b := newBicycle(t)
	ctrl := gomock.NewController(t)
	images := mocks.NewMockImageStore(ctrl)
	svc := NewProductService(ProductServiceDeps{Store: b.store, Images: images, Clock: steppingClock()})

	images.EXPECT().Store(gomock.Any(), gomock.Any(), "main.png").Return("/api/files/1_main.png", nil)
	images.EXPECT().Store(gomock.Any(), gomock.Any(), "side.png").Return("", errors.New("disk full"))
	images.EXPECT().Store(gomock.Any(), gomock.Any(), "back.png").Return("/api/files/2_back.png", nil)

	broken := Upload{Name: "broken.png", Open: func() (io.ReadCloser, error) { return nil, errors.New("closed") }}
	p, err := svc.Create(context.Background(), CreateProductCommand{
		Name:          "City Bike",
		SKU:           "BIKE-002",
		Price:         decimal.RequireFromString("350"),
		ProductTypeID: b.pt.ID,
		MainImage:     &Upload{Name: "main.png", Open: upload("main.png", "x").Open},
		Gallery:       []Upload{upload("side.png", "y"), broken, upload("back.png", "z")},
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/files/1_main.png", p.MainImage)
	assert.Equal(t, []string{"/api/files/2_back.png"}, p.Gallery)

	stored, err := b.store.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("350").Equal(stored.Price))
}

func TestCreateProductValidation(t *testing.T) {
	b := newBicycle(t)
	ctx := context.Background()

	_, err := b.products.Create(ctx, CreateProductCommand{SKU: "X", ProductTypeID: b.pt.ID})
	assert.True(t, apperror.IsValidation(err))

	_, err = b.products.Create(ctx, CreateProductCommand{
		Name: "Bike", SKU: "X", ProductTypeID: b.pt.ID, Price: decimal.NewFromInt(-1),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price must not be negative")

	_, err = b.products.Create(ctx, CreateProductCommand{Name: "Bike", SKU: "X", ProductTypeID: "missing"})
	assert.True(t, apperror.IsNotFound(err))

	blank := []struct {
		name string
		cmd  CreateProductCommand
		msg  string
	}{
		{"blank name", CreateProductCommand{Name: "  ", SKU: "X", ProductTypeID: b.pt.ID}, "Name must not be blank"},
		{"blank sku", CreateProductCommand{Name: "Bike", SKU: "\t ", ProductTypeID: b.pt.ID}, "SKU must not be blank"},
		{"blank product type", CreateProductCommand{Name: "Bike", SKU: "X", ProductTypeID: " "}, "ProductTypeID must not be blank"},
	}
	for _, tt := range blank {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.products.Create(ctx, tt.cmd)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	products, err := b.store.ListProducts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestCreateProductIsAtomic(t *testing.T) {
	b := newBicycle(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ov   ProductOverrides
		msg  string
	}{
		{"unknown out-of-stock option", ProductOverrides{
			DeactivatedAttributes: []string{b.finish.ID},
			OutOfStockOptions:     []string{"ghost"},
		}, "invalid option ID: ghost"},
		{"unknown attribute", ProductOverrides{DeactivatedAttributes: []string{"ghost"}}, "attribute not found with ID: ghost"},
		{"unknown rule", ProductOverrides{
			DeactivatedOptions: []string{b.road},
			DeactivatedRules:   []string{"ghost"},
		}, "exclusion rule not found with ID: ghost"},
		{"invalid product rule", ProductOverrides{
			DeactivatedRules: []string{b.rule.ID},
			ExclusionRules:   [][]models.RulePair{{{AttributeID: b.finish.ID, OptionID: b.matte}}},
		}, "at least 2 attribute-option pairs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.products.Create(ctx, CreateProductCommand{
				Name: "Bike", SKU: "X", ProductTypeID: b.pt.ID, Overrides: tt.ov,
			})
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	products, err := b.store.ListProducts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestCreateProductMergesOptionOverrides(t *testing.T) {
	b := newBicycle(t)
	p := b.createProduct(t, ProductOverrides{
		DeactivatedOptions: []string{b.road},
		OutOfStockOptions:  []string{b.road, b.cruiser},
	})

	overrides, err := b.store.FindOptionOverrides(context.Background(), p.ID, repository.OverrideFilter{})
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	byOption := map[string]models.OptionOverride{}
	for _, o := range overrides {
		byOption[o.OptionID] = o
	}
	assert.False(t, byOption[b.road].Active)
	assert.True(t, byOption[b.road].OutOfStock)
	assert.True(t, byOption[b.cruiser].Active)
	assert.True(t, byOption[b.cruiser].OutOfStock)
}

func TestProductDetailsViews(t *testing.T) {
	b := newBicycle(t)
	ctx := context.Background()
	p := b.createProduct(t, ProductOverrides{
		DeactivatedOptions:    []string{b.shiny},
		OutOfStockOptions:     []string{b.road},
		DeactivatedAttributes: []string{b.wheels.ID},
		DeactivatedRules:      []string{b.rule.ID},
	})

	admin, err := b.products.Details(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trail Bike", admin.Name)
	assert.Equal(t, "Bicycle", admin.ProductType.Name)
	require.Len(t, admin.Attributes, 2)
	assert.True(t, admin.Attributes[0].Active)
	assert.False(t, admin.Attributes[0].Options[1].Active)
	assert.False(t, admin.Attributes[1].Active)
	assert.True(t, admin.Attributes[1].Options[0].OutOfStock)
	require.Len(t, admin.TypeRules, 1)
	assert.False(t, admin.TypeRules[0].Active)

	customer, err := b.products.CustomerDetails(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, customer.Attributes, 1)
	assert.Equal(t, []ProductOptionView{{ID: b.matte, Name: "Matte", Active: true}}, customer.Attributes[0].Options)
	assert.Empty(t, customer.TypeRules)

	_, err = b.products.Details(ctx, "missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeactivateExclusionRulesChecksOwnership(t *testing.T) {
	b := newBicycle(t)
	ctx := context.Background()
	p := b.createProduct(t, ProductOverrides{})
	other := b.createProduct(t, ProductOverrides{ExclusionRules: [][]models.RulePair{b.matteCruiser()}})

	otherRules, err := b.store.FindProductLevelRules(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, otherRules, 1)

	err = b.products.DeactivateExclusionRules(ctx, p.ID, []string{otherRules[0].ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not apply to product "+p.ID)

	assert.True(t, apperror.IsValidation(b.products.DeactivateExclusionRules(ctx, p.ID, nil)))
	assert.True(t, apperror.IsNotFound(b.products.DeactivateExclusionRules(ctx, "missing", []string{b.rule.ID})))

	// desactivar dos veces no duplica el override
	require.NoError(t, b.products.DeactivateExclusionRules(ctx, p.ID, []string{b.rule.ID}))
	require.NoError(t, b.products.DeactivateExclusionRules(ctx, p.ID, []string{b.rule.ID}))
	found, err := b.store.FindExclusionOverrides(ctx, p.ID, repository.OverrideFilter{})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestAddProductExclusionRules(t *testing.T) {
	b := newBicycle(t)
	ctx := context.Background()
	p := b.createProduct(t, ProductOverrides{})

	created, err := b.products.AddProductExclusionRules(ctx, p.ID, [][]models.RulePair{{
		{AttributeID: b.finish.ID, OptionID: b.shiny},
		{AttributeID: b.wheels.ID, OptionID: b.road},
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, models.RuleScopeProduct, created[0].Scope)
	assert.Equal(t, p.ID, created[0].ProductID)

	stored, err := b.store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{created[0].ID}, stored.RuleIDs)

	got, err := b.availability.AvailableOptions(ctx, p.ID, b.wheels.ID, []string{b.shiny})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cruiser"}, optionNames(got.Options))

	_, err = b.products.AddProductExclusionRules(ctx, p.ID, nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestDeleteProductCascades(t *testing.T) {
	b := newBicycle(t)
	ctx := context.Background()
	p := b.createProduct(t, ProductOverrides{
		DeactivatedAttributes: []string{b.finish.ID},
		OutOfStockOptions:     []string{b.road},
		DeactivatedRules:      []string{b.rule.ID},
		ExclusionRules:        [][]models.RulePair{b.matteCruiser()},
	})

	require.NoError(t, b.products.Delete(ctx, p.ID))

	_, err := b.store.GetProduct(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
	rules, err := b.store.FindProductLevelRules(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
	opts, err := b.store.FindOptionOverrides(ctx, p.ID, repository.OverrideFilter{})
	require.NoError(t, err)
	assert.Empty(t, opts)

	// las reglas del tipo siguen ahí
	typeRules, err := b.store.FindTypeLevelRules(ctx, b.pt.ID)
	require.NoError(t, err)
	assert.Len(t, typeRules, 1)

	assert.True(t, apperror.IsNotFound(b.products.Delete(ctx, p.ID)))
}

func TestListProductsNewestFirst(t *testing.T) {
	b := newBicycle(t)
	first := b.createProduct(t, ProductOverrides{})
	second := b.createProduct(t, ProductOverrides{})

	list, err := b.products.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = b.products.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// retryingStore repite la transacción una vez, como hace Mongo ante un error transitorio.
type retryingStore struct {
	*repository.MemoryStore
}

func (s retryingStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	transient := errors.New("transient transaction error")
	_ = s.MemoryStore.RunInTx(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return transient
	})
	return s.MemoryStore.RunInTx(ctx, fn)
}

func TestAddProductExclusionRulesSurvivesRetry(t *testing.T) {
	b := newBicycle(t)
	ctx := context.Background()
	p := b.createProduct(t, ProductOverrides{})
	svc := NewProductService(ProductServiceDeps{Store: retryingStore{b.store}, Clock: steppingClock()})

	created, err := svc.AddProductExclusionRules(ctx, p.ID, [][]models.RulePair{b.matteCruiser()})
	require.NoError(t, err)
	assert.Len(t, created, 1)

	rules, err := b.store.FindProductLevelRules(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rules[0].ID, created[0].ID)
}
