package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"custom-shop/internal/models"
	"custom-shop/internal/repository"
)

func steppingClock() Clock {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

// bicycle arma el catálogo de prueba: Frame Finish {Matte,
// Shiny}, Wheels {Road, Cruiser} y la regla Matte + Cruiser.
type bicycle struct {
	store        *repository.MemoryStore
	types        *ProductTypeService
	products     *ProductService
	availability *AvailabilityService
	cart         *CartService

	pt      models.ProductType
	finish  models.Attribute
	wheels  models.Attribute
	matte   string
	shiny   string
	road    string
	cruiser string
	rule    models.ExclusionRule
}

func newBicycle(t *testing.T) *bicycle {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	clock := steppingClock()

	b := &bicycle{
		store:        store,
		types:        NewProductTypeService(ProductTypeServiceDeps{Store: store, Clock: clock}),
		products:     NewProductService(ProductServiceDeps{Store: store, Clock: clock}),
		availability: NewAvailabilityService(AvailabilityServiceDeps{Store: store}),
		cart:         NewCartService(CartServiceDeps{Store: store, Clock: clock}),
	}

	pt, err := b.types.Create(ctx, CreateProductTypeCommand{Name: "Bicycle", Customization: "customizable"})
	require.NoError(t, err)
	attrs, err := b.types.AddAttributes(ctx, pt.ID, []NewAttribute{
		{Name: "Frame Finish", Options: []string{"Matte", "Shiny"}},
		{Name: "Wheels", Options: []string{"Road", "Cruiser"}},
	})
	require.NoError(t, err)
	require.Len(t, attrs, 2)

	b.finish, b.wheels = attrs[0], attrs[1]
	b.matte, b.shiny = b.finish.OptionIDs[0], b.finish.OptionIDs[1]
	b.road, b.cruiser = b.wheels.OptionIDs[0], b.wheels.OptionIDs[1]

	rules, err := b.types.AddExclusionRules(ctx, pt.ID, [][]models.RulePair{b.matteCruiser()})
	require.NoError(t, err)
	b.rule = rules[0]

	b.pt, err = store.GetProductType(ctx, pt.ID)
	require.NoError(t, err)
	return b
}

func (b *bicycle) matteCruiser() []models.RulePair {
	return []models.RulePair{
		{AttributeID: b.finish.ID, OptionID: b.matte},
		{AttributeID: b.wheels.ID, OptionID: b.cruiser},
	}
}

func (b *bicycle) createProduct(t *testing.T, ov ProductOverrides) models.Product {
	t.Helper()
	p, err := b.products.Create(context.Background(), CreateProductCommand{
		Name:          "Trail Bike",
		SKU:           "BIKE-001",
		Price:         decimal.RequireFromString("499.90"),
		ProductTypeID: b.pt.ID,
		Overrides:     ov,
	})
	require.NoError(t, err)
	return p
}

func optionNames(opts []OptionView) []string {
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return names
}
