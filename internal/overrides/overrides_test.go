package overrides

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custom-shop/internal/models"
	"custom-shop/internal/repository"
)

func TestResolutionDefaults(t *testing.T) {
	s := NewSnapshot(nil, nil, nil)

	assert.Equal(t, NoOverride, s.Attribute("frame"))
	assert.True(t, s.Attribute("frame").IsActive())
	assert.Equal(t, NoOverride, s.Option("matte"))
	assert.False(t, s.OutOfStock("matte"))
	assert.True(t, s.Rule("r1").IsActive())
	assert.Empty(t, s.DeactivatedAttributes())
}

func TestOutOfStockIsIndependentOfActive(t *testing.T) {
	s := NewSnapshot(nil, []models.OptionOverride{
		{ID: "1", ProductID: "p", OptionID: "road", Active: true, OutOfStock: true},
		{ID: "2", ProductID: "p", OptionID: "cruiser", Active: false},
	}, nil)

	assert.Equal(t, Active, s.Option("road"))
	assert.True(t, s.OutOfStock("road"))
	assert.Equal(t, Inactive, s.Option("cruiser"))
	assert.False(t, s.OutOfStock("cruiser"))

	assert.Equal(t, models.NewIDSet("cruiser"), s.DeactivatedOptions())
	assert.Equal(t, models.NewIDSet("road"), s.OutOfStockOptions())
}

func TestDeactivationWinsOverDuplicateRecords(t *testing.T) {
	s := NewSnapshot(
		[]models.AttributeOverride{
			{ID: "1", AttributeID: "wheels", Active: false},
			{ID: "2", AttributeID: "wheels", Active: true},
		},
		nil,
		[]models.ExclusionOverride{
			{ID: "3", RuleID: "r1", Active: true},
			{ID: "4", RuleID: "r1", Active: false},
		},
	)
	assert.Equal(t, Inactive, s.Attribute("wheels"))
	assert.Equal(t, Inactive, s.Rule("r1"))
}

func TestActiveRules(t *testing.T) {
	s := NewSnapshot(nil, nil, []models.ExclusionOverride{{ID: "o", ProductID: "p", RuleID: "r2", Active: false}})
	rules := []models.ExclusionRule{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}

	active := s.ActiveRules(rules)
	require.Len(t, active, 2)
	assert.Equal(t, "r1", active[0].ID)
	assert.Equal(t, "r3", active[1].ID)
}

func TestResolverReadsStoreAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.SaveAttributeOverride(ctx, models.AttributeOverride{ID: "a", ProductID: "p1", AttributeID: "wheels", Active: false}))
	require.NoError(t, store.SaveOptionOverride(ctx, models.OptionOverride{ID: "o", ProductID: "p1", OptionID: "road", Active: true, OutOfStock: true}))
	require.NoError(t, store.SaveExclusionOverride(ctx, models.ExclusionOverride{ID: "e", ProductID: "p2", RuleID: "r1", Active: false}))

	r := NewResolver(store)
	first, err := r.Resolve(ctx, "p1")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Inactive, first.Attribute("wheels"))
	assert.True(t, first.OutOfStock("road"))
	assert.Equal(t, NoOverride, first.Rule("r1"), "overrides of other products must not leak")
}
