package repository

import (
	"context"

	"custom-shop/internal/models"
)

// OverrideFilter es el predicado de FindXOverrides. Los campos nil o vacíos no filtran.
type OverrideFilter struct {
	Active     *bool
	OutOfStock *bool
	// TargetID filtra por atributo, opción o regla según la colección.
	TargetID string
}

func (f OverrideFilter) matches(target string, active, outOfStock bool) bool {
	if f.TargetID != "" && f.TargetID != target {
		return false
	}
	if f.Active != nil && *f.Active != active {
		return false
	}
	if f.OutOfStock != nil && *f.OutOfStock != outOfStock {
		return false
	}
	return true
}

// Bool devuelve un puntero a b, útil para armar filtros.
func Bool(b bool) *bool { return &b }

// UnitOfWork agrupa operaciones en un límite transaccional.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogStore guarda tipos de producto, atributos, opciones, reglas,
// productos y overrides. Cada entidad se guarda plana y se busca por id.
type CatalogStore interface {
	UnitOfWork

	NewID() string

	GetProductType(ctx context.Context, id string) (models.ProductType, error)
	ListProductTypes(ctx context.Context) ([]models.ProductType, error)
	SaveProductType(ctx context.Context, pt models.ProductType) error

	GetAttribute(ctx context.Context, id string) (models.Attribute, error)
	SaveAttribute(ctx context.Context, attr models.Attribute) error

	GetOption(ctx context.Context, id string) (models.Option, error)
	SaveOption(ctx context.Context, opt models.Option) error

	GetExclusionRule(ctx context.Context, id string) (models.ExclusionRule, error)
	SaveExclusionRule(ctx context.Context, rule models.ExclusionRule) error
	DeleteExclusionRule(ctx context.Context, id string) error
	FindTypeLevelRules(ctx context.Context, productTypeID string) ([]models.ExclusionRule, error)
	FindProductLevelRules(ctx context.Context, productID string) ([]models.ExclusionRule, error)

	GetProduct(ctx context.Context, id string) (models.Product, error)
	SaveProduct(ctx context.Context, p models.Product) error
	ListProducts(ctx context.Context, limit int) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	SaveAttributeOverride(ctx context.Context, o models.AttributeOverride) error
	SaveOptionOverride(ctx context.Context, o models.OptionOverride) error
	SaveExclusionOverride(ctx context.Context, o models.ExclusionOverride) error
	FindAttributeOverrides(ctx context.Context, productID string, filter OverrideFilter) ([]models.AttributeOverride, error)
	FindOptionOverrides(ctx context.Context, productID string, filter OverrideFilter) ([]models.OptionOverride, error)
	FindExclusionOverrides(ctx context.Context, productID string, filter OverrideFilter) ([]models.ExclusionOverride, error)
	DeleteOverridesForProduct(ctx context.Context, productID string) error
}

// CartStore guarda los ítems del carrito.
type CartStore interface {
	SaveCartItem(ctx context.Context, item models.CartItem) error
	ListRecentCartItems(ctx context.Context, limit int) ([]models.CartItem, error)
}

// Store reúne ambos colaboradores; lo implementan MemoryStore y MongoStore.
type Store interface {
	CatalogStore
	CartStore
}
