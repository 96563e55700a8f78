package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"custom-shop/internal/apperror"
	"custom-shop/internal/models"
)

// table conserva el orden de inserción para listados estables.
type table[T any] struct {
	rows  map[string]T
	order []string
	clone func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{rows: make(map[string]T), clone: clone}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	if !ok {
		return v, false
	}
	return t.clone(v), true
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = t.clone(v)
}

func (t *table[T]) delete(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == id })
}

func (t *table[T]) filter(keep func(T) bool) []T {
	out := make([]T, 0)
	for _, id := range t.order {
		v := t.rows[id]
		if keep(v) {
			out = append(out, t.clone(v))
		}
	}
	return out
}

// snapshot copia el mapa; los valores guardados nunca se mutan en sitio.
func (t *table[T]) snapshot() *table[T] {
	rows := make(map[string]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return &table[T]{rows: rows, order: slices.Clone(t.order), clone: t.clone}
}

func identity[T any](v T) T { return v }

type memoryTables struct {
	productTypes       *table[models.ProductType]
	attributes         *table[models.Attribute]
	options            *table[models.Option]
	rules              *table[models.ExclusionRule]
	products           *table[models.Product]
	attributeOverrides *table[models.AttributeOverride]
	optionOverrides    *table[models.OptionOverride]
	exclusionOverrides *table[models.ExclusionOverride]
	cart               *table[models.CartItem]
}

func newMemoryTables() memoryTables {
	return memoryTables{
		productTypes: newTable(func(pt models.ProductType) models.ProductType {
			pt.AttributeIDs = slices.Clone(pt.AttributeIDs)
			pt.RuleIDs = slices.Clone(pt.RuleIDs)
			return pt
		}),
		attributes: newTable(func(a models.Attribute) models.Attribute {
			a.OptionIDs = slices.Clone(a.OptionIDs)
			return a
		}),
		options: newTable(identity[models.Option]),
		rules: newTable(func(r models.ExclusionRule) models.ExclusionRule {
			r.Pairs = slices.Clone(r.Pairs)
			return r
		}),
		products: newTable(func(p models.Product) models.Product {
			p.Gallery = slices.Clone(p.Gallery)
			p.RuleIDs = slices.Clone(p.RuleIDs)
			return p
		}),
		attributeOverrides: newTable(identity[models.AttributeOverride]),
		optionOverrides:    newTable(identity[models.OptionOverride]),
		exclusionOverrides: newTable(identity[models.ExclusionOverride]),
		cart: newTable(func(c models.CartItem) models.CartItem {
			c.Selections = slices.Clone(c.Selections)
			return c
		}),
	}
}

func (m memoryTables) snapshot() memoryTables {
	return memoryTables{
		productTypes:       m.productTypes.snapshot(),
		attributes:         m.attributes.snapshot(),
		options:            m.options.snapshot(),
		rules:              m.rules.snapshot(),
		products:           m.products.snapshot(),
		attributeOverrides: m.attributeOverrides.snapshot(),
		optionOverrides:    m.optionOverrides.snapshot(),
		exclusionOverrides: m.exclusionOverrides.snapshot(),
		cart:               m.cart.snapshot(),
	}
}

type txKey struct{}

// MemoryStore implementa Store en memoria, para desarrollo local y tests.
// RunInTx serializa las transacciones y restaura el estado previo si fn falla.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data memoryTables
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryTables()}
}

func (s *MemoryStore) NewID() string { return uuid.NewString() }

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(txKey{}).(*MemoryStore); owner == s {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.data.snapshot()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func getRow[T any](s *MemoryStore, t func(memoryTables) *table[T], op, kind, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := t(s.data).get(id)
	if !ok {
		var zero T
		return zero, apperror.NotFound(op, "%s not found with ID: %s", kind, id)
	}
	return v, nil
}

func putRow[T any](s *MemoryStore, t func(memoryTables) *table[T], id string, v T) error {
	if id == "" {
		return apperror.Internal("memory.save", errMissingID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t(s.data).put(id, v)
	return nil
}

func (s *MemoryStore) GetProductType(_ context.Context, id string) (models.ProductType, error) {
	return getRow(s, func(m memoryTables) *table[models.ProductType] { return m.productTypes }, "memory.get_product_type", "product type", id)
}

func (s *MemoryStore) ListProductTypes(_ context.Context) ([]models.ProductType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.productTypes.filter(func(models.ProductType) bool { return true }), nil
}

func (s *MemoryStore) SaveProductType(_ context.Context, pt models.ProductType) error {
	return putRow(s, func(m memoryTables) *table[models.ProductType] { return m.productTypes }, pt.ID, pt)
}

func (s *MemoryStore) GetAttribute(_ context.Context, id string) (models.Attribute, error) {
	return getRow(s, func(m memoryTables) *table[models.Attribute] { return m.attributes }, "memory.get_attribute", "attribute", id)
}

func (s *MemoryStore) SaveAttribute(_ context.Context, attr models.Attribute) error {
	return putRow(s, func(m memoryTables) *table[models.Attribute] { return m.attributes }, attr.ID, attr)
}

func (s *MemoryStore) GetOption(_ context.Context, id string) (models.Option, error) {
	return getRow(s, func(m memoryTables) *table[models.Option] { return m.options }, "memory.get_option", "option", id)
}

func (s *MemoryStore) SaveOption(_ context.Context, opt models.Option) error {
	return putRow(s, func(m memoryTables) *table[models.Option] { return m.options }, opt.ID, opt)
}

func (s *MemoryStore) GetExclusionRule(_ context.Context, id string) (models.ExclusionRule, error) {
	return getRow(s, func(m memoryTables) *table[models.ExclusionRule] { return m.rules }, "memory.get_exclusion_rule", "exclusion rule", id)
}

func (s *MemoryStore) SaveExclusionRule(_ context.Context, rule models.ExclusionRule) error {
	return putRow(s, func(m memoryTables) *table[models.ExclusionRule] { return m.rules }, rule.ID, rule)
}

func (s *MemoryStore) DeleteExclusionRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rules.delete(id)
	return nil
}

func (s *MemoryStore) FindTypeLevelRules(_ context.Context, productTypeID string) ([]models.ExclusionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.rules.filter(func(r models.ExclusionRule) bool {
		return r.Scope == models.RuleScopeProductType && r.ProductTypeID == productTypeID
	}), nil
}

func (s *MemoryStore) FindProductLevelRules(_ context.Context, productID string) ([]models.ExclusionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.rules.filter(func(r models.ExclusionRule) bool {
		return r.Scope == models.RuleScopeProduct && r.ProductID == productID
	}), nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (models.Product, error) {
	return getRow(s, func(m memoryTables) *table[models.Product] { return m.products }, "memory.get_product", "product", id)
}

func (s *MemoryStore) SaveProduct(_ context.Context, p models.Product) error {
	return putRow(s, func(m memoryTables) *table[models.Product] { return m.products }, p.ID, p)
}

// ListProducts devuelve los más recientes primero.
func (s *MemoryStore) ListProducts(_ context.Context, limit int) ([]models.Product, error) {
	s.mu.RLock()
	products := s.data.products.filter(func(models.Product) bool { return true })
	s.mu.RUnlock()

	slices.Reverse(products)
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.products.get(id); !ok {
		return apperror.NotFound("memory.delete_product", "product not found with ID: %s", id)
	}
	s.data.products.delete(id)
	return nil
}

func (s *MemoryStore) SaveAttributeOverride(_ context.Context, o models.AttributeOverride) error {
	return putRow(s, func(m memoryTables) *table[models.AttributeOverride] { return m.attributeOverrides }, o.ID, o)
}

func (s *MemoryStore) SaveOptionOverride(_ context.Context, o models.OptionOverride) error {
	return putRow(s, func(m memoryTables) *table[models.OptionOverride] { return m.optionOverrides }, o.ID, o)
}

func (s *MemoryStore) SaveExclusionOverride(_ context.Context, o models.ExclusionOverride) error {
	return putRow(s, func(m memoryTables) *table[models.ExclusionOverride] { return m.exclusionOverrides }, o.ID, o)
}

func (s *MemoryStore) FindAttributeOverrides(_ context.Context, productID string, filter OverrideFilter) ([]models.AttributeOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.attributeOverrides.filter(func(o models.AttributeOverride) bool {
		return o.ProductID == productID && filter.matches(o.AttributeID, o.Active, false)
	}), nil
}

func (s *MemoryStore) FindOptionOverrides(_ context.Context, productID string, filter OverrideFilter) ([]models.OptionOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.optionOverrides.filter(func(o models.OptionOverride) bool {
		return o.ProductID == productID && filter.matches(o.OptionID, o.Active, o.OutOfStock)
	}), nil
}

func (s *MemoryStore) FindExclusionOverrides(_ context.Context, productID string, filter OverrideFilter) ([]models.ExclusionOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.exclusionOverrides.filter(func(o models.ExclusionOverride) bool {
		return o.ProductID == productID && filter.matches(o.RuleID, o.Active, false)
	}), nil
}

func (s *MemoryStore) DeleteOverridesForProduct(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.data.attributeOverrides.filter(func(o models.AttributeOverride) bool { return o.ProductID == productID }) {
		s.data.attributeOverrides.delete(o.ID)
	}
	for _, o := range s.data.optionOverrides.filter(func(o models.OptionOverride) bool { return o.ProductID == productID }) {
		s.data.optionOverrides.delete(o.ID)
	}
	for _, o := range s.data.exclusionOverrides.filter(func(o models.ExclusionOverride) bool { return o.ProductID == productID }) {
		s.data.exclusionOverrides.delete(o.ID)
	}
	return nil
}

func (s *MemoryStore) SaveCartItem(_ context.Context, item models.CartItem) error {
	return putRow(s, func(m memoryTables) *table[models.CartItem] { return m.cart }, item.ID, item)
}

// ListRecentCartItems ordena por CreatedAt descendente; a igual fecha, el último insertado primero.
func (s *MemoryStore) ListRecentCartItems(_ context.Context, limit int) ([]models.CartItem, error) {
	s.mu.RLock()
	items := s.data.cart.filter(func(models.CartItem) bool { return true })
	s.mu.RUnlock()

	slices.Reverse(items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ Store = (*MemoryStore)(nil)
