package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"custom-shop/internal/apperror"
	"custom-shop/internal/metrics"
	"custom-shop/internal/models"
	"custom-shop/internal/overrides"
	"custom-shop/internal/repository"
	"custom-shop/internal/storage"
)

const (
	defaultProductListLimit = 20
	maxProductListLimit     = 100
)

type ProductServiceDeps struct {
	Store   repository.CatalogStore
	Images  storage.ImageStore
	Logger  *zap.Logger
	Clock   Clock
	Metrics *metrics.Metrics
}

// ProductService crea productos a partir de un tipo y administra sus overrides.
type ProductService struct {
	store    repository.CatalogStore
	images   storage.ImageStore
	resolver *overrides.Resolver
	logger   *zap.Logger
	now      Clock
	metrics  *metrics.Metrics
}

func NewProductService(deps ProductServiceDeps) *ProductService {
	return &ProductService{
		store:    deps.Store,
		images:   deps.Images,
		resolver: overrides.NewResolver(deps.Store),
		logger:   loggerOrNop(deps.Logger),
		now:      clockOrNow(deps.Clock),
		metrics:  deps.Metrics,
	}
}

// Upload es un archivo recibido; Open se llama una sola vez.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// ProductOverrides son los lotes opcionales que acompañan el alta.
type ProductOverrides struct {
	DeactivatedAttributes []string            `json:"deactivated_attributes"`
	DeactivatedOptions    []string            `json:"deactivated_options"`
	OutOfStockOptions     []string            `json:"out_of_stock_options"`
	DeactivatedRules      []string            `json:"deactivated_rules"`
	ExclusionRules        [][]models.RulePair `json:"exclusion_rules"`
}

type CreateProductCommand struct {
	Name          string `validate:"notblank"`
	SKU           string `validate:"notblank"`
	Description   string
	Price         decimal.Decimal
	ProductTypeID string `validate:"notblank"`
	MainImage     *Upload
	Gallery       []Upload
	Overrides     ProductOverrides
}

// Create guarda el producto y todos sus overrides en una sola transacción.
// Las imágenes se guardan antes y un fallo solo omite esa imagen.
func (s *ProductService) Create(ctx context.Context, cmd CreateProductCommand) (models.Product, error) {
	const op = "product.create"

	if err := validateCommand(op, cmd); err != nil {
		return models.Product{}, err
	}
	if cmd.Price.IsNegative() {
		return models.Product{}, apperror.Validation(op, "price must not be negative, got %s", cmd.Price.String())
	}

	mainImage, gallery := s.storeImages(ctx, cmd)
	now := s.now()
	product := models.Product{
		ID:            s.store.NewID(),
		SKU:           strings.TrimSpace(cmd.SKU),
		Name:          strings.TrimSpace(cmd.Name),
		Description:   cmd.Description,
		Price:         cmd.Price,
		MainImage:     mainImage,
		Gallery:       gallery,
		ProductTypeID: cmd.ProductTypeID,
		RuleIDs:       []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		pt, err := s.store.GetProductType(ctx, cmd.ProductTypeID)
		if err != nil {
			return err
		}
		if err := s.store.SaveProduct(ctx, product); err != nil {
			return err
		}
		product, err = s.applyOverrides(ctx, pt, product, cmd.Overrides)
		return err
	})
	if err != nil {
		if mainImage != "" || len(gallery) > 0 {
			s.logger.Warn("product creation rolled back, stored images left on disk",
				zap.String("product_name", product.Name),
				zap.String("main_image", mainImage),
				zap.Strings("gallery", gallery),
				zap.Error(err))
		}
		return models.Product{}, err
	}
	s.logger.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("product_type_id", product.ProductTypeID))
	return product, nil
}

func (s *ProductService) storeImages(ctx context.Context, cmd CreateProductCommand) (string, []string) {
	var mainImage string
	if cmd.MainImage != nil {
		mainImage, _ = s.storeImage(ctx, cmd.Name, *cmd.MainImage)
	}
	gallery := make([]string, 0, len(cmd.Gallery))
	for _, up := range cmd.Gallery {
		if ref, ok := s.storeImage(ctx, cmd.Name, up); ok {
			gallery = append(gallery, ref)
		}
	}
	return mainImage, gallery
}

func (s *ProductService) storeImage(ctx context.Context, productName string, up Upload) (string, bool) {
	if s.images == nil || up.Open == nil {
		return "", false
	}
	rc, err := up.Open()
	if err != nil {
		s.imageFailed(productName, up.Name, err)
		return "", false
	}
	defer rc.Close()

	ref, err := s.images.Store(ctx, rc, up.Name)
	if err != nil {
		s.imageFailed(productName, up.Name, err)
		return "", false
	}
	return ref, true
}

func (s *ProductService) imageFailed(productName, fileName string, err error) {
	s.metrics.ImageStoreFailed()
	s.logger.Warn("could not store product image",
		zap.String("product_name", productName),
		zap.String("file_name", fileName),
		zap.Error(err))
}

// applyOverrides aplica los lotes en orden: atributos y opciones, reglas
// desactivadas y reglas propias del producto.
func (s *ProductService) applyOverrides(ctx context.Context, pt models.ProductType, product models.Product, ov ProductOverrides) (models.Product, error) {
	const op = "product.overrides"

	for _, id := range ov.DeactivatedAttributes {
		if _, err := attributeOfType(ctx, s.store, op, pt, id); err != nil {
			return product, err
		}
		if err := s.deactivateAttribute(ctx, product.ID, id); err != nil {
			return product, err
		}
	}
	for _, id := range ov.DeactivatedOptions {
		if _, _, err := optionOfType(ctx, s.store, op, pt, id); err != nil {
			return product, err
		}
		if err := s.mergeOptionOverride(ctx, product.ID, id, func(o *models.OptionOverride) { o.Active = false }); err != nil {
			return product, err
		}
	}
	for _, id := range ov.OutOfStockOptions {
		if _, _, err := optionOfType(ctx, s.store, op, pt, id); err != nil {
			return product, err
		}
		if err := s.mergeOptionOverride(ctx, product.ID, id, func(o *models.OptionOverride) { o.OutOfStock = true }); err != nil {
			return product, err
		}
	}
	if err := s.deactivateRules(ctx, op, pt, product, ov.DeactivatedRules); err != nil {
		return product, err
	}
	if len(ov.ExclusionRules) == 0 {
		return product, nil
	}
	return s.appendRules(ctx, pt, product, ov.ExclusionRules)
}

func (s *ProductService) deactivateAttribute(ctx context.Context, productID, attributeID string) error {
	existing, err := s.store.FindAttributeOverrides(ctx, productID, repository.OverrideFilter{TargetID: attributeID})
	if err != nil {
		return err
	}
	o := models.AttributeOverride{ID: s.store.NewID(), ProductID: productID, AttributeID: attributeID}
	if len(existing) > 0 {
		o = existing[0]
	}
	o.Active = false
	return s.store.SaveAttributeOverride(ctx, o)
}

// mergeOptionOverride mantiene un único registro por (producto, opción).
func (s *ProductService) mergeOptionOverride(ctx context.Context, productID, optionID string, mutate func(*models.OptionOverride)) error {
	existing, err := s.store.FindOptionOverrides(ctx, productID, repository.OverrideFilter{TargetID: optionID})
	if err != nil {
		return err
	}
	o := models.OptionOverride{ID: s.store.NewID(), ProductID: productID, OptionID: optionID, Active: true}
	if len(existing) > 0 {
		o = existing[0]
	}
	mutate(&o)
	return s.store.SaveOptionOverride(ctx, o)
}

// deactivateRules acepta reglas del tipo del producto o reglas propias.
func (s *ProductService) deactivateRules(ctx context.Context, op string, pt models.ProductType, product models.Product, ruleIDs []string) error {
	for _, id := range ruleIDs {
		rule, err := s.store.GetExclusionRule(ctx, id)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.Validation(op, "exclusion rule not found with ID: %s", id)
			}
			return err
		}
		typeLevel := rule.Scope == models.RuleScopeProductType && rule.ProductTypeID == pt.ID
		ownRule := rule.Scope == models.RuleScopeProduct && rule.ProductID == product.ID
		if !typeLevel && !ownRule {
			return apperror.Validation(op, "exclusion rule with ID %s does not apply to product %s", id, product.ID)
		}

		existing, err := s.store.FindExclusionOverrides(ctx, product.ID, repository.OverrideFilter{TargetID: id})
		if err != nil {
			return err
		}
		o := models.ExclusionOverride{ID: s.store.NewID(), ProductID: product.ID, RuleID: id}
		if len(existing) > 0 {
			o = existing[0]
		}
		o.Active = false
		if err := s.store.SaveExclusionOverride(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductService) appendRules(ctx context.Context, pt models.ProductType, product models.Product, batch [][]models.RulePair) (models.Product, error) {
	rules, err := buildRules(ctx, s.store, models.RuleScopeProduct, pt.ID, product.ID, batch, s.now)
	if err != nil {
		return product, err
	}
	for _, rule := range rules {
		if err := s.store.SaveExclusionRule(ctx, rule); err != nil {
			return product, err
		}
		product.RuleIDs = append(product.RuleIDs, rule.ID)
	}
	product.UpdatedAt = s.now()
	if err := s.store.SaveProduct(ctx, product); err != nil {
		return product, err
	}
	return product, nil
}

// DeactivateExclusionRules suprime reglas para un producto existente.
func (s *ProductService) DeactivateExclusionRules(ctx context.Context, productID string, ruleIDs []string) error {
	const op = "product.deactivate_rules"

	if len(ruleIDs) == 0 {
		return apperror.Validation(op, "at least one exclusion rule ID must be provided")
	}
	return s.store.RunInTx(ctx, func(ctx context.Context) error {
		product, pt, err := s.productWithType(ctx, productID)
		if err != nil {
			return err
		}
		return s.deactivateRules(ctx, op, pt, product, ruleIDs)
	})
}

// AddProductExclusionRules agrega reglas propias a un producto existente.
func (s *ProductService) AddProductExclusionRules(ctx context.Context, productID string, batch [][]models.RulePair) ([]models.ExclusionRule, error) {
	const op = "product.add_rules"

	if len(batch) == 0 {
		return nil, apperror.Validation(op, "there must be at least one not-allowed combination provided")
	}
	var created []models.ExclusionRule
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		created = nil
		product, pt, err := s.productWithType(ctx, productID)
		if err != nil {
			return err
		}
		before := len(product.RuleIDs)
		product, err = s.appendRules(ctx, pt, product, batch)
		if err != nil {
			return err
		}
		for _, id := range product.RuleIDs[before:] {
			rule, err := s.store.GetExclusionRule(ctx, id)
			if err != nil {
				return err
			}
			created = append(created, rule)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Delete borra primero overrides y reglas propias, luego el producto.
func (s *ProductService) Delete(ctx context.Context, productID string) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		product, err := s.store.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.store.DeleteOverridesForProduct(ctx, product.ID); err != nil {
			return err
		}
		rules, err := s.store.FindProductLevelRules(ctx, product.ID)
		if err != nil {
			return err
		}
		for _, rule := range rules {
			if err := s.store.DeleteExclusionRule(ctx, rule.ID); err != nil {
				return err
			}
		}
		return s.store.DeleteProduct(ctx, product.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", productID))
	return nil
}

func (s *ProductService) productWithType(ctx context.Context, productID string) (models.Product, models.ProductType, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return models.Product{}, models.ProductType{}, err
	}
	pt, err := s.store.GetProductType(ctx, product.ProductTypeID)
	if err != nil {
		return models.Product{}, models.ProductType{}, err
	}
	return product, pt, nil
}

// ProductSummary es la vista de listado.
type ProductSummary struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	MainImage     string          `json:"main_image,omitempty"`
	ProductTypeID string          `json:"product_type_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// List devuelve los productos más recientes primero.
func (s *ProductService) List(ctx context.Context, limit int) ([]ProductSummary, error) {
	if limit <= 0 {
		limit = defaultProductListLimit
	}
	if limit > maxProductListLimit {
		limit = maxProductListLimit
	}
	products, err := s.store.ListProducts(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, ProductSummary{
			ID:            p.ID,
			SKU:           p.SKU,
			Name:          p.Name,
			Price:         p.Price,
			MainImage:     p.MainImage,
			ProductTypeID: p.ProductTypeID,
			CreatedAt:     p.CreatedAt,
		})
	}
	return out, nil
}

type ProductOptionView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	OutOfStock bool   `json:"out_of_stock"`
}

type ProductAttributeView struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Active  bool                `json:"active"`
	Options []ProductOptionView `json:"options"`
}

type ProductRuleView struct {
	ID     string            `json:"id"`
	Pairs  []models.RulePair `json:"pairs"`
	Active bool              `json:"active"`
}

// ProductDetails lleva los flags efectivos de cada atributo, opción y regla.
type ProductDetails struct {
	ID           string                 `json:"id"`
	SKU          string                 `json:"sku"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	Price        decimal.Decimal        `json:"price"`
	MainImage    string                 `json:"main_image,omitempty"`
	Gallery      []string               `json:"gallery"`
	ProductType  ProductTypeSummary     `json:"product_type"`
	Attributes   []ProductAttributeView `json:"attributes"`
	TypeRules    []ProductRuleView      `json:"type_exclusion_rules"`
	ProductRules []ProductRuleView      `json:"product_exclusion_rules"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Details es la vista de administración.
func (s *ProductService) Details(ctx context.Context, productID string) (ProductDetails, error) {
	var details ProductDetails
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		details, err = s.details(ctx, productID)
		return err
	})
	return details, err
}

// CustomerDetails omite atributos, opciones y reglas inactivos.
func (s *ProductService) CustomerDetails(ctx context.Context, productID string) (ProductDetails, error) {
	details, err := s.Details(ctx, productID)
	if err != nil {
		return ProductDetails{}, err
	}

	attrs := make([]ProductAttributeView, 0, len(details.Attributes))
	for _, a := range details.Attributes {
		if !a.Active {
			continue
		}
		opts := make([]ProductOptionView, 0, len(a.Options))
		for _, o := range a.Options {
			if o.Active {
				opts = append(opts, o)
			}
		}
		a.Options = opts
		attrs = append(attrs, a)
	}
	details.Attributes = attrs
	details.TypeRules = onlyActive(details.TypeRules)
	details.ProductRules = onlyActive(details.ProductRules)
	return details, nil
}

func onlyActive(rules []ProductRuleView) []ProductRuleView {
	out := make([]ProductRuleView, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

func (s *ProductService) details(ctx context.Context, productID string) (ProductDetails, error) {
	product, pt, err := s.productWithType(ctx, productID)
	if err != nil {
		return ProductDetails{}, err
	}
	attrs, err := loadAttributes(ctx, s.store, pt)
	if err != nil {
		return ProductDetails{}, err
	}
	snap, err := s.resolver.Resolve(ctx, product.ID)
	if err != nil {
		return ProductDetails{}, err
	}
	typeRules, err := s.store.FindTypeLevelRules(ctx, pt.ID)
	if err != nil {
		return ProductDetails{}, err
	}
	productRules, err := s.store.FindProductLevelRules(ctx, product.ID)
	if err != nil {
		return ProductDetails{}, err
	}

	views := make([]ProductAttributeView, 0, len(attrs))
	for _, a := range attrs {
		v := ProductAttributeView{
			ID:      a.ID,
			Name:    a.Name,
			Active:  snap.Attribute(a.ID).IsActive(),
			Options: make([]ProductOptionView, 0, len(a.Options)),
		}
		for _, o := range a.Options {
			v.Options = append(v.Options, ProductOptionView{
				ID:         o.ID,
				Name:       o.Name,
				Active:     snap.Option(o.ID).IsActive(),
				OutOfStock: snap.OutOfStock(o.ID),
			})
		}
		views = append(views, v)
	}

	gallery := product.Gallery
	if gallery == nil {
		gallery = []string{}
	}
	return ProductDetails{
		ID:           product.ID,
		SKU:          product.SKU,
		Name:         product.Name,
		Description:  product.Description,
		Price:        product.Price,
		MainImage:    product.MainImage,
		Gallery:      gallery,
		ProductType:  summarize(pt),
		Attributes:   views,
		TypeRules:    productRuleViews(snap, typeRules),
		ProductRules: productRuleViews(snap, productRules),
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}, nil
}

func productRuleViews(snap overrides.Snapshot, rules []models.ExclusionRule) []ProductRuleView {
	out := make([]ProductRuleView, 0, len(rules))
	for _, r := range rules {
		out = append(out, ProductRuleView{ID: r.ID, Pairs: r.Pairs, Active: snap.Rule(r.ID).IsActive()})
	}
	return out
}
