package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"custom-shop/internal/apperror"
	"custom-shop/internal/exclusion"
	"custom-shop/internal/metrics"
	"custom-shop/internal/models"
	"custom-shop/internal/overrides"
	"custom-shop/internal/repository"
)

const defaultRecentLimit = 10

type CartServiceDeps struct {
	Store       repository.Store
	Logger      *zap.Logger
	Clock       Clock
	Metrics     *metrics.Metrics
	RecentLimit int
}

type CartService struct {
	store       repository.Store
	resolver    *overrides.Resolver
	logger      *zap.Logger
	now         Clock
	metrics     *metrics.Metrics
	recentLimit int
}

func NewCartService(deps CartServiceDeps) *CartService {
	limit := deps.RecentLimit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return &CartService{
		store:       deps.Store,
		resolver:    overrides.NewResolver(deps.Store),
		logger:      loggerOrNop(deps.Logger),
		now:         clockOrNow(deps.Clock),
		metrics:     deps.Metrics,
		recentLimit: limit,
	}
}

type AddCartItemCommand struct {
	ProductID  string                 `json:"product_id" validate:"required"`
	Selections []models.CartSelection `json:"selections" validate:"dive"`
	Quantity   int                    `json:"quantity" validate:"min=1"`
}

// AddItem valida la selección contra los overrides y las reglas vigentes del
// producto antes de guardarla.
func (s *CartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (models.CartItem, error) {
	const op = "cart.add_item"

	if err := validateCommand(op, cmd); err != nil {
		return models.CartItem{}, err
	}

	var item models.CartItem
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		product, err := s.store.GetProduct(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		pt, err := s.store.GetProductType(ctx, product.ProductTypeID)
		if err != nil {
			return err
		}
		snap, err := s.resolver.Resolve(ctx, product.ID)
		if err != nil {
			return err
		}

		names, selected, err := s.checkSelections(ctx, op, pt, snap, cmd.Selections)
		if err != nil {
			return err
		}

		typeRules, productRules, err := activeRules(ctx, s.store, snap, product)
		if err != nil {
			return err
		}
		if violated := exclusion.Violations(selected, append(typeRules, productRules...)); len(violated) > 0 {
			return apperror.Validation(op, "the selected combination is not allowed by exclusion rule %s", violated[0])
		}

		item = models.CartItem{
			ID:         s.store.NewID(),
			ProductID:  product.ID,
			Selections: append([]models.CartSelection{}, cmd.Selections...),
			Quantity:   cmd.Quantity,
			Label:      cartLabel(product.Name, names),
			CreatedAt:  s.now(),
		}
		return s.store.SaveCartItem(ctx, item)
	})
	if err != nil {
		return models.CartItem{}, err
	}
	s.metrics.CartItemAdded()
	s.logger.Info("cart item added",
		zap.String("cart_item_id", item.ID),
		zap.String("product_id", item.ProductID))
	return item, nil
}

// checkSelections devuelve los nombres de las opciones en orden y sus ids.
func (s *CartService) checkSelections(ctx context.Context, op string, pt models.ProductType, snap overrides.Snapshot, selections []models.CartSelection) ([]string, []string, error) {
	names := make([]string, 0, len(selections))
	ids := make([]string, 0, len(selections))
	seen := make(models.IDSet, len(selections))

	for _, sel := range selections {
		attr, err := attributeOfType(ctx, s.store, op, pt, sel.AttributeID)
		if err != nil {
			return nil, nil, err
		}
		if !snap.Attribute(attr.ID).IsActive() {
			return nil, nil, apperror.Validation(op, "attribute with ID %s is not available for this product", attr.ID)
		}
		if seen.Has(attr.ID) {
			return nil, nil, apperror.Validation(op, "Multiple options selected for the same attribute: %s", attr.ID)
		}
		seen.Add(attr.ID)

		opt, err := s.store.GetOption(ctx, sel.OptionID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, nil, apperror.Validation(op, "invalid option ID: %s", sel.OptionID)
			}
			return nil, nil, err
		}
		if opt.AttributeID != attr.ID {
			return nil, nil, apperror.Validation(op,
				"option with ID %s does not belong to the attribute with ID %s", opt.ID, attr.ID)
		}
		if !snap.Option(opt.ID).IsActive() {
			return nil, nil, apperror.Validation(op, "option with ID %s is not available for this product", opt.ID)
		}
		if snap.OutOfStock(opt.ID) {
			return nil, nil, apperror.Validation(op, "option with ID %s is out of stock", opt.ID)
		}
		names = append(names, opt.Name)
		ids = append(ids, opt.ID)
	}
	return names, ids, nil
}

func cartLabel(productName string, optionNames []string) string {
	if len(optionNames) == 0 {
		return productName
	}
	return productName + " (" + strings.Join(optionNames, ", ") + ")"
}

// CartLine es un ítem reciente con los datos del producto para mostrarlo.
type CartLine struct {
	ID           string                 `json:"id"`
	ProductID    string                 `json:"product_id"`
	ProductName  string                 `json:"product_name"`
	ProductImage string                 `json:"product_image,omitempty"`
	Label        string                 `json:"label"`
	Quantity     int                    `json:"quantity"`
	Selections   []models.CartSelection `json:"selections"`
	CreatedAt    time.Time              `json:"created_at"`
}

// RecentItems devuelve los últimos ítems, el más nuevo primero. Un producto
// borrado deja la línea con su etiqueta y sin imagen.
func (s *CartService) RecentItems(ctx context.Context) ([]CartLine, error) {
	items, err := s.store.ListRecentCartItems(ctx, s.recentLimit)
	if err != nil {
		return nil, err
	}
	products := make(map[string]*models.Product, len(items))
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		p, cached := products[item.ProductID]
		if !cached {
			found, err := s.store.GetProduct(ctx, item.ProductID)
			switch {
			case err == nil:
				p = &found
			case apperror.IsNotFound(err):
			default:
				return nil, err
			}
			products[item.ProductID] = p
		}
		line := CartLine{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Label:      item.Label,
			Quantity:   item.Quantity,
			Selections: item.Selections,
			CreatedAt:  item.CreatedAt,
		}
		if p != nil {
			line.ProductName = p.Name
			line.ProductImage = p.MainImage
		}
		lines = append(lines, line)
	}
	return lines, nil
}
