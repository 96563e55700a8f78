package services

import (
	"context"

	"go.uber.org/zap"

	"custom-shop/internal/apperror"
	"custom-shop/internal/exclusion"
	"custom-shop/internal/metrics"
	"custom-shop/internal/models"
	"custom-shop/internal/overrides"
	"custom-shop/internal/repository"
)

type AvailabilityServiceDeps struct {
	Store   repository.CatalogStore
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// AvailabilityService calcula qué opciones de un atributo siguen disponibles
// dadas las selecciones previas.
type AvailabilityService struct {
	store    repository.CatalogStore
	resolver *overrides.Resolver
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewAvailabilityService(deps AvailabilityServiceDeps) *AvailabilityService {
	return &AvailabilityService{
		store:    deps.Store,
		resolver: overrides.NewResolver(deps.Store),
		logger:   loggerOrNop(deps.Logger),
		metrics:  deps.Metrics,
	}
}

// AvailableOptions es siempre un subconjunto de las opciones del atributo pedido.
type AvailableOptions struct {
	AttributeID   string       `json:"attribute_id"`
	AttributeName string       `json:"attribute_name"`
	Options       []OptionView `json:"options"`
}

func (s *AvailabilityService) AvailableOptions(ctx context.Context, productID, requestedAttributeID string, selectedOptionIDs []string) (AvailableOptions, error) {
	var result AvailableOptions
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.compute(ctx, productID, requestedAttributeID, selectedOptionIDs)
		return err
	})
	if err != nil {
		s.metrics.AvailabilityQuery(string(apperror.KindOf(err)))
		return AvailableOptions{}, err
	}
	s.metrics.AvailabilityQuery("ok")
	return result, nil
}

func (s *AvailabilityService) compute(ctx context.Context, productID, requestedAttributeID string, selectedOptionIDs []string) (AvailableOptions, error) {
	const op = "availability.options"

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return AvailableOptions{}, err
	}
	pt, err := s.store.GetProductType(ctx, product.ProductTypeID)
	if err != nil {
		return AvailableOptions{}, err
	}

	requested, err := s.store.GetAttribute(ctx, requestedAttributeID)
	if err != nil {
		return AvailableOptions{}, err
	}
	if requested.ProductTypeID != pt.ID {
		return AvailableOptions{}, apperror.Validation(op,
			"attribute with ID %s does not belong to product type %s", requested.ID, pt.ID)
	}
	options, err := loadOptions(ctx, s.store, requested)
	if err != nil {
		return AvailableOptions{}, err
	}

	if err := s.validateSelection(ctx, op, pt, requested.ID, selectedOptionIDs); err != nil {
		return AvailableOptions{}, err
	}

	snap, err := s.resolver.Resolve(ctx, product.ID)
	if err != nil {
		return AvailableOptions{}, err
	}
	typeRules, productRules, err := activeRules(ctx, s.store, snap, product)
	if err != nil {
		return AvailableOptions{}, err
	}
	forbidden := exclusion.Forbidden(selectedOptionIDs, requested.ID, typeRules).
		Union(exclusion.Forbidden(selectedOptionIDs, requested.ID, productRules))

	result := AvailableOptions{
		AttributeID:   requested.ID,
		AttributeName: requested.Name,
		Options:       []OptionView{},
	}
	if !snap.Attribute(requested.ID).IsActive() {
		return result, nil
	}
	for _, opt := range options {
		if !snap.Option(opt.ID).IsActive() || snap.OutOfStock(opt.ID) || forbidden.Has(opt.ID) {
			continue
		}
		result.Options = append(result.Options, OptionView{ID: opt.ID, Name: opt.Name})
	}
	return result, nil
}

// validateSelection exige opciones conocidas del tipo, a lo sumo una por
// atributo y ninguna del atributo consultado.
func (s *AvailabilityService) validateSelection(ctx context.Context, op string, pt models.ProductType, requestedAttributeID string, selected []string) error {
	seen := make(models.IDSet, len(selected))
	for _, id := range selected {
		_, attr, err := optionOfType(ctx, s.store, op, pt, id)
		if err != nil {
			return err
		}
		if attr.ID == requestedAttributeID {
			return apperror.Validation(op, "Selected option belongs to the requested attribute: %s", id)
		}
		if seen.Has(attr.ID) {
			return apperror.Validation(op, "Multiple options selected for the same attribute: %s", attr.ID)
		}
		seen.Add(attr.ID)
	}
	return nil
}
