package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"custom-shop/internal/apperror"
	"custom-shop/internal/models"
	"custom-shop/internal/repository"
)

// Clock devuelve la hora actual; los tests la fijan.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return func() time.Time { return time.Now().UTC() }
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

type ProductTypeServiceDeps struct {
	Store  repository.CatalogStore
	Logger *zap.Logger
	Clock  Clock
}

// ProductTypeService administra tipos de producto, sus atributos y sus reglas
// de exclusión.
type ProductTypeService struct {
	store  repository.CatalogStore
	logger *zap.Logger
	now    Clock
}

func NewProductTypeService(deps ProductTypeServiceDeps) *ProductTypeService {
	return &ProductTypeService{
		store:  deps.Store,
		logger: loggerOrNop(deps.Logger),
		now:    clockOrNow(deps.Clock),
	}
}

type CreateProductTypeCommand struct {
	Name          string `json:"name" validate:"notblank"`
	Customization string `json:"customization" validate:"required"`
}

// ProductTypeSummary es la vista de listado.
type ProductTypeSummary struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Customization models.Customization `json:"customization"`
}

type OptionView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type AttributeView struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Options []OptionView `json:"options"`
}

type RuleView struct {
	ID    string            `json:"id"`
	Pairs []models.RulePair `json:"pairs"`
}

type ProductTypeDetails struct {
	ProductTypeSummary
	Attributes []AttributeView `json:"attributes"`
	Rules      []RuleView      `json:"exclusion_rules"`
}

func summarize(pt models.ProductType) ProductTypeSummary {
	return ProductTypeSummary{ID: pt.ID, Name: pt.Name, Customization: pt.Customization}
}

func attributeViews(attrs []attributeWithOptions) []AttributeView {
	views := make([]AttributeView, 0, len(attrs))
	for _, a := range attrs {
		v := AttributeView{ID: a.ID, Name: a.Name, Options: make([]OptionView, 0, len(a.Options))}
		for _, o := range a.Options {
			v.Options = append(v.Options, OptionView{ID: o.ID, Name: o.Name})
		}
		views = append(views, v)
	}
	return views
}

func ruleViews(rules []models.ExclusionRule) []RuleView {
	views := make([]RuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, RuleView{ID: r.ID, Pairs: r.Pairs})
	}
	return views
}

// Create registra un tipo de producto sin atributos.
func (s *ProductTypeService) Create(ctx context.Context, cmd CreateProductTypeCommand) (models.ProductType, error) {
	const op = "product_type.create"

	if err := validateCommand(op, cmd); err != nil {
		return models.ProductType{}, err
	}
	customization, ok := models.ParseCustomization(cmd.Customization)
	if !ok {
		return models.ProductType{}, apperror.Validation(op, "unknown customization %q", cmd.Customization)
	}

	pt := models.ProductType{
		ID:            s.store.NewID(),
		Name:          strings.TrimSpace(cmd.Name),
		Customization: customization,
		AttributeIDs:  []string{},
		RuleIDs:       []string{},
		CreatedAt:     s.now(),
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.SaveProductType(ctx, pt)
	})
	if err != nil {
		return models.ProductType{}, err
	}
	s.logger.Info("product type created",
		zap.String("product_type_id", pt.ID),
		zap.String("customization", string(pt.Customization)))
	return pt, nil
}

func (s *ProductTypeService) List(ctx context.Context) ([]ProductTypeSummary, error) {
	types, err := s.store.ListProductTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProductTypeSummary, 0, len(types))
	for _, pt := range types {
		out = append(out, summarize(pt))
	}
	return out, nil
}

// Details carga atributos con sus opciones y las reglas del tipo.
func (s *ProductTypeService) Details(ctx context.Context, id string) (ProductTypeDetails, error) {
	var details ProductTypeDetails
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		pt, err := s.store.GetProductType(ctx, id)
		if err != nil {
			return err
		}
		attrs, err := loadAttributes(ctx, s.store, pt)
		if err != nil {
			return err
		}
		rules, err := s.store.FindTypeLevelRules(ctx, pt.ID)
		if err != nil {
			return err
		}
		details = ProductTypeDetails{
			ProductTypeSummary: summarize(pt),
			Attributes:         attributeViews(attrs),
			Rules:              ruleViews(rules),
		}
		return nil
	})
	return details, err
}

// AddAttributes agrega atributos con sus opciones. Un tipo fijo lo rechaza.
func (s *ProductTypeService) AddAttributes(ctx context.Context, productTypeID string, attrs []NewAttribute) ([]models.Attribute, error) {
	var created []models.Attribute
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		pt, err := s.store.GetProductType(ctx, productTypeID)
		if err != nil {
			return err
		}
		policy, err := policyFor(pt)
		if err != nil {
			return err
		}
		created, err = policy.addAttributes(ctx, s.store, pt, attrs, s.now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attributes added",
		zap.String("product_type_id", productTypeID),
		zap.Int("count", len(created)))
	return created, nil
}

// AddExclusionRules agrega reglas de tipo. Si una regla es inválida no se
// guarda ninguna.
func (s *ProductTypeService) AddExclusionRules(ctx context.Context, productTypeID string, batch [][]models.RulePair) ([]models.ExclusionRule, error) {
	var created []models.ExclusionRule
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		pt, err := s.store.GetProductType(ctx, productTypeID)
		if err != nil {
			return err
		}
		policy, err := policyFor(pt)
		if err != nil {
			return err
		}
		created, err = policy.addExclusionRules(ctx, s.store, pt, batch, s.now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("exclusion rules added",
		zap.String("product_type_id", productTypeID),
		zap.Int("count", len(created)))
	return created, nil
}
