package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"custom-shop/internal/apperror"
	"custom-shop/internal/models"
)

const (
	readTimeout  = 3 * time.Second
	writeTimeout = 5 * time.Second
	queryTimeout = 10 * time.Second
)

// Nombres de colecciones
const (
	ProductTypesCollection       = "product_types"
	AttributesCollection         = "attributes"
	OptionsCollection            = "options"
	ExclusionRulesCollection     = "exclusion_rules"
	ProductsCollection           = "products"
	AttributeOverridesCollection = "attribute_overrides"
	OptionOverridesCollection    = "option_overrides"
	ExclusionOverridesCollection = "exclusion_overrides"
	CartItemsCollection          = "cart_items"
)

// MongoStore implementa Store sobre MongoDB. RunInTx usa sesiones, por lo
// que requiere un replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, db: db}
}

// EnsureIndexes crea los índices que sostienen las consultas y la unicidad
// de (producto, opción) en option_overrides.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		OptionOverridesCollection: {{
			Keys:    bson.D{{Key: "product_id", Value: 1}, {Key: "option_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		AttributeOverridesCollection: {{Keys: bson.D{{Key: "product_id", Value: 1}}}},
		ExclusionOverridesCollection: {{Keys: bson.D{{Key: "product_id", Value: 1}}}},
		ExclusionRulesCollection: {
			{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "product_type_id", Value: 1}}},
			{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "product_id", Value: 1}}},
		},
		CartItemsCollection: {{Keys: bson.D{{Key: "created_at", Value: -1}}}},
		ProductsCollection:  {{Keys: bson.D{{Key: "created_at", Value: -1}}}},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("creating indexes for %s: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStore) NewID() string { return primitive.NewObjectID().Hex() }

// RunInTx ejecuta fn dentro de una transacción. Si ctx ya lleva una sesión,
// fn se suma a esa transacción.
func (s *MongoStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return apperror.Internal("mongo.run_in_tx", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, op, kind, id string) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var out T
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return out, apperror.NotFound(op, "%s not found with ID: %s", kind, id)
		}
		return out, apperror.Internal(op, err)
	}
	return out, nil
}

func upsert(ctx context.Context, coll *mongo.Collection, op, id string, doc any) error {
	if id == "" {
		return apperror.Internal(op, errMissingID)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return apperror.Internal(op, err)
	}
	return nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, op string, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperror.Internal(op, err)
	}
	return out, nil
}

func overrideQuery(productID, targetField string, f OverrideFilter) bson.M {
	filter := bson.M{"product_id": productID}
	if f.TargetID != "" {
		filter[targetField] = f.TargetID
	}
	if f.Active != nil {
		filter["active"] = *f.Active
	}
	if f.OutOfStock != nil {
		filter["out_of_stock"] = *f.OutOfStock
	}
	return filter
}

func oldestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
}

func newestFirst(limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
}

func (s *MongoStore) GetProductType(ctx context.Context, id string) (models.ProductType, error) {
	return findOne[models.ProductType](ctx, s.db.Collection(ProductTypesCollection), "mongo.get_product_type", "product type", id)
}

func (s *MongoStore) ListProductTypes(ctx context.Context) ([]models.ProductType, error) {
	return findMany[models.ProductType](ctx, s.db.Collection(ProductTypesCollection), "mongo.list_product_types", bson.M{}, oldestFirst())
}

func (s *MongoStore) SaveProductType(ctx context.Context, pt models.ProductType) error {
	return upsert(ctx, s.db.Collection(ProductTypesCollection), "mongo.save_product_type", pt.ID, pt)
}

func (s *MongoStore) GetAttribute(ctx context.Context, id string) (models.Attribute, error) {
	return findOne[models.Attribute](ctx, s.db.Collection(AttributesCollection), "mongo.get_attribute", "attribute", id)
}

func (s *MongoStore) SaveAttribute(ctx context.Context, attr models.Attribute) error {
	return upsert(ctx, s.db.Collection(AttributesCollection), "mongo.save_attribute", attr.ID, attr)
}

func (s *MongoStore) GetOption(ctx context.Context, id string) (models.Option, error) {
	return findOne[models.Option](ctx, s.db.Collection(OptionsCollection), "mongo.get_option", "option", id)
}

func (s *MongoStore) SaveOption(ctx context.Context, opt models.Option) error {
	return upsert(ctx, s.db.Collection(OptionsCollection), "mongo.save_option", opt.ID, opt)
}

func (s *MongoStore) GetExclusionRule(ctx context.Context, id string) (models.ExclusionRule, error) {
	return findOne[models.ExclusionRule](ctx, s.db.Collection(ExclusionRulesCollection), "mongo.get_exclusion_rule", "exclusion rule", id)
}

func (s *MongoStore) SaveExclusionRule(ctx context.Context, rule models.ExclusionRule) error {
	return upsert(ctx, s.db.Collection(ExclusionRulesCollection), "mongo.save_exclusion_rule", rule.ID, rule)
}

func (s *MongoStore) DeleteExclusionRule(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if _, err := s.db.Collection(ExclusionRulesCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return apperror.Internal("mongo.delete_exclusion_rule", err)
	}
	return nil
}

func (s *MongoStore) FindTypeLevelRules(ctx context.Context, productTypeID string) ([]models.ExclusionRule, error) {
	filter := bson.M{"scope": models.RuleScopeProductType, "product_type_id": productTypeID}
	return findMany[models.ExclusionRule](ctx, s.db.Collection(ExclusionRulesCollection), "mongo.find_type_rules", filter, oldestFirst())
}

func (s *MongoStore) FindProductLevelRules(ctx context.Context, productID string) ([]models.ExclusionRule, error) {
	filter := bson.M{"scope": models.RuleScopeProduct, "product_id": productID}
	return findMany[models.ExclusionRule](ctx, s.db.Collection(ExclusionRulesCollection), "mongo.find_product_rules", filter, oldestFirst())
}

func (s *MongoStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	return findOne[models.Product](ctx, s.db.Collection(ProductsCollection), "mongo.get_product", "product", id)
}

func (s *MongoStore) SaveProduct(ctx context.Context, p models.Product) error {
	return upsert(ctx, s.db.Collection(ProductsCollection), "mongo.save_product", p.ID, p)
}

func (s *MongoStore) ListProducts(ctx context.Context, limit int) ([]models.Product, error) {
	return findMany[models.Product](ctx, s.db.Collection(ProductsCollection), "mongo.list_products", bson.M{}, newestFirst(limit))
}

func (s *MongoStore) DeleteProduct(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	result, err := s.db.Collection(ProductsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperror.Internal("mongo.delete_product", err)
	}
	if result.DeletedCount == 0 {
		return apperror.NotFound("mongo.delete_product", "product not found with ID: %s", id)
	}
	return nil
}

func (s *MongoStore) SaveAttributeOverride(ctx context.Context, o models.AttributeOverride) error {
	return upsert(ctx, s.db.Collection(AttributeOverridesCollection), "mongo.save_attribute_override", o.ID, o)
}

func (s *MongoStore) SaveOptionOverride(ctx context.Context, o models.OptionOverride) error {
	return upsert(ctx, s.db.Collection(OptionOverridesCollection), "mongo.save_option_override", o.ID, o)
}

func (s *MongoStore) SaveExclusionOverride(ctx context.Context, o models.ExclusionOverride) error {
	return upsert(ctx, s.db.Collection(ExclusionOverridesCollection), "mongo.save_exclusion_override", o.ID, o)
}

func (s *MongoStore) FindAttributeOverrides(ctx context.Context, productID string, filter OverrideFilter) ([]models.AttributeOverride, error) {
	return findMany[models.AttributeOverride](ctx, s.db.Collection(AttributeOverridesCollection),
		"mongo.find_attribute_overrides", overrideQuery(productID, "attribute_id", filter))
}

func (s *MongoStore) FindOptionOverrides(ctx context.Context, productID string, filter OverrideFilter) ([]models.OptionOverride, error) {
	return findMany[models.OptionOverride](ctx, s.db.Collection(OptionOverridesCollection),
		"mongo.find_option_overrides", overrideQuery(productID, "option_id", filter))
}

func (s *MongoStore) FindExclusionOverrides(ctx context.Context, productID string, filter OverrideFilter) ([]models.ExclusionOverride, error) {
	return findMany[models.ExclusionOverride](ctx, s.db.Collection(ExclusionOverridesCollection),
		"mongo.find_exclusion_overrides", overrideQuery(productID, "rule_id", filter))
}

func (s *MongoStore) DeleteOverridesForProduct(ctx context.Context, productID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	for _, name := range []string{AttributeOverridesCollection, OptionOverridesCollection, ExclusionOverridesCollection} {
		if _, err := s.db.Collection(name).DeleteMany(ctx, bson.M{"product_id": productID}); err != nil {
			return apperror.Internal("mongo.delete_overrides", err)
		}
	}
	return nil
}

func (s *MongoStore) SaveCartItem(ctx context.Context, item models.CartItem) error {
	return upsert(ctx, s.db.Collection(CartItemsCollection), "mongo.save_cart_item", item.ID, item)
}

func (s *MongoStore) ListRecentCartItems(ctx context.Context, limit int) ([]models.CartItem, error) {
	return findMany[models.CartItem](ctx, s.db.Collection(CartItemsCollection), "mongo.list_cart_items", bson.M{}, newestFirst(limit))
}

var _ Store = (*MongoStore)(nil)
