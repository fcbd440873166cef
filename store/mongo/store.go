// Package mongo provides the MongoDB Store driver.
//
// Multi-document operations (credit settlement, cascade delete) run inside
// a session transaction, so they need a replica set or a hosted deployment
// such as Atlas — standalone mongod does not support transactions.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	rentas "github.com/kkunes/controlrentas"
	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/property"
	rentasstore "github.com/kkunes/controlrentas/store"
	"github.com/kkunes/controlrentas/tenant"
)

// Collection name constants. These match the collections the admin panel
// already reads and writes.
const (
	colCredits    = "creditBalances"
	colInvoices   = "invoices"
	colTenants    = "tenants"
	colProperties = "properties"
)

// compile-time interface check
var _ rentasstore.Store = (*Store)(nil)

// Store implements store.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a MongoDB store on the given database.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Connect dials a MongoDB deployment and returns a store on the database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("rentas/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("rentas/mongo: ping: %w", err)
	}
	return New(client, database), nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for the ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("rentas/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from the deployment.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Credit balances ====================

func (s *Store) CreateCredit(ctx context.Context, c *credit.CreditBalance) error {
	_, err := s.db.Collection(colCredits).InsertOne(ctx, toCreditModel(c))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return rentas.ErrAlreadyExists
		}
		return fmt.Errorf("rentas/mongo: create credit: %w", err)
	}
	return nil
}

func (s *Store) GetCredit(ctx context.Context, creditID id.CreditID) (*credit.CreditBalance, error) {
	var m creditModel
	err := s.db.Collection(colCredits).
		FindOne(ctx, bson.M{"_id": creditID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rentas.ErrCreditNotFound
		}
		return nil, fmt.Errorf("rentas/mongo: get credit: %w", err)
	}
	return fromCreditModel(&m)
}

func (s *Store) ListCredits(ctx context.Context, opts credit.ListOpts) ([]*credit.CreditBalance, error) {
	filter := bson.M{}
	switch opts.Status {
	case credit.StatusActive:
		filter["remaining_balance"] = bson.M{"$gt": 0}
	case credit.StatusConsumed:
		filter["remaining_balance"] = bson.M{"$lte": 0}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_date", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colCredits).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("rentas/mongo: list credits: %w", err)
	}
	defer cursor.Close(ctx)

	var models []creditModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("rentas/mongo: list credits decode: %w", err)
	}
	return creditsFromModels(models)
}

func (s *Store) ListCreditsByTenant(ctx context.Context, tenantID id.TenantID) ([]*credit.CreditBalance, error) {
	// _id sort reproduces insertion order: credit IDs are K-sortable.
	cursor, err := s.db.Collection(colCredits).Find(ctx,
		bson.M{"tenant_id": tenantID.String()},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("rentas/mongo: list credits by tenant: %w", err)
	}
	defer cursor.Close(ctx)

	var models []creditModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("rentas/mongo: list credits by tenant decode: %w", err)
	}
	return creditsFromModels(models)
}

func (s *Store) UpdateCredit(ctx context.Context, c *credit.CreditBalance) error {
	m := toCreditModel(c)
	m.UpdatedAt = now()

	res, err := s.db.Collection(colCredits).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("rentas/mongo: update credit: %w", err)
	}
	if res.MatchedCount == 0 {
		return rentas.ErrCreditNotFound
	}
	return nil
}

func (s *Store) DeleteCredit(ctx context.Context, creditID id.CreditID) error {
	res, err := s.db.Collection(colCredits).DeleteOne(ctx, bson.M{"_id": creditID.String()})
	if err != nil {
		return fmt.Errorf("rentas/mongo: delete credit: %w", err)
	}
	if res.DeletedCount == 0 {
		return rentas.ErrCreditNotFound
	}
	return nil
}

func (s *Store) DeleteCreditsByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("rentas/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	count, err := session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		res, err := s.db.Collection(colCredits).DeleteMany(ctx, bson.M{"tenant_id": tenantID.String()})
		if err != nil {
			return 0, err
		}
		return int(res.DeletedCount), nil
	})
	if err != nil {
		return 0, fmt.Errorf("rentas/mongo: cascade delete credits: %w: %w", rentas.ErrTransactionFailed, err)
	}
	return count.(int), nil
}

// ==================== Invoices ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	_, err := s.db.Collection(colInvoices).InsertOne(ctx, toInvoiceModel(inv))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return rentas.ErrAlreadyExists
		}
		return fmt.Errorf("rentas/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.db.Collection(colInvoices).
		FindOne(ctx, bson.M{"_id": invoiceID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rentas.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("rentas/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoicesByTenant(ctx context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error) {
	return s.findInvoices(ctx, bson.M{"tenant_id": tenantID.String()})
}

func (s *Store) ListOutstandingInvoices(ctx context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error) {
	return s.findInvoices(ctx, bson.M{
		"tenant_id": tenantID.String(),
		"status": bson.M{"$in": []string{
			string(invoice.StatusPending),
			string(invoice.StatusPartial),
			string(invoice.StatusOverdue),
		}},
	})
}

func (s *Store) findInvoices(ctx context.Context, filter bson.M) ([]*invoice.Invoice, error) {
	cursor, err := s.db.Collection(colInvoices).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("rentas/mongo: list invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var models []invoiceModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("rentas/mongo: list invoices decode: %w", err)
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	m.UpdatedAt = now()

	res, err := s.db.Collection(colInvoices).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("rentas/mongo: update invoice: %w", err)
	}
	if res.MatchedCount == 0 {
		return rentas.ErrInvoiceNotFound
	}
	return nil
}

// SettleCredit writes the settled invoice and the debited credit balance in
// one transaction. Either both replacements commit or neither does.
func (s *Store) SettleCredit(ctx context.Context, inv *invoice.Invoice, c *credit.CreditBalance) error {
	invModel := toInvoiceModel(inv)
	credModel := toCreditModel(c)
	t := now()
	invModel.UpdatedAt = t
	credModel.UpdatedAt = t

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("rentas/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		res, err := s.db.Collection(colInvoices).ReplaceOne(ctx, bson.M{"_id": invModel.ID}, invModel)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, rentas.ErrInvoiceNotFound
		}

		res, err = s.db.Collection(colCredits).ReplaceOne(ctx, bson.M{"_id": credModel.ID}, credModel)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, rentas.ErrCreditNotFound
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, rentas.ErrInvoiceNotFound) || errors.Is(err, rentas.ErrCreditNotFound) {
			return err
		}
		return fmt.Errorf("rentas/mongo: settle credit: %w: %w", rentas.ErrTransactionFailed, err)
	}
	return nil
}

// ==================== Lookups ====================

func (s *Store) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	var m tenantModel
	err := s.db.Collection(colTenants).
		FindOne(ctx, bson.M{"_id": tenantID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rentas.ErrTenantNotFound
		}
		return nil, fmt.Errorf("rentas/mongo: get tenant: %w", err)
	}
	return fromTenantModel(&m)
}

func (s *Store) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	cursor, err := s.db.Collection(colTenants).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("rentas/mongo: list tenants: %w", err)
	}
	defer cursor.Close(ctx)

	var models []tenantModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("rentas/mongo: list tenants decode: %w", err)
	}

	result := make([]*tenant.Tenant, len(models))
	for i := range models {
		t, err := fromTenantModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) GetProperty(ctx context.Context, propertyID id.PropertyID) (*property.Property, error) {
	var m propertyModel
	err := s.db.Collection(colProperties).
		FindOne(ctx, bson.M{"_id": propertyID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rentas.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("rentas/mongo: get property: %w", err)
	}
	return fromPropertyModel(&m)
}

func (s *Store) ListProperties(ctx context.Context) ([]*property.Property, error) {
	cursor, err := s.db.Collection(colProperties).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("rentas/mongo: list properties: %w", err)
	}
	defer cursor.Close(ctx)

	var models []propertyModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("rentas/mongo: list properties decode: %w", err)
	}

	result := make([]*property.Property, len(models))
	for i := range models {
		p, err := fromPropertyModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Helpers ====================

func creditsFromModels(models []creditModel) ([]*credit.CreditBalance, error) {
	result := make([]*credit.CreditBalance, len(models))
	for i := range models {
		c, err := fromCreditModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCredits: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "remaining_balance", Value: -1}}},
			{Keys: bson.D{{Key: "created_date", Value: -1}}},
		},
		colInvoices: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "property_id", Value: 1}}},
		},
		colTenants: {
			{Keys: bson.D{{Key: "property_id", Value: 1}}},
		},
		colProperties: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
	}
}
