// Package mongo stores accounts, carts and clients in MongoDB. Cart lines are
// separate documents with a unique (account_id, product) index, so every cart
// mutation is a single atomic document operation.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const (
	accountsCollection = "accounts"
	cartCollection     = "cart_items"
	clientsCollection  = "clients"

	emailIndex  = "email_unique"
	walletIndex = "wallet_address_unique"

	maxAttempts = 3
)

type accountDoc struct {
	ID                  string    `bson:"_id"`
	Email               string    `bson:"email"`
	PasswordHash        string    `bson:"password_hash"`
	WalletAddress       string    `bson:"wallet_address"`
	EncryptedPrivateKey string    `bson:"encrypted_private_key"`
	EncryptedMnemonic   string    `bson:"encrypted_mnemonic"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

type clientDoc struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	APIKeyHash      string    `bson:"api_key_hash"`
	EncryptedAPIKey string    `bson:"encrypted_api_key"`
	Status          string    `bson:"status"`
	CreatedAt       time.Time `bson:"created_at"`
}

type cartItemDoc struct {
	ID        string               `bson:"_id"`
	AccountID string               `bson:"account_id"`
	Product   string               `bson:"product"`
	Quantity  int64                `bson:"quantity"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

// Store is a MongoDB-backed storage.Store.
type Store struct {
	client   *mongo.Client
	accounts *mongo.Collection
	cart     *mongo.Collection
	clients  *mongo.Collection
}

// NewStore connects to uri, selects database and ensures indexes exist.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	db := client.Database(database)
	s := &Store{
		client:   client,
		accounts: db.Collection(accountsCollection),
		cart:     db.Collection(cartCollection),
		clients:  db.Collection(clientsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(name string, keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetName(name)}
	}
	if _, err := s.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique(emailIndex, bson.D{{Key: "email", Value: 1}}),
		unique(walletIndex, bson.D{{Key: "wallet_address", Value: 1}}),
	}); err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	if _, err := s.clients.Indexes().CreateOne(ctx, unique("api_key_hash_unique", bson.D{{Key: "api_key_hash", Value: 1}})); err != nil {
		return fmt.Errorf("create client indexes: %w", err)
	}
	if _, err := s.cart.Indexes().CreateOne(ctx, unique("account_product_unique", bson.D{{Key: "account_id", Value: 1}, {Key: "product", Value: 1}})); err != nil {
		return fmt.Errorf("create cart indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	if err := account.Validate(); err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	account.CreatedAt, account.UpdatedAt = now, now
	if _, err := s.accounts.InsertOne(ctx, toAccountDoc(account)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			switch {
			case strings.Contains(err.Error(), emailIndex):
				return models.Account{}, storage.ErrDuplicateEmail
			case strings.Contains(err.Error(), walletIndex):
				return models.Account{}, storage.ErrDuplicateWallet
			default:
				return models.Account{}, storage.ErrAlreadyExists
			}
		}
		return models.Account{}, classify("create account", err)
	}
	return account, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.findAccount(ctx, "find account by email", bson.M{"email": email})
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	return s.findAccount(ctx, "find account by id", bson.M{"_id": id})
}

func (s *Store) findAccount(ctx context.Context, op string, filter bson.M) (models.Account, error) {
	var doc accountDoc
	if err := s.accounts.FindOne(ctx, filter).Decode(&doc); err != nil {
		return models.Account{}, classify(op, err)
	}
	return doc.model(), nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if passwordHash == "" {
		return fmt.Errorf("%w: empty password hash", storage.ErrInvalidRecord)
	}
	res, err := s.accounts.UpdateByID(ctx, id, bson.M{"$set": bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()}})
	if err != nil {
		return classify("update password hash", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateClient(ctx context.Context, client models.Client) (models.Client, error) {
	if err := client.Validate(); err != nil {
		return models.Client{}, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	client.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc := clientDoc{
		ID:              client.ID,
		Name:            client.Name,
		APIKeyHash:      client.APIKeyHash,
		EncryptedAPIKey: client.EncryptedAPIKey,
		Status:          string(client.Status),
		CreatedAt:       client.CreatedAt,
	}
	if _, err := s.clients.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Client{}, storage.ErrAlreadyExists
		}
		return models.Client{}, classify("create client", err)
	}
	return client, nil
}

func (s *Store) FindClientByID(ctx context.Context, id string) (models.Client, error) {
	return s.findClient(ctx, "find client by id", bson.M{"_id": id})
}

func (s *Store) FindClientByAPIKeyHash(ctx context.Context, hash string) (models.Client, error) {
	return s.findClient(ctx, "find client by api key", bson.M{"api_key_hash": hash})
}

func (s *Store) findClient(ctx context.Context, op string, filter bson.M) (models.Client, error) {
	var doc clientDoc
	if err := s.clients.FindOne(ctx, filter).Decode(&doc); err != nil {
		return models.Client{}, classify(op, err)
	}
	return models.Client{
		ID:              doc.ID,
		Name:            doc.Name,
		APIKeyHash:      doc.APIKeyHash,
		EncryptedAPIKey: doc.EncryptedAPIKey,
		Status:          models.ClientStatus(doc.Status),
		CreatedAt:       doc.CreatedAt,
	}, nil
}

func (s *Store) requireAccount(ctx context.Context, accountID string) error {
	n, err := s.accounts.CountDocuments(ctx, bson.M{"_id": accountID}, options.Count().SetLimit(1))
	if err != nil {
		return classify("find account", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddOrIncrementItem upserts the (account, product) line with $inc. Two racing
// upserts may collide on the unique index; the loser retries and increments.
func (s *Store) AddOrIncrementItem(ctx context.Context, item models.CartItem) (models.CartItem, bool, error) {
	if err := item.Validate(); err != nil {
		return models.CartItem{}, false, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	if err := s.requireAccount(ctx, item.AccountID); err != nil {
		return models.CartItem{}, false, err
	}
	price, err := primitive.ParseDecimal128(item.UnitPrice.String())
	if err != nil {
		return models.CartItem{}, false, fmt.Errorf("%w: price %s", storage.ErrInvalidRecord, item.UnitPrice)
	}

	filter := bson.M{"account_id": item.AccountID, "product": item.Product}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	for attempt := 1; ; attempt++ {
		id := uuid.NewString()
		now := time.Now().UTC().Truncate(time.Millisecond)
		update := bson.M{
			"$inc":         bson.M{"quantity": item.Quantity},
			"$set":         bson.M{"unit_price": price, "updated_at": now},
			"$setOnInsert": bson.M{"_id": id, "created_at": now},
		}
		var doc cartItemDoc
		err := s.cart.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if err == nil {
			line, err := doc.model()
			return line, doc.ID == id, err
		}
		if !mongo.IsDuplicateKeyError(err) || attempt == maxAttempts {
			return models.CartItem{}, false, classify("add cart item", err)
		}
	}
}

// DecrementOrRemoveItem decrements lines above one and deletes lines at one.
// Each branch is conditional on the quantity it expects, so a concurrent
// change just sends us around the loop again.
func (s *Store) DecrementOrRemoveItem(ctx context.Context, accountID, itemID string) (models.CartItem, bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var doc cartItemDoc
		err := s.cart.FindOneAndUpdate(ctx,
			bson.M{"_id": itemID, "account_id": accountID, "quantity": bson.M{"$gt": 1}},
			bson.M{"$inc": bson.M{"quantity": -1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
		if err == nil {
			line, err := doc.model()
			return line, false, err
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.CartItem{}, false, classify("remove cart item", err)
		}

		err = s.cart.FindOneAndDelete(ctx, bson.M{"_id": itemID, "account_id": accountID, "quantity": bson.M{"$lte": 1}}).Decode(&doc)
		if err == nil {
			line, err := doc.model()
			line.Quantity = 0
			return line, true, err
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.CartItem{}, false, classify("remove cart item", err)
		}
	}
	return models.CartItem{}, false, storage.ErrNotFound
}

func (s *Store) ClearCart(ctx context.Context, accountID string) error {
	if err := s.requireAccount(ctx, accountID); err != nil {
		return err
	}
	if _, err := s.cart.DeleteMany(ctx, bson.M{"account_id": accountID}); err != nil {
		return classify("clear cart", err)
	}
	return nil
}

func (s *Store) ListCart(ctx context.Context, accountID string) ([]models.CartItem, error) {
	if err := s.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	cursor, err := s.cart.Find(ctx, bson.M{"account_id": accountID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, classify("list cart", err)
	}
	var docs []cartItemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify("list cart", err)
	}
	items := make([]models.CartItem, 0, len(docs))
	for _, doc := range docs {
		item, err := doc.model()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func toAccountDoc(a models.Account) accountDoc {
	return accountDoc{
		ID:                  a.ID,
		Email:               a.Email,
		PasswordHash:        a.PasswordHash,
		WalletAddress:       a.WalletAddress,
		EncryptedPrivateKey: a.EncryptedPrivateKey,
		EncryptedMnemonic:   a.EncryptedMnemonic,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func (d accountDoc) model() models.Account {
	return models.Account{
		ID:                  d.ID,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		WalletAddress:       d.WalletAddress,
		EncryptedPrivateKey: d.EncryptedPrivateKey,
		EncryptedMnemonic:   d.EncryptedMnemonic,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func (d cartItemDoc) model() (models.CartItem, error) {
	price, err := decimal.NewFromString(d.UnitPrice.String())
	if err != nil {
		return models.CartItem{}, fmt.Errorf("%w: price %q", storage.ErrInvalidRecord, d.UnitPrice.String())
	}
	return models.CartItem{
		ID:        d.ID,
		AccountID: d.AccountID,
		Product:   d.Product,
		Quantity:  d.Quantity,
		UnitPrice: price,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func classify(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return storage.Unavailable(op, err)
}
