package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage"
	"github.com/hongminglow/custody-be/internal/storage/postgres/migrations"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// gooseUpContext is a seam for tests.
var gooseUpContext = goose.UpContext

// Store provides Postgres-backed persistence for accounts, carts and clients.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to databaseURL and applies pending migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return runMigrations(ctx, db)
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

const accountColumns = `id, email, password_hash, wallet_address, encrypted_private_key, encrypted_mnemonic, created_at, updated_at`

// CreateAccount inserts a new account row.
func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	if err := account.Validate(); err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	query := `
		INSERT INTO accounts (id, email, password_hash, wallet_address, encrypted_private_key, encrypted_mnemonic)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + accountColumns
	row := s.pool.QueryRow(ctx, query, account.ID, account.Email, account.PasswordHash,
		account.WalletAddress, account.EncryptedPrivateKey, account.EncryptedMnemonic)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
			switch pgErr.ConstraintName {
			case "accounts_email_unique":
				return models.Account{}, storage.ErrDuplicateEmail
			case "accounts_wallet_address_unique":
				return models.Account{}, storage.ErrDuplicateWallet
			default:
				return models.Account{}, storage.ErrAlreadyExists
			}
		}
		return models.Account{}, classify("create account", err)
	}
	return created, nil
}

// FindAccountByEmail fetches an account by normalized email.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	account, err := scanAccount(row)
	return account, classify("find account by email", err)
}

// FindAccountByID fetches an account by id.
func (s *Store) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	return account, classify("find account by id", err)
}

// UpdatePasswordHash replaces the stored hash. Nothing else on the row changes.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if passwordHash == "" {
		return fmt.Errorf("%w: empty password hash", storage.ErrInvalidRecord)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return classify("update password hash", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const clientColumns = `id, name, api_key_hash, encrypted_api_key, status, created_at`

// CreateClient inserts a tenant.
func (s *Store) CreateClient(ctx context.Context, client models.Client) (models.Client, error) {
	if err := client.Validate(); err != nil {
		return models.Client{}, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	query := `
		INSERT INTO clients (id, name, api_key_hash, encrypted_api_key, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + clientColumns
	row := s.pool.QueryRow(ctx, query, client.ID, client.Name, client.APIKeyHash, client.EncryptedAPIKey, string(client.Status))
	created, err := scanClient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
			return models.Client{}, storage.ErrAlreadyExists
		}
		return models.Client{}, classify("create client", err)
	}
	return created, nil
}

// FindClientByID fetches a tenant by id.
func (s *Store) FindClientByID(ctx context.Context, id string) (models.Client, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	client, err := scanClient(row)
	return client, classify("find client by id", err)
}

// FindClientByAPIKeyHash fetches a tenant by the hash of its API key.
func (s *Store) FindClientByAPIKeyHash(ctx context.Context, hash string) (models.Client, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE api_key_hash = $1`, hash)
	client, err := scanClient(row)
	return client, classify("find client by api key", err)
}

const cartColumns = `id, account_id, product, quantity, unit_price::text, created_at, updated_at`

// AddOrIncrementItem upserts on (account_id, product) so concurrent adds of
// the same product collapse into one line.
func (s *Store) AddOrIncrementItem(ctx context.Context, item models.CartItem) (models.CartItem, bool, error) {
	if err := item.Validate(); err != nil {
		return models.CartItem{}, false, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	query := `
		INSERT INTO cart_items (id, account_id, product, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5::numeric)
		ON CONFLICT (account_id, product) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
		    unit_price = EXCLUDED.unit_price,
		    updated_at = NOW()
		RETURNING ` + cartColumns + `, (xmax = 0) AS inserted`
	row := s.pool.QueryRow(ctx, query, uuid.NewString(), item.AccountID, item.Product, item.Quantity, item.UnitPrice.String())

	var line models.CartItem
	var price string
	var inserted bool
	err := row.Scan(&line.ID, &line.AccountID, &line.Product, &line.Quantity, &price, &line.CreatedAt, &line.UpdatedAt, &inserted)
	if err != nil {
		return models.CartItem{}, false, classify("add cart item", err)
	}
	if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return models.CartItem{}, false, fmt.Errorf("%w: price %q", storage.ErrInvalidRecord, price)
	}
	return line, inserted, nil
}

// DecrementOrRemoveItem locks the line, then either decrements or deletes it.
func (s *Store) DecrementOrRemoveItem(ctx context.Context, accountID, itemID string) (models.CartItem, bool, error) {
	var line models.CartItem
	var removed bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var quantity int64
		err := tx.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE id = $1 AND account_id = $2 FOR UPDATE`, itemID, accountID).Scan(&quantity)
		if err != nil {
			return err
		}
		if quantity <= 1 {
			removed = true
			line, err = scanCartItem(tx.QueryRow(ctx, `DELETE FROM cart_items WHERE id = $1 RETURNING `+cartColumns, itemID))
			line.Quantity = 0
			return err
		}
		line, err = scanCartItem(tx.QueryRow(ctx,
			`UPDATE cart_items SET quantity = quantity - 1, updated_at = NOW() WHERE id = $1 RETURNING `+cartColumns, itemID))
		return err
	})
	if err != nil {
		return models.CartItem{}, false, classify("remove cart item", err)
	}
	return line, removed, nil
}

// ClearCart deletes every line of the account.
func (s *Store) ClearCart(ctx context.Context, accountID string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE account_id = $1`, accountID)
		return err
	})
	if err != nil {
		return classify("clear cart", err)
	}
	return nil
}

// ListCart returns the account's lines in insertion order.
func (s *Store) ListCart(ctx context.Context, accountID string) ([]models.CartItem, error) {
	if err := requireAccount(ctx, s.pool, accountID); err != nil {
		return nil, classify("list cart", err)
	}
	rows, err := s.pool.Query(ctx, `SELECT `+cartColumns+` FROM cart_items WHERE account_id = $1 ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, classify("list cart", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CartItem, error) {
		return scanCartItem(row)
	})
	if err != nil {
		return nil, classify("list cart", err)
	}
	return items, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// requireAccount fails with pgx.ErrNoRows when the account does not exist.
func requireAccount(ctx context.Context, q rowQuerier, accountID string) error {
	var id string
	return q.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1`, accountID).Scan(&id)
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.WalletAddress, &a.EncryptedPrivateKey, &a.EncryptedMnemonic, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func scanClient(row pgx.Row) (models.Client, error) {
	var c models.Client
	var status string
	err := row.Scan(&c.ID, &c.Name, &c.APIKeyHash, &c.EncryptedAPIKey, &status, &c.CreatedAt)
	c.Status = models.ClientStatus(status)
	return c, err
}

func scanCartItem(row pgx.Row) (models.CartItem, error) {
	var item models.CartItem
	var price string
	if err := row.Scan(&item.ID, &item.AccountID, &item.Product, &item.Quantity, &price, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return models.CartItem{}, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return models.CartItem{}, fmt.Errorf("%w: price %q", storage.ErrInvalidRecord, price)
	}
	item.UnitPrice = parsed
	return item, nil
}

// classify turns driver errors into storage sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, storage.ErrInvalidRecord) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		return storage.ErrNotFound
	}
	return storage.Unavailable(op, err)
}
