// Package memory is a process-local storage.Store. Cart lines are guarded by
// one mutex per account so mutations on different accounts never contend.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type cart struct {
	mu    sync.Mutex
	lines []models.CartItem
}

// Store keeps everything in maps.
type Store struct {
	mu             sync.RWMutex
	accounts       map[string]models.Account
	accountByEmail map[string]string
	accountByAddr  map[string]string
	clients        map[string]models.Client
	clientByHash   map[string]string

	cartsMu sync.Mutex
	carts   map[string]*cart

	now func() time.Time
}

func New() *Store {
	return &Store{
		accounts:       map[string]models.Account{},
		accountByEmail: map[string]string{},
		accountByAddr:  map[string]string{},
		clients:        map[string]models.Client{},
		clientByHash:   map[string]string{},
		carts:          map[string]*cart{},
		now:            time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	if err := account.Validate(); err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accountByEmail[account.Email]; ok {
		return models.Account{}, storage.ErrDuplicateEmail
	}
	if _, ok := s.accountByAddr[account.WalletAddress]; ok {
		return models.Account{}, storage.ErrDuplicateWallet
	}
	if _, ok := s.accounts[account.ID]; ok {
		return models.Account{}, storage.ErrAlreadyExists
	}
	now := s.now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now
	s.accounts[account.ID] = account
	s.accountByEmail[account.Email] = account.ID
	s.accountByAddr[account.WalletAddress] = account.ID
	return account, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.accountByEmail[email]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return account, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if passwordHash == "" {
		return fmt.Errorf("%w: empty password hash", storage.ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = s.now().UTC()
	s.accounts[id] = account
	return nil
}

func (s *Store) CreateClient(ctx context.Context, client models.Client) (models.Client, error) {
	if err := client.Validate(); err != nil {
		return models.Client{}, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clientByHash[client.APIKeyHash]; ok {
		return models.Client{}, storage.ErrAlreadyExists
	}
	if _, ok := s.clients[client.ID]; ok {
		return models.Client{}, storage.ErrAlreadyExists
	}
	client.CreatedAt = s.now().UTC()
	s.clients[client.ID] = client
	s.clientByHash[client.APIKeyHash] = client.ID
	return client, nil
}

func (s *Store) FindClientByID(ctx context.Context, id string) (models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[id]
	if !ok {
		return models.Client{}, storage.ErrNotFound
	}
	return client, nil
}

func (s *Store) FindClientByAPIKeyHash(ctx context.Context, hash string) (models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.clientByHash[hash]
	if !ok {
		return models.Client{}, storage.ErrNotFound
	}
	return s.clients[id], nil
}

// cartFor returns the cart of an existing account, creating its slot lazily.
func (s *Store) cartFor(accountID string) (*cart, error) {
	s.mu.RLock()
	_, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	s.cartsMu.Lock()
	defer s.cartsMu.Unlock()
	c, ok := s.carts[accountID]
	if !ok {
		c = &cart{}
		s.carts[accountID] = c
	}
	return c, nil
}

func (s *Store) AddOrIncrementItem(ctx context.Context, item models.CartItem) (models.CartItem, bool, error) {
	if err := item.Validate(); err != nil {
		return models.CartItem{}, false, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	c, err := s.cartFor(item.AccountID)
	if err != nil {
		return models.CartItem{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := s.now().UTC()
	for i := range c.lines {
		if c.lines[i].Product == item.Product {
			c.lines[i].Quantity += item.Quantity
			c.lines[i].UnitPrice = item.UnitPrice
			c.lines[i].UpdatedAt = now
			return c.lines[i], false, nil
		}
	}
	item.ID = uuid.NewString()
	item.CreatedAt, item.UpdatedAt = now, now
	c.lines = append(c.lines, item)
	return item, true, nil
}

func (s *Store) DecrementOrRemoveItem(ctx context.Context, accountID, itemID string) (models.CartItem, bool, error) {
	c, err := s.cartFor(accountID)
	if err != nil {
		return models.CartItem{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ID != itemID {
			continue
		}
		if c.lines[i].Quantity <= 1 {
			line := c.lines[i]
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			line.Quantity = 0
			return line, true, nil
		}
		c.lines[i].Quantity--
		c.lines[i].UpdatedAt = s.now().UTC()
		return c.lines[i], false, nil
	}
	return models.CartItem{}, false, storage.ErrNotFound
}

func (s *Store) ClearCart(ctx context.Context, accountID string) error {
	c, err := s.cartFor(accountID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
	return nil
}

func (s *Store) ListCart(ctx context.Context, accountID string) ([]models.CartItem, error) {
	c, err := s.cartFor(accountID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	out := make([]models.CartItem, len(c.lines))
	copy(out, c.lines)
	c.mu.Unlock()
	return out, nil
}
