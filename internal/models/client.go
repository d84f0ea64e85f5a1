package models

import (
	"errors"
	"time"
)

// ClientStatus tracks a tenant through its lifecycle.
type ClientStatus string

const (
	ClientProvisioned ClientStatus = "provisioned"
	ClientActive      ClientStatus = "active"
)

// Client is an onboarded tenant. The API key itself is held only as a lookup
// hash and a vault envelope.
type Client struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	APIKeyHash      string       `json:"-"`
	EncryptedAPIKey string       `json:"-"`
	Status          ClientStatus `json:"status"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// Validate checks the fields a store requires before inserting.
func (c Client) Validate() error {
	switch {
	case c.ID == "":
		return errors.New("client id is required")
	case c.Name == "":
		return errors.New("client name is required")
	case c.APIKeyHash == "" || c.EncryptedAPIKey == "":
		return errors.New("client api key material is required")
	case c.Status != ClientProvisioned && c.Status != ClientActive:
		return errors.New("client status is invalid")
	}
	return nil
}
