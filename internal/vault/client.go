package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"carbon-filing/internal/config"

	"github.com/hashicorp/vault/api"
)

// Client encrypts review notes through Vault's transit engine
type Client struct {
	client       *api.Client
	transitMount string
	keyName      string
}

// NewClient creates a new Vault client and prepares the transit key
func NewClient(cfg *config.VaultConfig) (*Client, error) {
	apiConfig := api.DefaultConfig()
	apiConfig.Address = cfg.Address

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	c := &Client{
		client:       client,
		transitMount: cfg.TransitMount,
		keyName:      cfg.KeyName,
	}

	if err := c.initTransitEngine(); err != nil {
		return nil, fmt.Errorf("failed to initialize transit engine: %w", err)
	}
	if err := c.ensureKey(); err != nil {
		return nil, fmt.Errorf("failed to ensure transit key: %w", err)
	}

	return c, nil
}

// initTransitEngine enables the transit secrets engine if not already enabled
func (c *Client) initTransitEngine() error {
	ctx := context.Background()

	mounts, err := c.client.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mounts: %w", err)
	}

	if _, exists := mounts[c.transitMount+"/"]; exists {
		return nil
	}

	err = c.client.Sys().MountWithContext(ctx, c.transitMount, &api.MountInput{
		Type:        "transit",
		Description: "Transit encryption for review notes",
	})
	if err != nil {
		return fmt.Errorf("failed to mount transit engine: %w", err)
	}

	return nil
}

// ensureKey creates the notes encryption key. Creating an existing key is a
// no-op on the Vault side.
func (c *Client) ensureKey() error {
	path := fmt.Sprintf("%s/keys/%s", c.transitMount, c.keyName)
	data := map[string]interface{}{
		"type":       "aes256-gcm96",
		"exportable": false,
	}

	if _, err := c.client.Logical().WriteWithContext(context.Background(), path, data); err != nil {
		return fmt.Errorf("failed to create key %s: %w", c.keyName, err)
	}
	return nil
}

// Encrypt encrypts plaintext, returning a vault ciphertext string
func (c *Client) Encrypt(plaintext []byte) (string, error) {
	path := fmt.Sprintf("%s/encrypt/%s", c.transitMount, c.keyName)
	data := map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	}

	secret, err := c.client.Logical().WriteWithContext(context.Background(), path, data)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return "", fmt.Errorf("invalid ciphertext response")
	}

	return ciphertext, nil
}

// Decrypt decrypts a vault ciphertext string
func (c *Client) Decrypt(ciphertext string) ([]byte, error) {
	path := fmt.Sprintf("%s/decrypt/%s", c.transitMount, c.keyName)
	data := map[string]interface{}{
		"ciphertext": ciphertext,
	}

	secret, err := c.client.Logical().WriteWithContext(context.Background(), path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	encoded, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid plaintext response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plaintext: %w", err)
	}

	return plaintext, nil
}

// Health checks Vault health status
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if !health.Initialized {
		return fmt.Errorf("vault is not initialized")
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}
