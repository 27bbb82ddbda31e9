// ABOUTME: Charm KV client wrapper with automatic sync support
// ABOUTME: Serialises access to a KV backend shared by the deal store and sync commands

package charm

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"

	"github.com/harperreed/dealpulse/config"
)

// kvBackend is the subset of charm/kv.KV the client uses.
type kvBackend interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
}

var _ kvBackend = (*kv.KV)(nil)

// Client wraps charm KV with config and sync helpers.
type Client struct {
	kv     kvBackend
	config *config.Config
	remote bool
	mu     sync.RWMutex
}

// NewClient opens the charm KV database on cfg.CharmHost. Toggling
// auto-sync later is saved back through cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.CharmHost == "" {
		cfg.CharmHost = config.DefaultCharmHost
	}

	_ = os.Setenv("CHARM_HOST", cfg.CharmHost)

	db, err := kv.OpenWithDefaults(config.AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{
		kv:     db,
		config: cfg,
		remote: true,
	}

	// Pull remote changes before first use
	if cfg.AutoSync {
		_ = db.Sync()
	}

	return c, nil
}

// Host is the charm server this client syncs with.
func (c *Client) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.CharmHost
}

// AutoSync reports whether writes are pushed as they happen.
func (c *Client) AutoSync() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.AutoSync
}

// SetAutoSync toggles auto-sync and persists it to the config file.
func (c *Client) SetAutoSync(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.SetAutoSync(enabled)
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if !c.remote {
		return "", fmt.Errorf("client has no charm server")
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// IsConnected checks if the client can reach charm cloud.
func (c *Client) IsConnected() bool {
	if !c.remote {
		return true
	}
	_, err := c.ID()
	return err == nil
}

// Sync performs a manual sync with the charm server.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

// Get retrieves a value by key.
func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Get(key)
}

// Set stores a value and syncs if enabled.
func (c *Client) Set(key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Set(key, value); err != nil {
		return err
	}

	// Sync while still holding lock to avoid race condition
	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
	return nil
}

// Delete removes a key and syncs if enabled.
func (c *Client) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete(key); err != nil {
		return err
	}

	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
	return nil
}

// Keys returns all keys.
func (c *Client) Keys() ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Keys()
}

// KeysWithPrefix returns all keys starting with the given prefix.
func (c *Client) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	allKeys, err := c.Keys()
	if err != nil {
		return nil, err
	}

	var matched [][]byte
	for _, k := range allKeys {
		if bytes.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// Reset wipes all data from the KV store.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}
