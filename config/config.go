package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bnguyen2/merkle-drop/crypto"
)

// Config is the daemon configuration. Unlike a generic node config there are
// no generated defaults: a drop must never start with a placeholder root or
// signer, so a missing or incomplete file is a hard error.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Env           string `toml:"Env"`

	ChainID       uint64 `toml:"ChainID"`
	MerkleRoot    string `toml:"MerkleRoot"`
	TrustedSigner string `toml:"TrustedSigner"`
	Authority     string `toml:"Authority"`
	Instance      string `toml:"Instance"`
	PoolAddress   string `toml:"PoolAddress"`

	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field required to run a drop instance.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("ListenAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("ChainID required")
	}
	if _, err := c.Root(); err != nil {
		return err
	}
	for field, value := range map[string]string{
		"TrustedSigner": c.TrustedSigner,
		"Authority":     c.Authority,
		"Instance":      c.Instance,
		"PoolAddress":   c.PoolAddress,
	} {
		if _, err := crypto.ParseAddress(value); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("RequestsPerMinute must be non-negative")
	}
	if c.Burst < 0 {
		return fmt.Errorf("Burst must be non-negative")
	}
	return nil
}

// Root decodes the committed Merkle root from its 0x-hex form.
func (c *Config) Root() ([32]byte, error) {
	var root [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(c.MerkleRoot), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return root, fmt.Errorf("MerkleRoot: %w", err)
	}
	if len(decoded) != 32 {
		return root, fmt.Errorf("MerkleRoot must be 32 bytes, got %d", len(decoded))
	}
	copy(root[:], decoded)
	if root == ([32]byte{}) {
		return root, fmt.Errorf("MerkleRoot must not be zero")
	}
	return root, nil
}

// Addresses returns the decoded address fields in declaration order:
// trusted signer, authority, instance, pool.
func (c *Config) Addresses() (signer, authority, instance, pool [20]byte, err error) {
	if signer, err = crypto.ParseAddress(c.TrustedSigner); err != nil {
		return
	}
	if authority, err = crypto.ParseAddress(c.Authority); err != nil {
		return
	}
	if instance, err = crypto.ParseAddress(c.Instance); err != nil {
		return
	}
	pool, err = crypto.ParseAddress(c.PoolAddress)
	return
}
