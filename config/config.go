package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Environment variables read by the commands.
const (
	EnvPassword  = "FHE2048_PASSWORD"
	EnvRPCURL    = "FHE2048_RPC_URL"
	EnvJWTSecret = "FHE2048_JWT_SECRET"
)

// NodeConfig configures the development node.
type NodeConfig struct {
	DataDir  string `json:"data_dir"`
	RPCAddr  string `json:"rpc_addr"`
	ChainID  uint64 `json:"chain_id"`
	Contract string `json:"contract,omitempty"` // empty → derived from chain id
	WinScore uint64 `json:"win_score"`
	// Deployments is the address book the node records its contract in.
	Deployments string     `json:"deployments"`
	TLS         *TLSConfig `json:"tls,omitempty"`
}

// ClientConfig configures the game client.
type ClientConfig struct {
	RPCURL       string     `json:"rpc_url"`
	ChainID      uint64     `json:"chain_id"`
	KeyPath      string     `json:"key_path"`
	SignatureDir string     `json:"signature_dir"`
	Deployments  string     `json:"deployments"`
	PermitDays   int64      `json:"permit_days"` // validity of a decryption signature; 0 → 365
	TLS          *TLSConfig `json:"tls,omitempty"`
}

// Config holds node and client configuration.
type Config struct {
	Node      NodeConfig   `json:"node"`
	Client    ClientConfig `json:"client"`
	JWTSecret string       `json:"jwt_secret,omitempty"` // empty → RPC auth disabled
	LogLevel  string       `json:"log_level"`
}

// DefaultConfig returns a single-machine development configuration.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			DataDir:     "./data/node",
			RPCAddr:     "127.0.0.1:8545",
			ChainID:     31337,
			WinScore:    20000,
			Deployments: "./deployments.json",
		},
		Client: ClientConfig{
			RPCURL:       "http://127.0.0.1:8545",
			ChainID:      31337,
			KeyPath:      "player.key",
			SignatureDir: "./data/signatures",
			Deployments:  "./deployments.json",
			PermitDays:   365,
		},
		LogLevel: "info",
	}
}

// Load reads a JSON config file from path. Fields absent from the file keep
// their defaults; environment overrides are applied last.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadOrDefault is Load, falling back to DefaultConfig when path does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return cfg, err
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	c.Client.RPCURL = GetEnvDefault(EnvRPCURL, c.Client.RPCURL)
	c.JWTSecret = GetEnvDefault(EnvJWTSecret, c.JWTSecret)
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// GetEnvDefault returns the environment variable key, or def when it is
// unset or empty.
func GetEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// NewLogger returns a text logger writing to w at the named level. Unknown
// levels log at info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv}))
}
