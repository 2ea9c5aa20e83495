package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"pantrack/internal/ledgerd"
)

// ClientConfig is the panscan driver-tool configuration.
type ClientConfig struct {
	LedgerURL   string `toml:"ledger_url"`
	Token       string `toml:"token"`
	Timeout     string `toml:"timeout"`
	SessionFile string `toml:"session_file"`
	DriverName  string `toml:"driver_name"`
}

// ServerConfig is the ledgerd service configuration.
type ServerConfig struct {
	ID          string     `toml:"id"`
	Addr        string     `toml:"addr"`
	Token       string     `toml:"token"`
	OfficeCode  string     `toml:"office_code"`
	LocationID  int        `toml:"location_id"`
	Location    string     `toml:"location"`
	SessionTTL  string     `toml:"session_ttl"`
	CorsOrigins []string   `toml:"cors_origins"`
	Slips       []SlipSeed `toml:"slips"`
}

// SlipSeed registers one slip in the in-memory ledger at boot.
type SlipSeed struct {
	ID            int    `toml:"id"`
	SlipNumber    string `toml:"slip_number"`
	CaseID        int    `toml:"case_id"`
	CaseNumber    string `toml:"case_number"`
	PatientName   string `toml:"patient_name"`
	CasepanNumber string `toml:"casepan_number"`
	CustomerCode  string `toml:"customer_code"`
	CustomerID    int    `toml:"customer_id"`
	Location      string `toml:"location"`
}

func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if cfg.Timeout == "" {
		cfg.Timeout = "10s"
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func LoadServerConfig(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if cfg.ID == "" {
		cfg.ID = "ledgerd"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9200"
	}
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.LedgerURL) == "" {
		return fmt.Errorf("client config missing ledger_url")
	}
	if _, err := cfg.RequestTimeout(); err != nil {
		return err
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("server config missing id")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("server config missing addr")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return fmt.Errorf("server config missing token")
	}
	if _, err := cfg.TTL(); err != nil {
		return err
	}
	for i, slip := range cfg.Slips {
		if err := ValidateSlipSeed(slip); err != nil {
			return fmt.Errorf("slips[%d] invalid: %w", i, err)
		}
	}
	return nil
}

func ValidateSlipSeed(slip SlipSeed) error {
	if slip.ID <= 0 {
		return fmt.Errorf("id must be positive")
	}
	if slip.CaseID <= 0 {
		return fmt.Errorf("case_id must be positive")
	}
	if strings.TrimSpace(slip.SlipNumber) == "" {
		return fmt.Errorf("slip_number is required")
	}
	return nil
}

// RequestTimeout parses the configured timeout.
func (c ClientConfig) RequestTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.Timeout)
	if raw == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("client config invalid timeout: %w", err)
	}
	return d, nil
}

// TTL parses the configured session expiry.
func (c ServerConfig) TTL() (time.Duration, error) {
	raw := strings.TrimSpace(c.SessionTTL)
	if raw == "" {
		return 12 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("server config invalid session_ttl: %w", err)
	}
	return d, nil
}

// StoreConfig converts the server config into the ledger store shape.
func (c ServerConfig) StoreConfig() ledgerd.StoreConfig {
	ttl, _ := c.TTL()
	return ledgerd.StoreConfig{
		OfficeCode: c.OfficeCode,
		LocationID: c.LocationID,
		Location:   c.Location,
		SessionTTL: ttl,
	}
}

// SeedStore registers every configured slip.
func (c ServerConfig) SeedStore(store *ledgerd.Store) {
	for _, slip := range c.Slips {
		store.AddSlip(ledgerd.Slip{
			ID:            slip.ID,
			SlipNumber:    slip.SlipNumber,
			CaseID:        slip.CaseID,
			CaseNumber:    slip.CaseNumber,
			PatientName:   slip.PatientName,
			CasepanNumber: slip.CasepanNumber,
			CustomerCode:  slip.CustomerCode,
			CustomerID:    slip.CustomerID,
		}, slip.Location)
	}
}
