package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// Market is the genesis configuration used to instantiate the market on
// first start. The owner is the account that controls the market and
// receives the first key.
type Market struct {
	Username           string `yaml:"username"`
	FeeDenom           string `yaml:"fee_denom"`
	IssuerFeeCollector string `yaml:"issuer_fee_collector"`
	Owner              string `yaml:"owner"`
}

// LoadMarket reads the genesis file at path, if any, then applies the
// MARKET_* environment overrides and validates the result.
func LoadMarket(path string) (*Market, error) {
	var m Market
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read market config: %w", err)
		}
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse market config: %w", err)
		}
	}

	m.overrideWithEnv()

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid market configuration: %w", err)
	}
	return &m, nil
}

func (m *Market) overrideWithEnv() {
	m.Username = getStr("MARKET_USERNAME", m.Username)
	m.FeeDenom = getStr("MARKET_FEE_DENOM", m.FeeDenom)
	m.IssuerFeeCollector = getStr("MARKET_FEE_COLLECTOR", m.IssuerFeeCollector)
	m.Owner = getStr("MARKET_OWNER", m.Owner)
}

// Validate checks that every genesis field is usable.
func (m *Market) Validate() error {
	if m.FeeDenom == "" {
		return fmt.Errorf("fee_denom is required")
	}
	if _, err := domain.ParseAddress(m.IssuerFeeCollector); err != nil {
		return fmt.Errorf("issuer_fee_collector: %w", err)
	}
	if _, err := domain.ParseAddress(m.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	return nil
}
