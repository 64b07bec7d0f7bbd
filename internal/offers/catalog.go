// Package offers resolves an offer id to the Stripe price and purchase mode
// used at checkout. The two lookups are independent: an offer with a price
// but no mode (or the reverse) cannot be sold.
package offers

import (
	"fmt"
	"os"
	"strings"

	stripego "github.com/stripe/stripe-go/v82"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPricePrefix prefixes the per-offer price variables, e.g. STRIPE_PRICE_CLUB.
	EnvPricePrefix = "STRIPE_PRICE_"
	// EnvOfferPrices lists extra prices as "offer=price_id" pairs separated by commas.
	EnvOfferPrices = "STRIPE_OFFER_PRICES"
)

// DefaultModes is the built-in purchase mode of every offer sold on the page.
var DefaultModes = map[string]stripego.CheckoutSessionMode{
	"consultation": stripego.CheckoutSessionModePayment,
	"path":         stripego.CheckoutSessionModePayment,
	"intensive":    stripego.CheckoutSessionModePayment,
	"club":         stripego.CheckoutSessionModeSubscription,
}

// Catalog holds the offer→price and offer→mode tables. The zero value is an
// empty catalog.
type Catalog struct {
	prices map[string]string
	modes  map[string]stripego.CheckoutSessionMode
}

// New builds a catalog from explicit tables.
func New(prices map[string]string, modes map[string]stripego.CheckoutSessionMode) Catalog {
	c := Catalog{
		prices: make(map[string]string, len(prices)),
		modes:  make(map[string]stripego.CheckoutSessionMode, len(modes)),
	}
	for id, price := range prices {
		if price = strings.TrimSpace(price); price != "" {
			c.prices[id] = price
		}
	}
	for id, mode := range modes {
		c.modes[id] = mode
	}
	return c
}

// PriceID returns the Stripe price configured for offerID.
func (c Catalog) PriceID(offerID string) (string, bool) {
	price, ok := c.prices[offerID]
	return price, ok
}

// Mode returns the purchase mode configured for offerID.
func (c Catalog) Mode(offerID string) (stripego.CheckoutSessionMode, bool) {
	mode, ok := c.modes[offerID]
	return mode, ok
}

// Offers returns the number of offers with a price and the number with a mode.
func (c Catalog) Offers() (priced, moded int) {
	return len(c.prices), len(c.modes)
}

// PriceEnvName returns the environment variable holding the price for offerID.
func PriceEnvName(offerID string) string {
	return EnvPricePrefix + strings.ToUpper(strings.ReplaceAll(offerID, "-", "_"))
}

// Load assembles the catalog from the built-in modes, per-offer price
// variables, STRIPE_OFFER_PRICES and, when path is set, a YAML catalog file.
// Later sources override earlier ones.
func Load(getenv func(string) string, path string) (Catalog, error) {
	prices := map[string]string{}
	modes := map[string]stripego.CheckoutSessionMode{}
	for id, mode := range DefaultModes {
		modes[id] = mode
		if price := getenv(PriceEnvName(id)); price != "" {
			prices[id] = price
		}
	}

	extra, err := parsePairs(getenv(EnvOfferPrices))
	if err != nil {
		return Catalog{}, fmt.Errorf("invalid %s: %w", EnvOfferPrices, err)
	}
	for id, price := range extra {
		prices[id] = price
	}

	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return Catalog{}, err
		}
		if err := file.apply(getenv, prices, modes); err != nil {
			return Catalog{}, fmt.Errorf("offers file %s: %w", path, err)
		}
	}

	return New(prices, modes), nil
}

type fileEntry struct {
	ID       string `yaml:"id"`
	Mode     string `yaml:"mode"`
	PriceID  string `yaml:"price_id"`
	PriceEnv string `yaml:"price_env"`
}

type catalogFile struct {
	Offers []fileEntry `yaml:"offers"`
}

func readFile(path string) (*catalogFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read offers file: %w", err)
	}
	return parseFile(raw)
}

func parseFile(raw []byte) (*catalogFile, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse offers file: %w", err)
	}
	return &file, nil
}

func (f *catalogFile) apply(getenv func(string) string, prices map[string]string, modes map[string]stripego.CheckoutSessionMode) error {
	for i, entry := range f.Offers {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return fmt.Errorf("offer #%d has no id", i+1)
		}

		if entry.Mode != "" {
			mode, err := ParseMode(entry.Mode)
			if err != nil {
				return fmt.Errorf("offer %q: %w", id, err)
			}
			modes[id] = mode
		}

		price := entry.PriceID
		if entry.PriceEnv != "" {
			if fromEnv := getenv(entry.PriceEnv); fromEnv != "" {
				price = fromEnv
			}
		}
		if price != "" {
			prices[id] = price
		}
	}
	return nil
}

// ParseMode accepts Stripe's mode names plus the one-time/recurring aliases.
func ParseMode(s string) (stripego.CheckoutSessionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "payment", "one-time", "one_time":
		return stripego.CheckoutSessionModePayment, nil
	case "subscription", "recurring":
		return stripego.CheckoutSessionModeSubscription, nil
	default:
		return "", fmt.Errorf("unsupported purchase mode %q", s)
	}
}

func parsePairs(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, price, ok := strings.Cut(part, "=")
		id, price = strings.TrimSpace(id), strings.TrimSpace(price)
		if !ok || id == "" || price == "" {
			return nil, fmt.Errorf("expected offer=price, got %q", part)
		}
		out[id] = price
	}
	return out, nil
}
