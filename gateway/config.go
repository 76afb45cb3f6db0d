package gateway

import (
	"fmt"
	"os"
	"strings"

	"github.com/dualcube/paygw-authorizenet/gateway/models"
)

// Config is a configuration for the gateway application
type Config struct {
	HTTPAddr string
	// Account is the merchant account used for every payable context when the
	// gateway runs standalone. Hosts embedding the module resolve accounts per
	// context instead.
	Account models.GatewayAccount
	// SessionTokens maps bearer tokens to user ids for the RPC surface.
	SessionTokens map[string]string
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: "localhost:8080",
		Account: models.GatewayAccount{
			Environment: "sandbox",
		},
	}
}

// LoadConfig reads the configuration from the environment. The account must
// carry a login id, transaction key and public client key before the gateway
// can be enabled.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		config.HTTPAddr = addr
	}

	config.Account.APILoginID = os.Getenv("ANET_API_LOGIN_ID")
	config.Account.TransactionKey = os.Getenv("ANET_TRANSACTION_KEY")
	config.Account.PublicClientKey = os.Getenv("ANET_PUBLIC_CLIENT_KEY")
	if env := os.Getenv("ANET_ENVIRONMENT"); env != "" {
		config.Account.Environment = env
	}

	if !config.Account.Enabled() {
		return nil, fmt.Errorf("ANET_API_LOGIN_ID, ANET_TRANSACTION_KEY and ANET_PUBLIC_CLIENT_KEY are required")
	}

	tokens, err := parseSessionTokens(os.Getenv("SESSION_TOKENS"))
	if err != nil {
		return nil, err
	}
	config.SessionTokens = tokens

	return config, nil
}

// parseSessionTokens parses "token=user,token=user" pairs.
func parseSessionTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	if raw == "" {
		return tokens, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		token, user, ok := strings.Cut(pair, "=")
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("malformed SESSION_TOKENS entry: %q", pair)
		}
		tokens[token] = user
	}
	return tokens, nil
}
