package twofactor

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Config is the fixed relying-party identity and ceremony policy, supplied
// once at process start.
type Config struct {
	// RPID is the relying-party identifier, a domain name.
	// Example: "tour-fusion.com"
	RPID string `yaml:"id" json:"id"`

	// RPDisplayName is the human-readable relying-party name.
	RPDisplayName string `yaml:"display_name" json:"display_name"`

	// RPOrigins are the allowed origins for ceremony responses.
	// Default: ["https://" + RPID]
	RPOrigins []string `yaml:"origins" json:"origins"`

	// CeremonyTimeout is the client-side timeout conveyed in ceremony options.
	// Default: 60 seconds
	CeremonyTimeout time.Duration `yaml:"ceremony_timeout" json:"ceremony_timeout"`

	// ChallengeTTL is how long a pending challenge stays usable. A verify
	// step arriving later fails as if no challenge was issued.
	// Default: 2 minutes
	ChallengeTTL time.Duration `yaml:"challenge_ttl" json:"challenge_ttl"`

	// Debug enables verbose logging in the underlying verifier.
	Debug bool `yaml:"debug" json:"debug"`
}

// Validate checks the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if strings.Contains(c.RPID, "://") {
		return fmt.Errorf("RPID must be a bare domain, not a URL: %s", c.RPID)
	}
	if c.RPDisplayName == "" {
		return fmt.Errorf("RPDisplayName is required")
	}
	for _, origin := range c.RPOrigins {
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://localhost") {
			return fmt.Errorf("origin must be https: %s", origin)
		}
	}
	if c.CeremonyTimeout < 0 {
		return fmt.Errorf("ceremony timeout must be positive")
	}
	if c.ChallengeTTL < 0 {
		return fmt.Errorf("challenge TTL must be positive")
	}
	return nil
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if len(c.RPOrigins) == 0 && c.RPID != "" {
		c.RPOrigins = []string{"https://" + c.RPID}
	}
	if c.CeremonyTimeout == 0 {
		c.CeremonyTimeout = 60 * time.Second
	}
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = 2 * time.Minute
	}
}

// toLibraryConfig converts the Config to the go-webauthn configuration.
// Registration policy is fixed: no attestation, discoverable credential
// preferred, discouraged user verification, platform attachment preference.
func (c *Config) toLibraryConfig() *webauthn.Config {
	cfg := &webauthn.Config{
		RPID:                  c.RPID,
		RPDisplayName:         c.RPDisplayName,
		RPOrigins:             c.RPOrigins,
		AttestationPreference: protocol.PreferNoAttestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			ResidentKey:             protocol.ResidentKeyRequirementPreferred,
			UserVerification:        protocol.VerificationDiscouraged,
			AuthenticatorAttachment: protocol.Platform,
		},
		Debug: c.Debug,
	}

	if c.CeremonyTimeout > 0 {
		cfg.Timeouts = webauthn.TimeoutsConfig{
			Login: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    c.CeremonyTimeout,
				TimeoutUVD: c.CeremonyTimeout,
			},
			Registration: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    c.CeremonyTimeout,
				TimeoutUVD: c.CeremonyTimeout,
			},
		}
	}

	return cfg
}
