package types

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/harness/cpi-sync/util/common/errors"
)

// Toggle is an "enabled"/"disabled" switch as written in the config file
type Toggle string

const (
	Enabled  Toggle = "enabled"
	Disabled Toggle = "disabled"
)

// On reports whether the toggle is enabled
func (t Toggle) On() bool {
	return t == Enabled
}

type Operation string

const (
	Include Operation = "include"
	Exclude Operation = "exclude"
)

type RuleType string

const (
	RuleRegex  RuleType = "regex"
	RuleSingle RuleType = "single"
	RuleGlob   RuleType = "glob"
)

const (
	DefaultWorkerCount = 5
	DefaultConfigFile  = "./cpi-sync.json"
)

// Config represents the top-level configuration structure
type Config struct {
	Version  string   `yaml:"cpisync"`
	Tenant   Tenant   `yaml:"tenant"`
	Packages Packages `yaml:"packages"`
}

// Tenant is the management API endpoint and the credential used against it
type Tenant struct {
	ManagementHost string     `yaml:"management_host"`
	Credential     Credential `yaml:"credential"`
}

// Credential is a closed variant: exactly one of the fields is set.
type Credential struct {
	SUser *SUserCredential        `yaml:"s_user,omitempty"`
	OAuth *OAuthClientCredentials `yaml:"oauth_client_credentials,omitempty"`
}

// SUserCredential authenticates with HTTP basic auth
type SUserCredential struct {
	Username                    string `yaml:"username"`
	PasswordEnvironmentVariable string `yaml:"password_environment_variable,omitempty"`
}

// OAuthClientCredentials authenticates with a bearer token obtained through
// the client credentials grant
type OAuthClientCredentials struct {
	ClientID                        string `yaml:"client_id"`
	TokenEndpointURL                string `yaml:"token_endpoint_url"`
	ClientSecretEnvironmentVariable string `yaml:"client_secret_environment_variable,omitempty"`
}

// Principal returns the user name or client id the secret belongs to
func (c Credential) Principal() string {
	switch {
	case c.SUser != nil:
		return c.SUser.Username
	case c.OAuth != nil:
		return c.OAuth.ClientID
	}
	return ""
}

// SecretEnvironmentVariable returns the configured variable holding the secret, if any
func (c Credential) SecretEnvironmentVariable() string {
	switch {
	case c.SUser != nil:
		return c.SUser.PasswordEnvironmentVariable
	case c.OAuth != nil:
		return c.OAuth.ClientSecretEnvironmentVariable
	}
	return ""
}

// Packages holds package selection and materialization options
type Packages struct {
	ZipExtraction       Toggle       `yaml:"zip_extraction"`
	PropCommentRemoval  Toggle       `yaml:"prop_comment_removal"`
	LocalDir            string       `yaml:"local_dir"`
	DownloadWorkerCount int          `yaml:"download_worker_count"`
	IgnoreErrorDownload bool         `yaml:"ignore_error_download"`
	FilterRules         []FilterRule `yaml:"filter_rules"`
}

// FilterRule is one include/exclude directive. Regex and glob rules use
// Pattern, single rules use ID.
type FilterRule struct {
	Type      RuleType  `yaml:"type"`
	Operation Operation `yaml:"operation"`
	Pattern   string    `yaml:"pattern,omitempty"`
	ID        string    `yaml:"id,omitempty"`
}

func (r FilterRule) String() string {
	if r.Type == RuleSingle {
		return fmt.Sprintf("%s(%s, %s)", r.Type, r.Operation, r.ID)
	}
	return fmt.Sprintf("%s(%s, %q)", r.Type, r.Operation, r.Pattern)
}

// LoadConfig loads the configuration from a file. JSON documents are valid
// YAML, so both cpi-sync.json and YAML files are accepted.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes, defaults and validates a configuration document
func ParseConfig(data []byte) (*Config, error) {
	expandedData := expandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// OutputDir resolves the configured local directory against the directory of
// the config file. Absolute local directories are used as they are.
func (c *Config) OutputDir(configPath string) (string, error) {
	dir := c.Packages.LocalDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(configPath), dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.NewFileError(dir, "abs", err)
	}
	return abs, nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with environment values. Bare $ is
// left alone because regex filter patterns use it as an anchor.
func expandEnv(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

func applyDefaults(config *Config) {
	p := &config.Packages
	if p.ZipExtraction == "" {
		p.ZipExtraction = Enabled
	}
	if p.PropCommentRemoval == "" {
		p.PropCommentRemoval = Disabled
	}
	if p.DownloadWorkerCount == 0 {
		p.DownloadWorkerCount = DefaultWorkerCount
	}
	for i := range p.FilterRules {
		if p.FilterRules[i].Operation == "" {
			p.FilterRules[i].Operation = Include
		}
	}
}

// validateConfig performs basic validation on the configuration
func validateConfig(config *Config) error {
	if config.Tenant.ManagementHost == "" {
		return errors.NewValidationError("tenant.management_host", "cannot be empty")
	}

	if err := validateCredential(config.Tenant.Credential); err != nil {
		return err
	}

	p := config.Packages
	if err := validateToggle("packages.zip_extraction", p.ZipExtraction); err != nil {
		return err
	}
	if err := validateToggle("packages.prop_comment_removal", p.PropCommentRemoval); err != nil {
		return err
	}
	if p.DownloadWorkerCount <= 0 {
		return errors.NewValidationError("packages.download_worker_count", "must be greater than 0")
	}

	for i, rule := range p.FilterRules {
		field := fmt.Sprintf("packages.filter_rules[%d]", i)
		switch rule.Operation {
		case Include, Exclude:
		default:
			return errors.NewValidationError(field+".operation",
				fmt.Sprintf("invalid operation: %s, must be 'include' or 'exclude'", rule.Operation))
		}
		switch rule.Type {
		case RuleRegex, RuleGlob:
			if rule.Pattern == "" {
				return errors.NewValidationError(field+".pattern", "cannot be empty")
			}
		case RuleSingle:
			if rule.ID == "" {
				return errors.NewValidationError(field+".id", "cannot be empty")
			}
		default:
			return errors.NewValidationError(field+".type",
				fmt.Sprintf("unsupported rule type: %s", rule.Type))
		}
	}

	return nil
}

func validateCredential(c Credential) error {
	if (c.SUser == nil) == (c.OAuth == nil) {
		return errors.NewValidationError("tenant.credential",
			"exactly one of s_user or oauth_client_credentials must be provided")
	}
	if c.SUser != nil && c.SUser.Username == "" {
		return errors.NewValidationError("tenant.credential.s_user.username", "cannot be empty")
	}
	if c.OAuth != nil {
		if c.OAuth.ClientID == "" {
			return errors.NewValidationError("tenant.credential.oauth_client_credentials.client_id", "cannot be empty")
		}
		if c.OAuth.TokenEndpointURL == "" {
			return errors.NewValidationError("tenant.credential.oauth_client_credentials.token_endpoint_url",
				"cannot be empty")
		}
	}
	return nil
}

func validateToggle(field string, t Toggle) error {
	switch t {
	case Enabled, Disabled:
		return nil
	}
	return errors.NewValidationError(field, fmt.Sprintf("invalid value: %s, must be 'enabled' or 'disabled'", t))
}
