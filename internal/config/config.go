package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"

	"github.com/mcncl/sqj/internal/schema"
)

// DefaultTable is the table name queries use when none is configured.
const DefaultTable = "[]"

// Config represents the complete configuration for sqj
type Config struct {
	Output OutputConfig `yaml:"output"`
	Table  TableConfig  `yaml:"table"`
	Schema SchemaConfig `yaml:"schema"`
	Parse  ParseConfig  `yaml:"parse"`
	Dev    DevConfig    `yaml:"dev"`
}

// OutputConfig controls how results are rendered
type OutputConfig struct {
	Compact bool   `yaml:"compact"`
	Indent  string `yaml:"indent"`
}

// TableConfig controls how the input is exposed to queries
type TableConfig struct {
	Name string `yaml:"name"`
	// AliasFromFile also registers the input under the snake_case base name
	// of the input file, e.g. "Users List.json" -> users_list.
	AliasFromFile bool `yaml:"alias_from_file"`
	// Nested registers a table for every array-valued column.
	Nested bool `yaml:"nested"`
}

// SchemaConfig controls column inference
type SchemaConfig struct {
	Policy string `yaml:"policy"`
}

// ParseConfig controls JSON parsing limits
type ParseConfig struct {
	MaxDepth   int  `yaml:"max_depth"`
	StrictKeys bool `yaml:"strict_keys"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Compact: false,
			Indent:  "  ",
		},
		Table: TableConfig{
			Name:          DefaultTable,
			AliasFromFile: false,
			Nested:        true,
		},
		Schema: SchemaConfig{
			Policy: string(schema.PolicyFirst),
		},
		Parse: ParseConfig{
			MaxDepth:   10000,
			StrictKeys: false,
		},
		Dev: DevConfig{
			Debug: false,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".sqj.yml", ".sqj.yaml", "sqj.yml", "sqj.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks values that YAML decoding cannot
func (c *Config) Validate() error {
	if _, err := schema.ParsePolicy(c.Schema.Policy); err != nil {
		return err
	}
	if c.Parse.MaxDepth < 0 {
		return fmt.Errorf("parse.max_depth must not be negative, got %d", c.Parse.MaxDepth)
	}
	if strings.TrimSpace(c.Table.Name) == "" {
		return fmt.Errorf("table.name must not be empty")
	}
	if strings.Trim(c.Output.Indent, " \t") != "" {
		return fmt.Errorf("output.indent may only contain spaces and tabs, got %q", c.Output.Indent)
	}
	return nil
}

// SchemaPolicy returns the validated schema policy
func (c *Config) SchemaPolicy() schema.Policy {
	p, err := schema.ParsePolicy(c.Schema.Policy)
	if err != nil {
		return schema.PolicyFirst
	}
	return p
}

// TableAlias returns the extra table name derived from an input file, or ""
// when aliasing is disabled or the input is stdin.
func (c *Config) TableAlias(inputPath string) string {
	if !c.Table.AliasFromFile || inputPath == "" || inputPath == "-" {
		return ""
	}
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	alias := strcase.ToSnake(base)
	if alias == "" || alias == c.Table.Name {
		return ""
	}
	return alias
}

// Overrides holds CLI flags that take precedence over the config file. Nil
// fields were not set on the command line.
type Overrides struct {
	Compact     *bool
	Table       *string
	UnionSchema *bool
	MaxDepth    *int
	StrictKeys  *bool
	Debug       *bool
}

// Apply overlays the set fields of o onto c
func (o Overrides) Apply(c *Config) {
	if o.Compact != nil {
		c.Output.Compact = *o.Compact
	}
	if o.Table != nil && *o.Table != "" {
		c.Table.Name = *o.Table
	}
	if o.UnionSchema != nil && *o.UnionSchema {
		c.Schema.Policy = string(schema.PolicyUnion)
	}
	if o.MaxDepth != nil {
		c.Parse.MaxDepth = *o.MaxDepth
	}
	if o.StrictKeys != nil {
		c.Parse.StrictKeys = *o.StrictKeys
	}
	if o.Debug != nil {
		c.Dev.Debug = *o.Debug
	}
}

// LoadConfigWithCLI loads config with CLI argument precedence. An empty
// configPath uses the defaults.
func LoadConfigWithCLI(configPath string, overrides Overrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	overrides.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
