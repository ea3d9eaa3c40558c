// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yumyai/gbneighbours/pkg/model"
	"github.com/yumyai/gbneighbours/pkg/ncbi"
)

// NeighboursConfig is for the neighbours command
type NeighboursConfig struct {
	// number of CDS to report on each side of the locus of interest
	Radius int `mapstructure:"radius"`

	// written instead of a protein id when a CDS has none
	Placeholder string `mapstructure:"placeholder"`

	// directory the per-locus CSV files are written to
	OutDir string `mapstructure:"out-dir"`

	// take the first match instead of failing when a locus tag repeats
	AllowDuplicateTags bool `mapstructure:"allow-duplicate-tags"`
}

// TaxonomyConfig is for the taxonomy command
type TaxonomyConfig struct {
	// 0-based column of the input CSV holding accessions
	AccessionColumn int `mapstructure:"column"`
}

// CacheConfig is the optional SQLite cache of fetched records
type CacheConfig struct {
	Path    string `mapstructure:"path"`
	Refresh bool   `mapstructure:"refresh"`
}

// Config is the root-level settings struct and is a mix of settings
// from the config file, the environment and the command line
type Config struct {
	LogLevel   string           `mapstructure:"log-level"`
	NCBI       ncbi.Config      `mapstructure:"ncbi"`
	Neighbours NeighboursConfig `mapstructure:"neighbours"`
	Taxonomy   TaxonomyConfig   `mapstructure:"taxonomy"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log-level", "info")
	v.SetDefault("ncbi.base-url", ncbi.DefaultBaseURL)
	v.SetDefault("ncbi.tool", ncbi.DefaultTool)
	v.SetDefault("ncbi.timeout", 60*time.Second)
	v.SetDefault("neighbours.radius", model.DefaultRadius)
	v.SetDefault("neighbours.placeholder", model.NoProteinID)
	v.SetDefault("neighbours.out-dir", ".")
	v.SetDefault("taxonomy.column", 1)

	v.SetEnvPrefix("GBN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// the names NCBI documents, without our prefix
	_ = v.BindEnv("ncbi.email", "NCBI_EMAIL", "GBN_NCBI_EMAIL")
	_ = v.BindEnv("ncbi.api-key", "NCBI_API_KEY", "GBN_NCBI_API_KEY")
	_ = v.BindEnv("log-level", "LOG_LEVEL", "GBN_LOG_LEVEL")
}

// New returns a Config populated from v.
func New(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if c.Neighbours.Radius < 0 {
		return c, fmt.Errorf("neighbours.radius must not be negative, got %d", c.Neighbours.Radius)
	}
	if c.Taxonomy.AccessionColumn < 0 {
		return c, fmt.Errorf("taxonomy.column must not be negative, got %d", c.Taxonomy.AccessionColumn)
	}
	return c, nil
}
