package config

import "github.com/spf13/viper"

// Desensitization holds settings for masking sensitive log fields
type Desensitization struct {
	Enabled         bool     `json:"enabled" yaml:"enabled"`
	SensitiveFields []string `json:"sensitive_fields" yaml:"sensitive_fields"`
	CustomPatterns  []string `json:"custom_patterns" yaml:"custom_patterns"`
	MaskChar        string   `json:"mask_char" yaml:"mask_char"`
	MaskLength      int      `json:"mask_length" yaml:"mask_length"`
	ExactFieldMatch bool     `json:"exact_field_match" yaml:"exact_field_match"`
}

// Field names masked unless configured otherwise. Tag values built from SQL
// text and exception messages regularly carry these.
var defaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"token", "secret", "api_key", "apikey",
	"authorization", "cookie",
}

const (
	defaultMaskChar   = "*"
	defaultMaskLength = 6
)

func defaultDesensitization() *Desensitization {
	return &Desensitization{
		Enabled:         true,
		SensitiveFields: defaultSensitiveFields,
		MaskChar:        defaultMaskChar,
		MaskLength:      defaultMaskLength,
	}
}

// getDesensitizationConfigs reads and returns desensitization configuration
func getDesensitizationConfigs(v *viper.Viper) *Desensitization {
	if !v.IsSet("logger.desensitization") {
		return defaultDesensitization()
	}

	c := &Desensitization{
		Enabled:         v.GetBool("logger.desensitization.enabled"),
		SensitiveFields: v.GetStringSlice("logger.desensitization.sensitive_fields"),
		CustomPatterns:  v.GetStringSlice("logger.desensitization.custom_patterns"),
		MaskChar:        v.GetString("logger.desensitization.mask_char"),
		MaskLength:      v.GetInt("logger.desensitization.mask_length"),
		ExactFieldMatch: v.GetBool("logger.desensitization.exact_field_match"),
	}

	if !v.IsSet("logger.desensitization.enabled") {
		c.Enabled = true
	}
	if len(c.SensitiveFields) == 0 {
		c.SensitiveFields = defaultSensitiveFields
	}
	if c.MaskChar == "" {
		c.MaskChar = defaultMaskChar
	}
	if c.MaskLength <= 0 {
		c.MaskLength = defaultMaskLength
	}
	return c
}
