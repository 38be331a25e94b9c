package notify

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var catalogYAML []byte

// Template describes one email template key.
type Template struct {
	Key      string   `yaml:"-" json:"key"`
	Category string   `yaml:"category" json:"category"`
	Subject  string   `yaml:"subject" json:"subject"`
	Required []string `yaml:"required" json:"required"`
	SMS      bool     `yaml:"sms" json:"sms"`
	SMSText  string   `yaml:"sms_text" json:"-"`
}

// Catalog is the fixed set of template keys.
type Catalog map[string]Template

// LoadCatalog parses the embedded template catalog.
func LoadCatalog() (Catalog, error) {
	var doc struct {
		Templates map[string]Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(catalogYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	c := make(Catalog, len(doc.Templates))
	for key, t := range doc.Templates {
		t.Key = key
		c[key] = t
	}
	return c, nil
}

// Keys returns the template keys in sorted order.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Missing returns the required data keys absent from data.
func (t Template) Missing(data map[string]string) []string {
	var missing []string
	for _, k := range t.Required {
		if strings.TrimSpace(data[k]) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// fill substitutes {key} placeholders with data values.
func fill(text string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
