package extract

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/geniass/offers-updater/pkg/price"
)

//go:embed profile.yaml
var defaultProfileYAML []byte

// Selector is a CSS selector compiled when the profile is loaded, so a typo
// in the profile fails the run up front instead of silently matching nothing.
type Selector struct {
	Raw     string
	matcher cascadia.Selector
}

func CompileSelector(raw string) (Selector, error) {
	m, err := cascadia.Compile(raw)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid selector %q: %w", raw, err)
	}
	return Selector{Raw: raw, matcher: m}, nil
}

func (s *Selector) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	compiled, err := CompileSelector(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = compiled
	return nil
}

// AttributeBlock is a price display element carrying machine readable
// amounts. The old price attribute is only looked up inside the same block.
type AttributeBlock struct {
	Selector     Selector `yaml:"selector"`
	PriceAttr    string   `yaml:"price_attr"`
	OldPriceAttr string   `yaml:"old_price_attr"`
}

// Profile holds the vendor specific extraction settings. Selectors are
// listed from most to least specific.
type Profile struct {
	Name              string           `yaml:"name"`
	RawMinPrice       string           `yaml:"min_price"`
	AttributeBlocks   []AttributeBlock `yaml:"attribute_blocks"`
	PriceSelectors    []Selector       `yaml:"price_selectors"`
	OldPriceSelectors []Selector       `yaml:"old_price_selectors"`
	TitleSelectors    []Selector       `yaml:"title_selectors"`

	MinPrice decimal.Decimal `yaml:"-"`
}

// DefaultProfile returns the built-in profile for the target vendor.
func DefaultProfile() (*Profile, error) {
	return ParseProfile(defaultProfileYAML)
}

// LoadProfile reads a YAML profile from path. An empty path selects the
// built-in profile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return ParseProfile(data)
}

func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	p.MinPrice = price.DefaultMinimum
	if p.RawMinPrice != "" {
		minPrice, err := decimal.NewFromString(p.RawMinPrice)
		if err != nil {
			return fmt.Errorf("profile %q: invalid min_price %q: %w", p.Name, p.RawMinPrice, err)
		}
		p.MinPrice = minPrice
	}
	for i, b := range p.AttributeBlocks {
		if b.Selector.Raw == "" || b.PriceAttr == "" {
			return fmt.Errorf("profile %q: attribute block %d needs selector and price_attr", p.Name, i)
		}
	}
	if len(p.AttributeBlocks) == 0 && len(p.PriceSelectors) == 0 {
		return errors.New("profile " + p.Name + ": no price selectors configured")
	}
	return nil
}
