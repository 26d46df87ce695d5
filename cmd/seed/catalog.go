package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/money"
)

// Catalog is the seed file layout.
type Catalog struct {
	Cafeterias []SeedCafeteria `yaml:"cafeterias"`
	Dishes     []SeedDish      `yaml:"dishes"`
	Menus      []SeedMenu      `yaml:"menus"`
}

type SeedCafeteria struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
}

type SeedDish struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`

	price decimal.Decimal
}

// SeedMenu publishes dishes at a cafeteria, DaysFromToday days after the
// seed runs.
type SeedMenu struct {
	Cafeteria     string         `yaml:"cafeteria"`
	DaysFromToday int            `yaml:"days_from_today"`
	Items         []SeedMenuItem `yaml:"items"`
}

type SeedMenuItem struct {
	Dish string `yaml:"dish"`
	Role string `yaml:"role"`
}

func loadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseCatalog(data)
}

// parseCatalog decodes and checks a seed file. Menus may only reference
// cafeterias and dishes declared in the same file.
func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	cafeterias := make(map[string]bool, len(c.Cafeterias))
	for _, cf := range c.Cafeterias {
		if cf.Name == "" {
			return nil, fmt.Errorf("cafeteria without a name")
		}
		cafeterias[cf.Name] = true
	}

	dishes := make(map[string]bool, len(c.Dishes))
	for i := range c.Dishes {
		d := &c.Dishes[i]
		if d.Name == "" {
			return nil, fmt.Errorf("dishes[%d]: missing name", i)
		}
		if !enum.IsValidDishCategory(d.Category) {
			return nil, fmt.Errorf("dish %q: unknown category %q", d.Name, d.Category)
		}
		price, err := money.Parse(d.Price)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("dish %q: invalid price %q", d.Name, d.Price)
		}
		d.price = price
		dishes[d.Name] = true
	}

	for i, m := range c.Menus {
		if !cafeterias[m.Cafeteria] {
			return nil, fmt.Errorf("menus[%d]: unknown cafeteria %q", i, m.Cafeteria)
		}
		for _, it := range m.Items {
			if !dishes[it.Dish] {
				return nil, fmt.Errorf("menus[%d]: unknown dish %q", i, it.Dish)
			}
			if !enum.IsValidDishCategory(it.Role) {
				return nil, fmt.Errorf("menus[%d]: unknown role %q", i, it.Role)
			}
		}
	}

	return &c, nil
}
