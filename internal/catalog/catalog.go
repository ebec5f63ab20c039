package catalog

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Repo is the GitHub coordinate of the private repository backing a block.
type Repo struct {
	Owner string `mapstructure:"owner"`
	Name  string `mapstructure:"name"`
}

// HTMLURL returns the browser URL of the repository.
func (r Repo) HTMLURL() string {
	return fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Name)
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Item is a purchasable UI block in the catalog.
type Item struct {
	ID    string `mapstructure:"id"`
	Title string `mapstructure:"title"`
	Repo  Repo   `mapstructure:"repo"`
}

// Catalog is the static set of purchasable blocks, loaded once at startup
// and never mutated afterwards.
type Catalog struct {
	items map[string]Item
}

type catalogFile struct {
	Items []Item `mapstructure:"items"`
}

// Load reads the catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file catalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}

	return New(file.Items)
}

// New builds a catalog from a list of items, validating each entry.
func New(items []Item) (*Catalog, error) {
	indexed := make(map[string]Item, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog item with empty id")
		}
		if item.Repo.Owner == "" || item.Repo.Name == "" {
			return nil, fmt.Errorf("catalog item %q has incomplete repo coordinate", id)
		}
		if _, dup := indexed[id]; dup {
			return nil, fmt.Errorf("duplicate catalog item id %q", id)
		}
		item.ID = id
		indexed[id] = item
	}
	return &Catalog{items: indexed}, nil
}

// Lookup returns the item for the given id, if it exists.
func (c *Catalog) Lookup(itemID string) (Item, bool) {
	item, ok := c.items[itemID]
	return item, ok
}

// Len returns the number of items in the catalog.
func (c *Catalog) Len() int {
	return len(c.items)
}
