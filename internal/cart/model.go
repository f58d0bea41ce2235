package cart

import "math"

// Item is one cart line: the requested quantity of a product.
type Item struct {
	ProductCode string `json:"productCode"`
	Quantity    int    `json:"quantity"`
}

// Cart collects requested items before a sale is confirmed. Lines are kept in
// first-insertion order and a product code never appears twice.
//
// Cart does no validation; codes and quantities are checked when the sale is confirmed.
// It is not safe for concurrent use.
type Cart struct {
	items []Item
	index map[string]int
}

func New() *Cart {
	return &Cart{index: make(map[string]int)}
}

// AddItem adds quantity to the line for code, creating the line when needed.
// Merged quantities saturate at the int bounds instead of wrapping.
func (c *Cart) AddItem(code string, quantity int) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[code]; ok {
		c.items[i].Quantity = saturatingAdd(c.items[i].Quantity, quantity)
		return
	}
	c.index[code] = len(c.items)
	c.items = append(c.items, Item{ProductCode: code, Quantity: quantity})
}

// Items returns a copy of the lines.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[string]int)
}

func saturatingAdd(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}
