package service

import "fmt"

// CartLine is one selection in a cart.
type CartLine struct {
	DishID     int32
	Quantity   int32
	IsTakeaway bool
}

// Cart is the ordered list of selections submitted at checkout.
// Lines are kept in submission order and are not merged.
type Cart struct {
	Lines []CartLine
}

// Add appends a selection to the cart.
func (c *Cart) Add(dishID, quantity int32, isTakeaway bool) {
	c.Lines = append(c.Lines, CartLine{DishID: dishID, Quantity: quantity, IsTakeaway: isTakeaway})
}

// Validate checks the cart shape once, before any database work.
func (c Cart) Validate() error {
	if len(c.Lines) == 0 {
		return ErrEmptyCart
	}
	for i, line := range c.Lines {
		if line.DishID <= 0 {
			return fmt.Errorf("items[%d]: %w", i, ErrInvalidDishID)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	return nil
}
