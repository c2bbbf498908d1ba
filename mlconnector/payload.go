package mlconnector

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/CalHacks12USF/fregister-backend/gateway"
)

// Item is one {name, quantity} pair reported by the ML pipeline.
type Item struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// Validate implements validation.Validatable.
func (i Item) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.Quantity, validation.Min(0.0)),
	)
}

// Payload is the inventory snapshot posted by the ML pipeline.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Inventory []Item `json:"inventory"`
}

// Validate implements validation.Validatable. Each item is validated in turn.
func (p Payload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Timestamp, validation.Required, validation.Date(time.RFC3339)),
		validation.Field(&p.Inventory, validation.NotNil),
	)
}

// Snapshot converts the payload into a snapshot row. Validate must have passed.
func (p Payload) Snapshot() (*gateway.InventorySnapshot, error) {
	ts, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return nil, err
	}

	items := make([]gateway.InventoryItem, 0, len(p.Inventory))
	for _, item := range p.Inventory {
		items = append(items, gateway.InventoryItem{Name: item.Name, Quantity: item.Quantity})
	}

	return &gateway.InventorySnapshot{
		Timestamp: ts.UTC(),
		Inventory: items,
	}, nil
}
