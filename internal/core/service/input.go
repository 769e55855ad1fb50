package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rl1809/logitrack/internal/core/domain"
)

// OrderInput is a client-submitted order. Each item either references an
// existing item by a positive ItemID or describes a new one (ItemID <= 0).
type OrderInput struct {
	CustomerName string                 `json:"customerName"`
	DatePlaced   time.Time              `json:"datePlaced"`
	Items        []domain.InventoryItem `json:"items"`
}

func (in OrderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CustomerName,
			validation.Required.Error("CustomerName is required."),
			validation.By(notBlank("CustomerName is required.")),
		),
		validation.Field(&in.Items,
			validation.Required.Error("At least one item is required for an order."),
			validation.By(newItemsValid),
		),
	)
}

// newItemsValid applies the standalone item rules to every entry without a
// positive ItemID. Errors are keyed by index.
func newItemsValid(value any) error {
	items, _ := value.([]domain.InventoryItem)
	return newItemErrors(items, func(it domain.InventoryItem) bool { return it.ItemID <= 0 })
}

func newItemErrors(items []domain.InventoryItem, isNew func(domain.InventoryItem) bool) error {
	errs := validation.Errors{}
	for i, it := range items {
		if !isNew(it) {
			continue
		}
		in := InventoryInput{Name: it.Name, Quantity: it.Quantity, Location: it.Location}
		if err := in.Validate(); err != nil {
			errs[strconv.Itoa(i)] = err
		}
	}
	return errs.Filter()
}

// InventoryInput describes a standalone item to create.
type InventoryInput struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Location string `json:"location"`
}

func (in InventoryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.By(notBlank("cannot be blank"))),
		validation.Field(&in.Quantity, validation.Min(0)),
		validation.Field(&in.Location, validation.Required, validation.By(notBlank("cannot be blank"))),
	)
}

func notBlank(msg string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != "" && strings.TrimSpace(s) == "" {
			return errors.New(msg)
		}
		return nil
	}
}
