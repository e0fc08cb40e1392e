package paymentqueue

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"barmetrics-service/internal/reconcile"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidItem = errors.New("invalid payment item")

// Item is one scheduled supplier payment.
type Item struct {
	ID          uuid.UUID             `json:"id"`
	Supplier    string                `json:"fornecedor"`
	Amount      decimal.Decimal       `json:"valor"`
	DueDate     reconcile.CalendarDay `json:"vencimento"`
	Category    string                `json:"categoria"`
	Description string                `json:"descricao,omitempty"`
	PixKey      string                `json:"chave_pix,omitempty"`
	CreatedAt   time.Time             `json:"criado_em"`
}

// NewItem is the payload accepted by Add.
type NewItem struct {
	Supplier    string          `json:"fornecedor" validate:"required,max=200"`
	Amount      decimal.Decimal `json:"valor" validate:"gt=0"`
	DueDate     string          `json:"vencimento" validate:"required"`
	Category    string          `json:"categoria" validate:"required,max=100"`
	Description string          `json:"descricao" validate:"max=500"`
	PixKey      string          `json:"chave_pix" validate:"max=140"`
}

// NewValidator returns a validator that compares decimal fields by value.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (n NewItem) build(v *validator.Validate, now time.Time) (Item, error) {
	n.Supplier = strings.TrimSpace(n.Supplier)
	n.Category = strings.TrimSpace(n.Category)
	if err := v.Struct(n); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	due, err := reconcile.ParseDay(n.DueDate)
	if err != nil {
		return Item{}, fmt.Errorf("%w: vencimento: %v", ErrInvalidItem, err)
	}
	return Item{
		ID:          uuid.New(),
		Supplier:    n.Supplier,
		Amount:      n.Amount,
		DueDate:     due,
		Category:    n.Category,
		Description: strings.TrimSpace(n.Description),
		PixKey:      strings.TrimSpace(n.PixKey),
		CreatedAt:   now.UTC(),
	}, nil
}
