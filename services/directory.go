package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
)

// CustomerDirectory resolves a customer reference to contact details.
type CustomerDirectory interface {
	Resolve(ctx context.Context, ref string) (*models.Customer, error)
}

// StoreDirectory reads the local customer table.
type StoreDirectory struct {
	Customers repository.CustomerRepo
}

func (d StoreDirectory) Resolve(ctx context.Context, ref string) (*models.Customer, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}
	return d.Customers.GetByRef(ctx, ref)
}

// customerFields fills name and phone from the directory when the caller only
// gave a reference. An unknown reference is not an error as long as a name
// was supplied.
func (e *Engine) customerFields(ctx context.Context, ref, name, phone string) (string, string, int, error) {
	vip := 0
	if ref != "" && e.customers != nil {
		c, err := e.customers.Resolve(ctx, ref)
		switch {
		case err == nil:
			if name == "" {
				name = c.Name
			}
			if phone == "" {
				phone = c.Phone
			}
			if c.VIP {
				vip = 1
			}
		case errors.Is(err, ErrNotFound):
		default:
			return "", "", 0, err
		}
	}
	if strings.TrimSpace(name) == "" {
		return "", "", 0, invalid("customer_name", "required when customer_ref is unknown")
	}
	return name, phone, vip, nil
}
