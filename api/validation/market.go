// Package validation registers the custom binding rules used by the API.
package validation

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pokebim/pricewatch/market"
)

// MarketplaceTag is the binding tag that checks a URL against the guard.
const MarketplaceTag = "marketplace"

// Marketplace returns a validator func accepting only URLs guard allows.
func Marketplace(guard market.Guard) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return guard.Valid(fl.Field().String())
	}
}

// Register installs the custom rules on v.
func Register(v *validator.Validate, guard market.Guard) error {
	return v.RegisterValidation(MarketplaceTag, Marketplace(guard))
}

// RegisterGin installs the custom rules on gin's default validator.
func RegisterGin(guard market.Guard) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v, guard)
}
