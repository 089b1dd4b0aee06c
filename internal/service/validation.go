package service

import (
	"strings"
	"unicode/utf8"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
)

const maxAddressLength = 500

// SanitizeAddress trims the delivery address and caps its length.
func SanitizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if utf8.RuneCountInString(address) > maxAddressLength {
		address = string([]rune(address)[:maxAddressLength])
	}
	return address
}

// ValidateAddress expects an already sanitized address.
func ValidateAddress(address string) error {
	if address == "" {
		return errors.NewValidationError("address", "Please enter a delivery address.")
	}
	return nil
}

// ValidateQuantity rejects quantities below one.
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return errors.NewValidationError("quantity", "quantity must be at least 1")
	}
	return nil
}
