// Package core holds the catalog domain: categories, products, orders and the
// sales report they roll up into.
//
// This file contains helpers for parsing and formatting monetary amounts.
// Prices travel as float64 on the wire and as integer cents in storage.
package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is a valid price; negative
// values are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("0") -> 0, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// ParseAmount is ParseDecimalToCents expressed in currency units.
func ParseAmount(s string) (float64, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return 0, err
	}
	return FromCents(cents), nil
}

// ToCents rounds a currency amount to integer cents.
func ToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FromCents converts integer cents back to currency units.
func FromCents(cents int64) float64 {
	return float64(cents) / 100.0
}

// FormatCurrency renders an amount the way the console shows prices: "R$ 1299.90".
func FormatCurrency(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}
