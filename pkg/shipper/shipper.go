// Package shipper provides an abstraction layer for checkout shipping-rate providers.
package shipper

import (
	"context"
)

// RateProvider defines the interface that every shipping-rate provider must implement.
// The host checkout calls it directly for each package it needs rates for.
type RateProvider interface {
	// Name returns the provider identifier (e.g., "machool_shipping").
	Name() string

	// IsAvailable reports whether the provider should quote the package at all.
	IsAvailable(ctx context.Context, pkg *Package) bool

	// GetRates returns checkout-ready rates sorted ascending by cost.
	// Failures degrade to an empty list; no error crosses this boundary.
	GetRates(ctx context.Context, pkg *Package) []QuotedRate
}
