package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// PresetRegistry resolves a user to the filters they trade under: an
// explicit per-user override if one was saved, otherwise the configured
// default preset.
type PresetRegistry struct {
	mu       sync.RWMutex
	presets  map[models.FilterPresetName]models.FilterPreset
	Default  models.FilterPresetName
	overrides map[string]models.SniperFilters
}

func NewPresetRegistry(presets map[models.FilterPresetName]models.FilterPreset, def models.FilterPresetName) *PresetRegistry {
	return &PresetRegistry{
		presets:   presets,
		Default:   def,
		overrides: make(map[string]models.SniperFilters),
	}
}

// SetOverride saves a user's custom filter set, consulted before falling
// back to the default preset.
func (r *PresetRegistry) SetOverride(userID string, f models.SniperFilters) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[userID] = f
}

// ResolveFilters implements order.PresetResolver.
func (r *PresetRegistry) ResolveFilters(ctx context.Context, userID string) (models.SniperFilters, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.overrides[userID]; ok {
		return f, string(models.PresetCustom), nil
	}

	preset, ok := r.presets[r.Default]
	if !ok {
		return models.SniperFilters{}, "", fmt.Errorf("filter: default preset %q not registered", r.Default)
	}
	return preset.Filters, string(r.Default), nil
}
