package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

// sections is the parsed value of --only.
type sections struct {
	items, locations, labels, homes, policies bool
}

var kindAliases = map[string]inventory.Kind{
	"item": inventory.KindItem, "items": inventory.KindItem,
	"location": inventory.KindLocation, "locations": inventory.KindLocation,
	"label": inventory.KindLabel, "labels": inventory.KindLabel,
	"home": inventory.KindHome, "homes": inventory.KindHome,
	"policy": inventory.KindPolicy, "policies": inventory.KindPolicy,
}

// parseSections turns --only values into a section selection. An empty
// list selects every section.
func parseSections(only []string) (sections, error) {
	if len(only) == 0 {
		return sections{true, true, true, true, true}, nil
	}
	var s sections
	for _, raw := range only {
		k, ok := kindAliases[strings.ToLower(strings.TrimSpace(raw))]
		if !ok {
			return sections{}, fmt.Errorf("unknown section %q (want items, locations, labels, homes or policies)", raw)
		}
		switch k {
		case inventory.KindItem:
			s.items = true
		case inventory.KindLocation:
			s.locations = true
		case inventory.KindLabel:
			s.labels = true
		case inventory.KindHome:
			s.homes = true
		case inventory.KindPolicy:
			s.policies = true
		}
	}
	return s, nil
}

func parseHomeIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			return nil, fmt.Errorf("--home %q: %w", r, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
