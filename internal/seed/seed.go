// Package seed creates the institutions that ratings are submitted against.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Institution is one seed entry.
type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Default is the data set used when no file is given.
var Default = []Institution{
	{ID: "inst1", Name: "Æblerød Plejehjem"},
}

// Target is the write side needed for seeding.
type Target interface {
	CountInstitutions(ctx context.Context) (int, error)
	CreateInstitution(ctx context.Context, id, name string) (bool, error)
}

// Result reports what Apply did.
type Result struct {
	Created int
	Skipped bool
}

// Load reads seed data from a JSON array file.
func Load(path string) ([]Institution, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed data: %w", err)
	}
	var data []Institution
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Validate rejects empty or duplicate ids and empty names.
func Validate(data []Institution) error {
	seen := make(map[string]struct{}, len(data))
	for i, inst := range data {
		if strings.TrimSpace(inst.ID) == "" {
			return fmt.Errorf("seed entry %d: id is required", i)
		}
		if strings.TrimSpace(inst.Name) == "" {
			return fmt.Errorf("seed entry %q: name is required", inst.ID)
		}
		if _, dup := seen[inst.ID]; dup {
			return fmt.Errorf("seed entry %q: duplicate id", inst.ID)
		}
		seen[inst.ID] = struct{}{}
	}
	return nil
}

// Apply creates data in target. Unless force is set, a target that already
// holds institutions is left alone.
func Apply(ctx context.Context, target Target, data []Institution, force bool, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(data) == 0 {
		return Result{}, errors.New("seed: no institutions to create")
	}

	if !force {
		existing, err := target.CountInstitutions(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("seed: count institutions: %w", err)
		}
		if existing > 0 {
			logger.Info("seed: store already has data, skipping", "institutions", existing)
			return Result{Skipped: true}, nil
		}
	}

	var res Result
	for _, inst := range data {
		inserted, err := target.CreateInstitution(ctx, inst.ID, inst.Name)
		if err != nil {
			return res, fmt.Errorf("seed: create %q: %w", inst.ID, err)
		}
		if inserted {
			res.Created++
			logger.Info("seed: created institution", "institution_id", inst.ID, "name", inst.Name)
		}
	}
	return res, nil
}
