// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package pipeline

import (
	"context"

	"github.com/tomtom215/trailguard/internal/detection"
	"github.com/tomtom215/trailguard/internal/models"
)

// Detect runs a pipeline into a Collector and returns the complete alert set.
func Detect(ctx context.Context, engine *detection.Engine, input string, cfg Config) ([]models.Alert, *Summary, error) {
	var c Collector
	p, err := New(engine, &c, cfg)
	if err != nil {
		return nil, nil, err
	}
	summary, err := p.Run(ctx, input)
	return c.Alerts(), summary, err
}
