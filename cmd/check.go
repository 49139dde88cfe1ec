package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"upcwatch/internal/formatter"
	"upcwatch/internal/shared"
)

// Check submits the given UPC codes for an immediate placement check and
// prints the resulting digest.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	codes := shared.ExtractCodes(strings.Join(cmd.Args().Slice(), " "))
	if len(codes) == 0 {
		return fmt.Errorf("%w: pass one or more UPC codes", shared.ErrMissingArgument)
	}

	results, err := r.engine.ProcessBatch(ctx, codes, shared.Today())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(results)
	}

	return r.writePlain("%s\n", formatter.FormatResults(results))
}

// Hits prints all recorded playlist placements.
func (r *Runner) Hits(ctx context.Context, cmd *cli.Command) error {
	hits, err := r.hits.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(hits)
	}

	return r.writePlain("%s\n", formatter.FormatHits(hits))
}

// Queue prints all codes still awaiting a scheduled check.
func (r *Runner) Queue(ctx context.Context, cmd *cli.Command) error {
	entries, err := r.queue.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries)
	}

	return r.writePlain("%s\n", formatter.FormatQueue(entries))
}
