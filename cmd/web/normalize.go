package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/spf13/cobra"
)

var normalizeOpts struct {
	limit  int
	depth  int
	viewer bool
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file|-]",
	Short: "Normalize a raw recipe JSON document",
	Long: `Reads a raw recipe payload as returned by the backend and prints the
normalized recipe as JSON. Reads stdin when no file or "-" is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "-"
		if len(args) == 1 {
			name = args[0]
		}

		data, err := readInput(cmd.InOrStdin(), name)
		if err != nil {
			return err
		}
		normalized, err := normalizePayload(data, normalizeOpts.limit, normalizeOpts.depth, normalizeOpts.viewer)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(normalized)
	},
}

func init() {
	normalizeCmd.Flags().IntVar(&normalizeOpts.limit, "limit", 0, "description length cap (default: list cap)")
	normalizeCmd.Flags().IntVar(&normalizeOpts.depth, "max-depth", recipe.DefaultMaxListDepth, "maximum nested list wrappers to unwrap")
	normalizeCmd.Flags().BoolVar(&normalizeOpts.viewer, "viewer", false, "use the recipe viewer description cap")
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func normalizePayload(data []byte, limit, depth int, viewer bool) (recipe.NormalizedRecipe, error) {
	raw, err := recipe.ParseRawRecipe(data)
	if err != nil {
		return recipe.NormalizedRecipe{}, fmt.Errorf("payload is not a JSON object: %w", err)
	}

	if limit <= 0 {
		limit = recipe.ListDescriptionLimit
		if viewer {
			limit = recipe.ViewerDescriptionLimit
		}
	}

	n := recipe.NewNormalizer(recipe.WithDescriptionLimit(limit), recipe.WithMaxListDepth(depth))
	return n.Normalize(raw), nil
}
