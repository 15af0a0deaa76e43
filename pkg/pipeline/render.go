package pipeline

import (
	"bytes"
	"context"
	"fmt"

	wfio "github.com/matzehuels/flowmend/pkg/io"
	"github.com/matzehuels/flowmend/pkg/render/nodelink"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Render generates output artifacts for g in the requested formats. DOT
// source is built once and shared between the dot and svg outputs.
func Render(ctx context.Context, g workflow.Graph, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string
	for _, format := range opts.Formats {
		if (format == FormatDOT || format == FormatSVG) && dot == "" {
			dot = nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed, Catalog: opts.Catalog})
		}

		var data []byte
		var err error
		switch format {
		case FormatJSON:
			var buf bytes.Buffer
			err = wfio.WriteJSON(g, &buf)
			data = buf.Bytes()
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = nodelink.RenderSVG(ctx, dot)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
