// Package render writes command results in the output formats supported by
// the dry-run mode.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"odptbus/pkg/commands"
	"odptbus/pkg/gtfsrt"
	"odptbus/pkg/types"

	"github.com/clbanning/mxj/v2"
)

// Format is an output format.
type Format string

const (
	FormatJSON   Format = "json"
	FormatXML    Format = "xml"
	FormatPBText Format = "pbtext" // GTFS-Realtime, protobuf text
	FormatPB     Format = "pb"     // GTFS-Realtime, protobuf wire
)

// ErrUnsupportedResult is returned when a protobuf format is asked to render
// anything other than realtime vehicle positions.
var ErrUnsupportedResult = errors.New("format only supports get_bus_realtime results")

// ParseFormat parses a format name; the empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatXML, FormatPBText, FormatPB:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// Renderer writes results in one format.
type Renderer struct {
	format Format
	now    func() time.Time
}

func NewRenderer(format Format) *Renderer {
	return &Renderer{format: format, now: time.Now}
}

// Format returns the renderer's output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes res to w.
func (r *Renderer) Render(w io.Writer, res commands.Result) error {
	var (
		out []byte
		err error
	)

	switch r.format {
	case FormatXML:
		out, err = renderXML(res)
	case FormatPBText, FormatPB:
		out, err = r.renderProto(res)
	default:
		out, err = json.MarshalIndent(res, "", "  ")
	}
	if err != nil {
		return err
	}

	if r.format != FormatPB {
		out = append(out, '\n')
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write %s output: %w", r.format, err)
	}
	return nil
}

// renderXML converts the result's JSON form to XML rooted at <result>.
func renderXML(res commands.Result) ([]byte, error) {
	jsonData, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	m, err := mxj.NewMapJson(jsonData)
	if err != nil {
		return nil, fmt.Errorf("failed to convert result to map: %w", err)
	}

	out, err := m.XmlIndent("", "  ", "result")
	if err != nil {
		return nil, fmt.Errorf("failed to render XML: %w", err)
	}
	return out, nil
}

func (r *Renderer) renderProto(res commands.Result) ([]byte, error) {
	if res.Failed() {
		return nil, fmt.Errorf("%s: %s", res.Command, res.Error)
	}

	positions, ok := res.Data.([]types.VehiclePosition)
	if !ok {
		return nil, fmt.Errorf("%s: %w", res.Command, ErrUnsupportedResult)
	}

	feed := gtfsrt.FromVehiclePositions(positions, r.now())
	if r.format == FormatPBText {
		return gtfsrt.MarshalText(feed)
	}
	return gtfsrt.Marshal(feed)
}
