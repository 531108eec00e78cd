package canvas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultWidth is the width given to newly dropped components.
	DefaultWidth = 300
	// DefaultHeight is the height given to newly dropped components.
	DefaultHeight = 200

	// DefaultExportTitle names an exported canvas without a title.
	DefaultExportTitle = "Untitled Report"
	// DefaultDescription describes a canvas report without a description.
	DefaultDescription = "Canvas-built report"
)

var (
	// ErrEmptyCanvas is returned when saving a canvas with no components.
	ErrEmptyCanvas = errors.New("Add some components to your report before saving")
	// ErrTitleRequired is returned when saving a canvas without a title.
	ErrTitleRequired = errors.New("Report title is required")
	// ErrUnknownComponent is returned when dropping an id missing from the palette.
	ErrUnknownComponent = errors.New("unknown component type")
	// ErrComponentsRequired is returned by Load when components is not a JSON array.
	ErrComponentsRequired = errors.New("Components array is required")
)

// Position is the drop point relative to the canvas origin.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered size of a placed component.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PlacedComponent is one component instance on the canvas.
type PlacedComponent struct {
	ID        string        `json:"id"`
	Component ComponentType `json:"component"`
	Position  Position      `json:"position"`
	Size      Size          `json:"size"`
}

// SaveRequest is the payload that persists a canvas as a draft report.
type SaveRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Components  json.RawMessage `json:"components"`
}

// Export is the downloadable form of an unsaved canvas.
type Export struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Components  []PlacedComponent `json:"components"`
	ExportedAt  time.Time         `json:"exportedAt"`
}

// Canvas is an ordered, in-memory collection of placed components. It is not
// safe for concurrent use.
type Canvas struct {
	Title       string
	Description string

	components []PlacedComponent
	nowFn      func() time.Time
	lastMillis int64
}

// New returns an empty canvas. nowFn defaults to time.Now.
func New(nowFn func() time.Time) *Canvas {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Canvas{nowFn: nowFn}
}

// Load rebuilds a canvas from a JSON array of placed components.
func Load(title, description string, raw json.RawMessage) (*Canvas, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrComponentsRequired
	}
	c := New(nil)
	c.Title = title
	c.Description = description
	if errUnmarshal := json.Unmarshal(trimmed, &c.components); errUnmarshal != nil {
		return nil, fmt.Errorf("%w: %v", ErrComponentsRequired, errUnmarshal)
	}
	return c, nil
}

// Add drops the palette entry componentID at pos.
func (c *Canvas) Add(componentID string, pos Position) (PlacedComponent, error) {
	componentType, ok := Lookup(componentID)
	if !ok {
		return PlacedComponent{}, fmt.Errorf("%w: %s", ErrUnknownComponent, componentID)
	}
	return c.AddComponent(componentType, pos), nil
}

// AddComponent drops componentType at pos with the default size and appends it.
func (c *Canvas) AddComponent(componentType ComponentType, pos Position) PlacedComponent {
	millis := c.nowFn().UnixMilli()
	// Two drops in the same millisecond would share an id.
	if millis <= c.lastMillis {
		millis = c.lastMillis + 1
	}
	c.lastMillis = millis

	placed := PlacedComponent{
		ID:        fmt.Sprintf("%s-%d", componentType.ID, millis),
		Component: componentType,
		Position:  pos,
		Size:      Size{Width: DefaultWidth, Height: DefaultHeight},
	}
	c.components = append(c.components, placed)
	return placed
}

// Remove deletes the placed component with id and reports whether it existed.
func (c *Canvas) Remove(id string) bool {
	for i, placed := range c.components {
		if placed.ID == id {
			c.components = append(c.components[:i], c.components[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every component.
func (c *Canvas) Clear() {
	c.components = nil
}

// Len returns the number of placed components.
func (c *Canvas) Len() int {
	return len(c.components)
}

// Components returns a copy of the placed components in drop order.
func (c *Canvas) Components() []PlacedComponent {
	out := make([]PlacedComponent, len(c.components))
	copy(out, c.components)
	return out
}

// SaveRequest validates the canvas and serializes it for persistence.
func (c *Canvas) SaveRequest() (SaveRequest, error) {
	if len(c.components) == 0 {
		return SaveRequest{}, ErrEmptyCanvas
	}
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return SaveRequest{}, ErrTitleRequired
	}
	raw, errMarshal := json.Marshal(c.components)
	if errMarshal != nil {
		return SaveRequest{}, fmt.Errorf("canvas: encode components: %w", errMarshal)
	}
	return SaveRequest{
		Title:       title,
		Description: strings.TrimSpace(c.Description),
		Components:  raw,
	}, nil
}

// Export returns the canvas as a downloadable document without persisting it.
func (c *Canvas) Export() Export {
	title := c.Title
	if title == "" {
		title = DefaultExportTitle
	}
	description := c.Description
	if description == "" {
		description = DefaultDescription
	}
	return Export{
		Title:       title,
		Description: description,
		Components:  c.Components(),
		ExportedAt:  c.nowFn().UTC(),
	}
}

// ExportFileName is the attachment name for an exported canvas.
func (c *Canvas) ExportFileName() string {
	title := c.Title
	if title == "" {
		title = "report"
	}
	return FileName(title, "_canvas.json")
}

// FileName replaces every non-alphanumeric ASCII character of title with '_'
// and appends suffix.
func FileName(title, suffix string) string {
	var b strings.Builder
	b.Grow(len(title) + len(suffix))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteString(suffix)
	return b.String()
}
