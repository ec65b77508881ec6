package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Title is a multilingual stop name. Upstream sends either a bare string or
// an object keyed by language tag.
type Title struct {
	LocalizedName       *string `json:"localized_name"`        // en
	PrimaryName         string  `json:"primary_name"`          // ja
	AlternateScriptName *string `json:"alternate_script_name"` // ja-Hrkt
}

// Clone returns a deep copy of t. A nil Title clones to nil.
func (t *Title) Clone() *Title {
	if t == nil {
		return nil
	}
	c := *t
	if t.LocalizedName != nil {
		v := *t.LocalizedName
		c.LocalizedName = &v
	}
	if t.AlternateScriptName != nil {
		v := *t.AlternateScriptName
		c.AlternateScriptName = &v
	}
	return &c
}

// DecodeError reports a field whose JSON shape matched none of the accepted forms.
type DecodeError struct {
	Field string
	Shape string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("field %q: unexpected JSON %s", e.Field, e.Shape)
}

type titleShape int

const (
	titleShapeObject titleShape = iota + 1
	titleShapeString
)

// titleVariant is the resolved form of a raw title value. Exactly one of
// object or text is meaningful, selected by shape.
type titleVariant struct {
	shape  titleShape
	object titleObject
	text   string
}

type titleObject struct {
	En     *string `json:"en"`
	Ja     *string `json:"ja"`
	JaHrkt *string `json:"ja-Hrkt"`
}

// probeTitle resolves a raw title. The object form is tried before the string
// form; the order matters only if the two shapes ever overlap.
func probeTitle(data []byte) (titleVariant, error) {
	var obj titleObject
	if err := json.Unmarshal(data, &obj); err == nil && obj.Ja != nil {
		return titleVariant{shape: titleShapeObject, object: obj}, nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return titleVariant{shape: titleShapeString, text: text}, nil
	}

	return titleVariant{}, &DecodeError{Field: "title", Shape: jsonShape(data)}
}

// UnmarshalJSON accepts both the structured and the bare string form.
func (t *Title) UnmarshalJSON(data []byte) error {
	v, err := probeTitle(data)
	if err != nil {
		return err
	}

	switch v.shape {
	case titleShapeObject:
		*t = Title{
			LocalizedName:       v.object.En,
			PrimaryName:         *v.object.Ja,
			AlternateScriptName: v.object.JaHrkt,
		}
	case titleShapeString:
		*t = Title{PrimaryName: v.text}
	}
	return nil
}

// jsonShape names the kind of a raw JSON value for error messages.
func jsonShape(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "empty value"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
