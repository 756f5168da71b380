package export

// MissingMarker is written in place of a value that could not be produced.
const MissingMarker = " "

// Value is one cell of a Row: rendered text or the Missing marker.
type Value struct {
	text    string
	missing bool
}

// Missing is the value of a cell whose data is unavailable.
var Missing = Value{missing: true}

// Text returns a value holding s. An empty string is a present, empty value.
func Text(s string) Value {
	return Value{text: s}
}

// IsMissing reports whether v is the Missing marker.
func (v Value) IsMissing() bool {
	return v.missing
}

// String renders the value as written to a file.
func (v Value) String() string {
	if v.missing {
		return MissingMarker
	}
	return v.text
}

// Row is a fixed-schema sequence of values aligned with an export header.
type Row []Value

// Strings renders every value of the row.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.String()
	}
	return out
}
