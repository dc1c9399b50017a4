// Package tour defines the tour document model shared by the project store,
// the bundle exporter, and the bundle verifier.
//
// A Tour is decoded strictly: required fields must be present and non-null,
// waypoints must carry a known type tag, and control modes must be one of the
// recognised values. Schema violations surface as services.ErrMalformedInput.
// Encoding is canonical for a given value: fields are written in declaration
// order, map keys sorted, HTML left unescaped, with no trailing newline, so
// the bytes can be content-addressed.
package tour
