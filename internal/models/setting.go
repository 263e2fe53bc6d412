package models

// Setting is a blog-level key/value setting fetched from the server.
type Setting struct {
	ID    int
	Key   string
	Value string
}

// ConfigurationParam is one flattened entry of the server's nested
// configuration document. Value is always the string serialization of the
// original JSON value: "" for null, the unquoted text for string scalars,
// and the literal JSON text for everything else. The stringification is
// lossy but deterministic, and must stay byte-identical across releases
// for parity with rows stored by prior versions.
type ConfigurationParam struct {
	Key   string
	Value string
}
