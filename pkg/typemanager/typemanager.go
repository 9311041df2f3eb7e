// Package typemanager is the scheduler's payload serializer, used to
// turn a DataRequest into the bytes a Dispatcher sends over the wire.
// Kept on encoding/json deliberately: the wire format is internal to
// this module and every example repo that parses a domain-specific
// format (S3 XML, SQLite rows) does so because the format is fixed by
// an external system, not because a JSON codec from the ecosystem
// would add anything encoding/json doesn't already do.
package typemanager

import "encoding/json"

// TypeManager marshals and unmarshals payloads the scheduler hands to
// registries that need a byte representation; the scheduler uses it to
// serialize the DataRequest it passes to the dispatch registry.
type TypeManager interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the default TypeManager.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
