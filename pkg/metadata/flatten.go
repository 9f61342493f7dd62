// Shoebox
// Copyright (c) 2026 The Shoebox Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Shoebox.
//
// Shoebox is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Shoebox is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Shoebox.  If not, see <http://www.gnu.org/licenses/>.

// Package metadata extracts descriptive metadata from media files via
// the exiftool and ffprobe command line tools and flattens it into the
// tag/value rows the catalog stores.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShoeboxProject/shoebox/pkg/database"
)

// keySep joins nested keys and list indices in flattened tags. Existing
// catalog rows use this separator, so it must not change.
const keySep = "_"

// FlattenJSON converts one JSON object into flat metadata rows:
//
//   - nested objects join their keys with keySep
//   - a list of scalars becomes a single row, values joined by spaces
//   - a list containing containers indexes each element into the key
//
// Rows come out in document order, which keeps row insertion stable for
// a given tool output.
func FlattenJSON(data []byte) ([]database.MetadataRow, error) {
	rows := make([]database.MetadataRow, 0, 32)
	if err := flattenObject(data, "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func flattenObject(raw []byte, prefix string, rows *[]database.MetadataRow) error {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read metadata object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected metadata object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read metadata key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected metadata key, got %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to read value for %q: %w", key, err)
		}
		if err := flattenValue(value, joinKey(prefix, key), rows); err != nil {
			return err
		}
	}
	return nil
}

func flattenValue(raw json.RawMessage, key string, rows *[]database.MetadataRow) error {
	switch firstByte(raw) {
	case '{':
		return flattenObject(raw, key, rows)
	case '[':
		return flattenArray(raw, key, rows)
	default:
		value, err := scalarString(raw)
		if err != nil {
			return fmt.Errorf("failed to decode value for %q: %w", key, err)
		}
		*rows = append(*rows, database.MetadataRow{Tag: key, Value: value})
		return nil
	}
}

func flattenArray(raw json.RawMessage, key string, rows *[]database.MetadataRow) error {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return fmt.Errorf("failed to decode list for %q: %w", key, err)
	}

	scalarsOnly := true
	for _, el := range elements {
		if b := firstByte(el); b == '{' || b == '[' {
			scalarsOnly = false
			break
		}
	}

	if scalarsOnly {
		values := make([]string, 0, len(elements))
		for _, el := range elements {
			value, err := scalarString(el)
			if err != nil {
				return fmt.Errorf("failed to decode list value for %q: %w", key, err)
			}
			values = append(values, value)
		}
		*rows = append(*rows, database.MetadataRow{Tag: key, Value: strings.Join(values, " ")})
		return nil
	}

	for i, el := range elements {
		if err := flattenValue(el, fmt.Sprintf("%s%s%d", key, keySep, i), rows); err != nil {
			return err
		}
	}
	return nil
}

// scalarString renders a JSON scalar for storage. Numbers keep their
// source lexeme so values round-trip byte for byte; null becomes the
// empty string.
func scalarString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("failed to unquote string: %w", err)
		}
		return s, nil
	}
	return string(trimmed), nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + keySep + key
}
