// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "encoding/json"

// VersionedData is the storage envelope wrapped around every persisted
// collection value: {version, data, migratedAt?}.
//
// Data stays raw here because the payload type varies by collection and
// because legacy values may be un-enveloped records whose version is implied
// by structure instead — the migration engine owns that detection.
type VersionedData struct {
	// Version is the schema version of Data.
	Version int `json:"version"`

	// Data is the enveloped payload, decoded by the owning collection.
	Data json.RawMessage `json:"data"`

	// MigratedAt is set (epoch ms) when Data was produced by a migration
	// rather than written natively at this version.
	MigratedAt *int64 `json:"migratedAt,omitempty"`
}
