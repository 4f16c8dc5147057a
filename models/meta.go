// models/meta.go
package models

// FeedInfo is the singleton feed metadata row owned by the store. LastUpdate
// is the watermark: epoch seconds of the last fully applied sync batch, 0 when
// no batch has ever been applied.
type FeedInfo struct {
	Name       string `db:"name"`
	Vendor     string `db:"vendor"`
	Home       string `db:"home"`
	LastUpdate int64  `db:"last_update"`
}

// Capability is the result of probing one external prerequisite.
type Capability struct {
	Name   string
	OK     bool
	Detail string
}
