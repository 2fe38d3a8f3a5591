// Package admin owns the oracle settings: the verification script source, the
// encrypted credentials payload, the billing subscription, and the oracle
// endpoint. These are privileged, single-owner operations with no concurrency
// concerns beyond last-write-wins on the settings record.
package admin

import "time"

// OracleSettings is the configuration snapshot the dispatcher attaches to
// every verification request.
type OracleSettings struct {
	Script         string
	Secrets        []byte
	SubscriptionID string
	Endpoint       string
	GasLimit       uint64
	UpdatedAt      time.Time
}
