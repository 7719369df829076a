// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// Chain holds the running hash-chain state: the previous event's digest and
// the last assigned sequence number. It is owned exclusively by the sealing
// agent and must never be shared across goroutines.
type Chain struct {
	serviceName  string
	previousHash []byte
	sequence     uint64
}

// NewChain starts a fresh chain at sequence zero.
func NewChain(serviceName string) *Chain {
	return &Chain{serviceName: serviceName}
}

// ResumeChain continues a chain from persisted state. previousHash is the
// hex digest of the latest stored event, empty if storage is empty.
func ResumeChain(serviceName, previousHash string, sequence uint64) (*Chain, error) {
	c := &Chain{serviceName: serviceName, sequence: sequence}
	if previousHash != "" {
		raw, err := hex.DecodeString(previousHash)
		if err != nil {
			return nil, fmt.Errorf("resuming chain: previous hash is not hex: %w", err)
		}
		c.previousHash = raw
	}
	return c, nil
}

// Sequence returns the last assigned sequence number.
func (c *Chain) Sequence() uint64 {
	return c.sequence
}

// PreviousHashHex returns the hex digest of the last sealed event, or the
// empty string for a fresh chain.
func (c *Chain) PreviousHashHex() string {
	if len(c.previousHash) == 0 {
		return ""
	}
	return hex.EncodeToString(c.previousHash)
}

// Seal assigns the next sequence number, links the event to its
// predecessor, and computes its hash. The event's chain fields are
// populated in place.
func (c *Chain) Seal(event *Event) {
	c.sequence++
	event.Sequence = c.sequence
	event.ServiceName = c.serviceName
	if len(c.previousHash) > 0 {
		event.PreviousHash = hex.EncodeToString(c.previousHash)
	} else {
		event.PreviousHash = ""
	}

	digest := hashEvent(event, c.previousHash)
	event.Hash = hex.EncodeToString(digest)
	c.previousHash = digest
}

// hashEvent computes the BLAKE3 digest over the sealed fields in fixed
// order. The order is part of the storage format and must not change.
func hashEvent(event *Event, previousHash []byte) []byte {
	h := blake3.New(32, nil)

	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], event.Sequence)
	_, _ = h.Write(seq[:])

	if len(previousHash) > 0 {
		_, _ = h.Write(previousHash)
	}

	_, _ = h.Write([]byte(event.ID))
	_, _ = h.Write([]byte(event.Timestamp.Format(timestampLayout)))
	_, _ = h.Write([]byte(event.Kind))
	_, _ = h.Write([]byte{byte(event.Severity)})
	_, _ = h.Write([]byte(event.ServiceName))
	_, _ = h.Write([]byte(event.Method))
	_, _ = h.Write([]byte(event.Path))

	if event.StatusCode > 0 {
		var status [2]byte
		binary.LittleEndian.PutUint16(status[:], uint16(event.StatusCode)) //nolint:gosec // statuses fit
		_, _ = h.Write(status[:])
	}

	_, _ = h.Write([]byte(event.Source.Subject))

	return h.Sum(nil)
}

// timestampLayout is RFC 3339 with fixed sub-second precision so the hash
// input is stable across serialisation round trips.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// VerifyChain recomputes every hash in a slice of events ordered by
// sequence and checks each link. It returns the sequence number of the
// first mismatch. An empty slice verifies trivially.
func VerifyChain(events []*Event) error {
	var previousHash []byte
	var previousHex string

	for i, event := range events {
		if event.PreviousHash != previousHex {
			return fmt.Errorf("chain broken at sequence %d: previous hash mismatch", event.Sequence)
		}

		digest := hashEvent(event, previousHash)
		if hex.EncodeToString(digest) != event.Hash {
			return fmt.Errorf("chain broken at sequence %d: hash mismatch", event.Sequence)
		}

		if i > 0 && event.Sequence != events[i-1].Sequence+1 {
			return fmt.Errorf("chain broken at sequence %d: non-contiguous sequence", event.Sequence)
		}

		previousHash = digest
		previousHex = event.Hash
	}
	return nil
}
