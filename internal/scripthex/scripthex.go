// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package scripthex decodes the hex-encoded script and transaction-context
// arguments accepted by cmd/scriptdebug. It exists outside the txscript
// package because no form of host I/O belongs at the evaluation engine's
// boundary.
package scripthex

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/bchsuite/bchd/txscript"
)

// DecodeScript decodes a hex-encoded script. An empty string decodes to a
// nil (zero-length) script.
func DecodeScript(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding script hex: %w", err)
	}
	return b, nil
}

// externalStateJSON mirrors txscript.ExternalState with hex-string hash
// fields, the shape cmd/scriptdebug reads from its --context flag.
type externalStateJSON struct {
	Version                        uint32 `json:"version"`
	TransactionOutpointsHash       string `json:"transactionOutpointsHash"`
	TransactionSequenceNumbersHash string `json:"transactionSequenceNumbersHash"`
	OutpointTransactionHash        string `json:"outpointTransactionHash"`
	CorrespondingOutputHash        string `json:"correspondingOutputHash"`
	TransactionOutputsHash         string `json:"transactionOutputsHash"`
	OutpointIndex                  uint32 `json:"outpointIndex"`
	OutpointValue                  uint64 `json:"outpointValue"`
	SequenceNumber                 uint32 `json:"sequenceNumber"`
	LockTime                       uint32 `json:"lockTime"`
	BlockHeight                    uint32 `json:"blockHeight"`
	BlockTime                      uint32 `json:"blockTime"`
}

// DecodeExternalState parses the JSON document at raw into an
// txscript.ExternalState. Hash fields absent from the document are left
// zeroed, matching a SIGHASH_ANYONECANPAY or SIGHASH_NONE spend that never
// references them.
func DecodeExternalState(raw []byte) (txscript.ExternalState, error) {
	var doc externalStateJSON
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return txscript.ExternalState{}, fmt.Errorf("decoding context JSON: %w", err)
		}
	}

	var external txscript.ExternalState

	decodeHash := func(field, s string, dst *chainhash.Hash) error {
		if s == "" {
			return nil
		}
		h, err := chainhash.NewHashFromStr(s)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", field, err)
		}
		*dst = *h
		return nil
	}

	if err := decodeHash("transactionOutpointsHash", doc.TransactionOutpointsHash, &external.TransactionOutpointsHash); err != nil {
		return txscript.ExternalState{}, err
	}
	if err := decodeHash("transactionSequenceNumbersHash", doc.TransactionSequenceNumbersHash, &external.TransactionSequenceNumbersHash); err != nil {
		return txscript.ExternalState{}, err
	}
	if err := decodeHash("outpointTransactionHash", doc.OutpointTransactionHash, &external.OutpointTransactionHash); err != nil {
		return txscript.ExternalState{}, err
	}
	if err := decodeHash("correspondingOutputHash", doc.CorrespondingOutputHash, &external.CorrespondingOutputHash); err != nil {
		return txscript.ExternalState{}, err
	}
	if err := decodeHash("transactionOutputsHash", doc.TransactionOutputsHash, &external.TransactionOutputsHash); err != nil {
		return txscript.ExternalState{}, err
	}

	external.Version = doc.Version
	external.OutpointIndex = doc.OutpointIndex
	external.OutpointValue = doc.OutpointValue
	external.SequenceNumber = doc.SequenceNumber
	external.LockTime = doc.LockTime
	external.BlockHeight = doc.BlockHeight
	external.BlockTime = doc.BlockTime

	return external, nil
}
