package vault

import (
	"encoding/json"
	"fmt"
)

const codecFormat = 1

type plaintextVault struct {
	Format  int      `json:"format"`
	Records []Record `json:"records"`
}

// EncodeRecords serializes records into the plaintext that gets sealed.
func EncodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	b, err := json.Marshal(plaintextVault{Format: codecFormat, Records: records})
	if err != nil {
		return nil, fmt.Errorf("vault: encode records: %w", err)
	}
	return b, nil
}

// DecodeRecords is the inverse of EncodeRecords. The result is never nil.
func DecodeRecords(b []byte) ([]Record, error) {
	var pv plaintextVault
	if err := json.Unmarshal(b, &pv); err != nil {
		return nil, fmt.Errorf("%w: decode records: %v", ErrFormat, err)
	}
	if pv.Format != codecFormat {
		return nil, fmt.Errorf("%w: unsupported record format %d", ErrFormat, pv.Format)
	}
	if pv.Records == nil {
		pv.Records = []Record{}
	}
	return pv.Records, nil
}
