package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/mr-tron/base58"
)

// Memo program ids (v2 and the legacy v1).
const (
	MemoProgramID   = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	MemoProgramIDV1 = "Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo"
)

// DecodeResult is the tagged outcome of one decoding attempt.
type DecodeResult struct {
	Encoding string
	Data     []byte
	Err      error
}

// Ok reports whether the attempt produced bytes.
func (r DecodeResult) Ok() bool {
	return r.Err == nil
}

// MemoDecodeStep turns raw instruction data into bytes.
type MemoDecodeStep struct {
	Encoding string
	Decode   func(string) ([]byte, error)
}

// DefaultMemoDecodeSteps tries base58 (how indexers encode instruction data)
// before base64.
func DefaultMemoDecodeSteps() []MemoDecodeStep {
	return []MemoDecodeStep{
		{Encoding: "base58", Decode: base58.Decode},
		{Encoding: "base64", Decode: base64.StdEncoding.DecodeString},
	}
}

// MemoDecoder extracts the checkout memo from a transaction's instructions.
type MemoDecoder struct {
	steps []MemoDecodeStep
}

// NewMemoDecoder creates a decoder with the given ordered steps.
func NewMemoDecoder(steps ...MemoDecodeStep) *MemoDecoder {
	if len(steps) == 0 {
		steps = DefaultMemoDecodeSteps()
	}
	return &MemoDecoder{steps: steps}
}

// Attempts runs every step against data and returns their results in order.
func (d *MemoDecoder) Attempts(data string) []DecodeResult {
	out := make([]DecodeResult, 0, len(d.steps))
	for _, step := range d.steps {
		b, err := step.Decode(data)
		if err == nil && len(b) == 0 {
			err = errors.New("empty result")
		}
		out = append(out, DecodeResult{Encoding: step.Encoding, Data: b, Err: err})
	}
	return out
}

// Decode returns the first memo found in a memo-program instruction.
// ErrMemoDecode wraps every failure.
func (d *MemoDecoder) Decode(instructions []ports.ChainInstruction) (*domain.Memo, error) {
	var reasons []string
	for _, ix := range instructions {
		if !IsMemoProgram(ix.ProgramID) {
			continue
		}
		for _, res := range d.Attempts(ix.Data) {
			if !res.Ok() {
				reasons = append(reasons, res.Encoding+": "+res.Err.Error())
				continue
			}
			memo, err := parseMemo(res.Data)
			if err != nil {
				reasons = append(reasons, res.Encoding+": "+err.Error())
				continue
			}
			return memo, nil
		}
	}
	if len(reasons) == 0 {
		return nil, fmt.Errorf("%w: no memo instruction", ErrMemoDecode)
	}
	return nil, fmt.Errorf("%w: %s", ErrMemoDecode, strings.Join(reasons, "; "))
}

// IsMemoProgram reports whether programID is a memo program.
func IsMemoProgram(programID string) bool {
	return programID == MemoProgramID || programID == MemoProgramIDV1
}

func parseMemo(b []byte) (*domain.Memo, error) {
	var memo domain.Memo
	if err := json.Unmarshal(b, &memo); err != nil {
		return nil, errors.New("not memo JSON")
	}
	if err := memo.Validate(); err != nil {
		return nil, err
	}
	return &memo, nil
}
