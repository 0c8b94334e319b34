// Package autopay compiles recurring-payment instructions into signed
// transactions against the autopay contract.
package autopay

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/validator-provisioning/interfaces"
)

// DefaultFileName is the instruction source used when neither a template nor
// an explicit file was given.
const DefaultFileName = "autopay.json"

// InstructionType selects how an instruction's value is interpreted.
type InstructionType string

const (
	PercentOfBalance InstructionType = "percent_of_balance"
	PercentOfChange  InstructionType = "percent_of_change"
	FixedRecurring   InstructionType = "fixed_recurring"
	FixedOnce        InstructionType = "fixed_once"
)

// code is the numeric form used in the contract call.
func (t InstructionType) code() (uint8, bool) {
	switch t {
	case PercentOfBalance:
		return 0, true
	case PercentOfChange:
		return 1, true
	case FixedRecurring:
		return 2, true
	case FixedOnce:
		return 3, true
	}
	return 0, false
}

// Instruction is a single payment directive. Value is in basis points for the
// percentage types and in coins for the fixed ones.
type Instruction struct {
	UID            uint64          `json:"uid"`
	Type           InstructionType `json:"type"`
	Destination    common.Address  `json:"destination"`
	EndEpoch       uint64          `json:"end_epoch,omitempty"`
	DurationEpochs uint64          `json:"duration_epochs,omitempty"`
	Value          uint64          `json:"value"`
	Note           string          `json:"note,omitempty"`
}

// EffectiveEndEpoch resolves a duration-only instruction against startingEpoch.
// Durations reaching past the last epoch saturate at math.MaxUint64.
func (i Instruction) EffectiveEndEpoch(startingEpoch uint64) uint64 {
	if i.EndEpoch != 0 {
		return i.EndEpoch
	}
	if i.DurationEpochs > math.MaxUint64-startingEpoch {
		return math.MaxUint64
	}
	return startingEpoch + i.DurationEpochs
}

type sourceDocument struct {
	Instructions *[]Instruction `json:"autopay_instructions"`
}

// TemplateFileName is the resolved template document in the workspace.
const TemplateFileName = "template.json"

// Source locates an instruction document. A template is a chain checkpoint
// that may carry instructions; when it carries none the list is empty.
// Explicit and default autopay files must hold the list.
type Source struct {
	Path     string
	Template bool
}

func (s Source) String() string {
	return s.Path
}

// SourceFor picks the instruction source: the workspace template when one was
// resolved, else the explicit file, else autopay.json in the workspace.
// Relative paths are taken from home.
func SourceFor(home string, templateUsed bool, file string) Source {
	switch {
	case templateUsed:
		return Source{Path: filepath.Join(home, TemplateFileName), Template: true}
	case file != "":
		if filepath.IsAbs(file) {
			return Source{Path: file}
		}
		return Source{Path: filepath.Join(home, file)}
	default:
		return Source{Path: filepath.Join(home, DefaultFileName)}
	}
}

// ReadInstructions parses the ordered instruction list from src.
func ReadInstructions(src Source) ([]Instruction, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrFileSystem, src.Path, err)
	}
	return parseInstructions(src.Path, data, !src.Template)
}

// ParseInstructions decodes an {"autopay_instructions": [...]} document.
func ParseInstructions(path string, data []byte) ([]Instruction, error) {
	return parseInstructions(path, data, true)
}

func parseInstructions(path string, data []byte, requireList bool) ([]Instruction, error) {
	var doc sourceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, interfaces.NewError(interfaces.ErrValidation, path, fmt.Errorf("malformed autopay source: %w", err))
	}
	if doc.Instructions == nil {
		if requireList {
			return nil, interfaces.NewError(interfaces.ErrValidation, path, errors.New("missing field autopay_instructions"))
		}
		return []Instruction{}, nil
	}

	for idx, instr := range *doc.Instructions {
		if _, ok := instr.Type.code(); !ok {
			return nil, interfaces.NewError(interfaces.ErrValidation, path, fmt.Errorf("instruction %d: unknown type %q", idx, instr.Type))
		}
		if instr.Destination == (common.Address{}) {
			return nil, interfaces.NewError(interfaces.ErrValidation, path, fmt.Errorf("instruction %d: missing destination", idx))
		}
	}
	return *doc.Instructions, nil
}
