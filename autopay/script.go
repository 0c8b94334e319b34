package autopay

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const contractABI = `[{
	"type": "function",
	"name": "create_instruction",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "uid", "type": "uint64"},
		{"name": "in_type", "type": "uint8"},
		{"name": "payee", "type": "address"},
		{"name": "end_epoch", "type": "uint64"},
		{"name": "value", "type": "uint64"}
	],
	"outputs": []
}]`

var parsedABI = mustParseABI(contractABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Script is the contract call data for one instruction.
type Script struct {
	Instruction Instruction
	Data        []byte
}

// Scripts encodes every instruction still valid at startingEpoch, preserving
// order. Instructions ending before startingEpoch are dropped.
func Scripts(instructions []Instruction, startingEpoch uint64, log *slog.Logger) ([]Script, error) {
	scripts := make([]Script, 0, len(instructions))
	for _, instr := range instructions {
		endEpoch := instr.EffectiveEndEpoch(startingEpoch)
		if endEpoch < startingEpoch {
			log.Warn("Skipping expired autopay instruction",
				slog.Uint64("uid", instr.UID),
				slog.Uint64("end_epoch", endEpoch),
				slog.Uint64("starting_epoch", startingEpoch))
			continue
		}

		typeCode, _ := instr.Type.code()
		data, err := parsedABI.Pack("create_instruction", instr.UID, typeCode, instr.Destination, endEpoch, instr.Value)
		if err != nil {
			return nil, fmt.Errorf("could not encode instruction %d: %w", instr.UID, err)
		}
		scripts = append(scripts, Script{Instruction: instr, Data: data})
	}
	return scripts, nil
}

// DecodeScript unpacks call data produced by Scripts into uid, type code,
// payee, end epoch and value.
func DecodeScript(data []byte) ([]interface{}, error) {
	method, err := parsedABI.MethodById(data)
	if err != nil {
		return nil, err
	}
	return method.Inputs.Unpack(data[4:])
}
