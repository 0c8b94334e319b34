package autopay

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/core/types"
)

// Batch is the outcome of a build: the instructions that were honored and
// their signed transactions, index for index.
type Batch struct {
	Instructions []Instruction
	Signed       []*types.Transaction
}

// Builder turns an instruction source into a signed batch.
type Builder struct {
	log *slog.Logger
}

func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// Build reads instructions from src, encodes the ones valid at startingEpoch
// and signs them with params.
func (b *Builder) Build(ctx context.Context, src Source, startingEpoch uint64, params TxParams) (Batch, error) {
	instructions, err := ReadInstructions(src)
	if err != nil {
		return Batch{}, err
	}

	scripts, err := Scripts(instructions, startingEpoch, b.log)
	if err != nil {
		return Batch{}, err
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	signed, err := Sign(scripts, params)
	if err != nil {
		return Batch{}, err
	}

	honored := make([]Instruction, len(scripts))
	for i, script := range scripts {
		honored[i] = script.Instruction
	}

	b.log.Info("Built autopay batch",
		slog.String("source", src.Path),
		slog.Bool("template", src.Template),
		slog.Int("instructions", len(instructions)),
		slog.Int("signed", len(signed)),
		slog.Uint64("starting_epoch", startingEpoch))

	return Batch{Instructions: honored, Signed: signed}, nil
}
