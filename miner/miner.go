// Package miner produces the block-zero proof that activates a new account.
// The proof is a sequential Keccak-256 delay over a preimage bound to the
// account's auth key and chain.
package miner

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/interfaces"
)

// BlockZeroFileName is the first proof in the block directory.
const BlockZeroFileName = "block_0.json"

// DefaultDifficulty is the number of delay iterations for a new proof.
const DefaultDifficulty = 1_000_000

// Block is a mined proof as persisted in the block directory.
type Block struct {
	Height     uint64 `json:"height"`
	Preimage   string `json:"preimage"`
	Proof      string `json:"proof"`
	Difficulty uint64 `json:"difficulty"`
	ElapsedSec uint64 `json:"elapsed_secs"`
}

// DelayMiner mines block zero.
type DelayMiner struct {
	Difficulty uint64
	log        *slog.Logger
}

func NewDelayMiner(difficulty uint64, log *slog.Logger) *DelayMiner {
	if difficulty == 0 {
		difficulty = DefaultDifficulty
	}
	return &DelayMiner{Difficulty: difficulty, log: log}
}

// Preimage binds a proof to an account and chain.
func Preimage(cfg *config.NodeConfig) []byte {
	var chainID [8]byte
	binary.BigEndian.PutUint64(chainID[:], cfg.ChainInfo.ChainID)
	return crypto.Keccak256(cfg.Profile.AuthKey[:], chainID[:], []byte(cfg.Profile.Statement))
}

// MineGenesis computes block zero for cfg and writes it to
// <block_dir>/block_0.json, replacing any earlier proof.
func (m *DelayMiner) MineGenesis(ctx context.Context, cfg *config.NodeConfig) (*Block, string, error) {
	preimage := Preimage(cfg)

	start := time.Now()
	proof, err := delay(ctx, preimage, m.Difficulty)
	if err != nil {
		return nil, "", err
	}

	block := &Block{
		Height:     0,
		Preimage:   hex.EncodeToString(preimage),
		Proof:      hex.EncodeToString(proof),
		Difficulty: m.Difficulty,
		ElapsedSec: uint64(time.Since(start).Seconds()),
	}

	dir := cfg.BlockDirPath()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", interfaces.NewError(interfaces.ErrFileSystem, dir, err)
	}

	data, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("could not encode block: %w", err)
	}

	path := filepath.Join(dir, BlockZeroFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, "", interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}

	m.log.Info("Mined block zero",
		slog.String("path", path),
		slog.Uint64("difficulty", m.Difficulty),
		slog.Duration("duration", time.Since(start)))

	return block, path, nil
}

// Verify recomputes the delay and compares it with the recorded proof.
func Verify(ctx context.Context, block *Block) (bool, error) {
	preimage, err := hex.DecodeString(block.Preimage)
	if err != nil {
		return false, interfaces.NewError(interfaces.ErrValidation, "preimage", err)
	}
	proof, err := delay(ctx, preimage, block.Difficulty)
	if err != nil {
		return false, err
	}
	return hex.EncodeToString(proof) == block.Proof, nil
}

// ReadBlock loads a persisted proof.
func ReadBlock(path string) (*Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	var block Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, interfaces.NewError(interfaces.ErrValidation, path, err)
	}
	return &block, nil
}

func delay(ctx context.Context, preimage []byte, iterations uint64) ([]byte, error) {
	out := crypto.Keccak256(preimage)
	for i := uint64(1); i < iterations; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = crypto.Keccak256(out)
	}
	return out, nil
}
