package autopay

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/ruteri/validator-provisioning/wallet"
)

// TxParams carries everything needed to sign a batch.
type TxParams struct {
	Key            *ecdsa.PrivateKey
	ChainID        *big.Int
	Contract       common.Address
	SequenceNumber uint64
	MaxGas         uint64
	GasPrice       *big.Int
}

// TxParamsFromConfig derives signing parameters from the node configuration
// and the wallet holding the account key.
func TxParamsFromConfig(cfg *config.NodeConfig, w *wallet.Wallet) (TxParams, error) {
	if w == nil {
		return TxParams{}, interfaces.NewError(interfaces.ErrSigning, "wallet", wallet.ErrNoWallet)
	}
	if cfg == nil {
		return TxParams{}, interfaces.NewError(interfaces.ErrSigning, config.FileName, errors.New("no node configuration"))
	}
	if cfg.ChainInfo.ChainID == 0 {
		return TxParams{}, interfaces.NewError(interfaces.ErrSigning, "chain_info.chain_id", errors.New("chain id is not set"))
	}
	if !common.IsHexAddress(cfg.TxConfigs.AutopayContract) {
		return TxParams{}, interfaces.NewError(interfaces.ErrSigning, "tx_configs.autopay_contract", fmt.Errorf("invalid address %q", cfg.TxConfigs.AutopayContract))
	}

	return TxParams{
		Key:            w.PrivateKey(),
		ChainID:        new(big.Int).SetUint64(cfg.ChainInfo.ChainID),
		Contract:       common.HexToAddress(cfg.TxConfigs.AutopayContract),
		SequenceNumber: cfg.TxConfigs.SequenceNumber,
		MaxGas:         cfg.TxConfigs.MaxGasUnitForTx,
		GasPrice:       new(big.Int).SetUint64(cfg.TxConfigs.CoinPricePerUnit),
	}, nil
}

// Signer returns the transaction signer for the params' chain.
func (p TxParams) Signer() types.Signer {
	return types.NewEIP155Signer(p.ChainID)
}

// Sign produces one signed transaction per script in order; the i-th
// transaction uses nonce SequenceNumber+i.
func Sign(scripts []Script, params TxParams) ([]*types.Transaction, error) {
	if params.Key == nil {
		return nil, interfaces.NewError(interfaces.ErrSigning, "wallet", wallet.ErrNoWallet)
	}

	signer := params.Signer()
	signed := make([]*types.Transaction, 0, len(scripts))
	for i, script := range scripts {
		to := params.Contract
		tx := types.NewTx(&types.LegacyTx{
			Nonce:    params.SequenceNumber + uint64(i),
			GasPrice: params.GasPrice,
			Gas:      params.MaxGas,
			To:       &to,
			Value:    big.NewInt(0),
			Data:     script.Data,
		})

		signedTx, err := types.SignTx(tx, signer, params.Key)
		if err != nil {
			return nil, interfaces.NewError(interfaces.ErrSigning, fmt.Sprintf("instruction %d", script.Instruction.UID), err)
		}
		signed = append(signed, signedTx)
	}
	return signed, nil
}

// EncodeSigned returns the hex-encoded wire form of each transaction.
func EncodeSigned(txs []*types.Transaction) ([]string, error) {
	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return nil, interfaces.NewError(interfaces.ErrSigning, tx.Hash().Hex(), err)
		}
		encoded = append(encoded, hexutil.Encode(raw))
	}
	return encoded, nil
}
