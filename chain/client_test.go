package chain

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/ruteri/validator-provisioning/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newNode serves canned JSON-RPC results keyed by method.
func newNode(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		result, ok := results[req.Method]
		if !ok {
			w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32601,"message":"method not found"}}`))
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestChainView(t *testing.T) {
	node := newNode(t, map[string]string{
		"get_metadata": `{"version": 1234, "chain_id": 1, "epoch": 12, "waypoint": "W", "total_supply": 10000, "validator_count": 4}`,
	})
	c := dial(t, node.URL)

	view, err := c.ChainView(context.Background())
	require.NoError(t, err)
	assert.Equal(t, monitor.ChainView{Epoch: 12, Height: 1234, Waypoint: "W", ValidatorCount: 4, TotalSupply: 10000, ChainID: 1}, view)

	height, err := c.SyncHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), height)
}

func TestValidators(t *testing.T) {
	node := newNode(t, map[string]string{
		"get_validators": `[{"account_address": "aa", "voting_power": 3, "tower_height": 9}]`,
	})

	views, err := dial(t, node.URL).Validators(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []monitor.ValidatorView{{AccountAddress: "aa", VotingPower: 3, TowerHeight: 9}}, views)
}

func TestAccount(t *testing.T) {
	address := interfaces.AccountAddress{0xab}

	node := newNode(t, map[string]string{
		"get_account_state": `{"address": "ab", "balances": [{"amount": 7, "currency": "GAS"}], "sequence_number": 3}`,
	})
	view, err := dial(t, node.URL).Account(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, monitor.OwnerAccountView{Address: address.String(), Balance: 7, SequenceNumber: 3}, view)

	missing := newNode(t, map[string]string{"get_account_state": `null`})
	_, err = dial(t, missing.URL).Account(context.Background(), address)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRPCErrorIsNetworkError(t *testing.T) {
	node := newNode(t, map[string]string{})
	_, err := dial(t, node.URL).ChainView(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
}
