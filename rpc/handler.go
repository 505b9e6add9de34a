package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tolelom/fhe2048/devnet"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
)

// Handler serves RPC methods from a devnet node.
type Handler struct {
	node    *devnet.Node
	methods map[string]func(context.Context, json.RawMessage) (any, error)
}

// NewHandler creates an RPC Handler.
func NewHandler(node *devnet.Node) *Handler {
	h := &Handler{node: node}
	h.methods = map[string]func(context.Context, json.RawMessage) (any, error){
		MethodChainID:           h.chainID,
		MethodContractAddress:   h.contractAddress,
		MethodGetNonce:          h.getNonce,
		MethodSendTransaction:   h.sendTransaction,
		MethodGetGameSession:    h.getGameSession,
		MethodGetPlayerStats:    h.getPlayerStats,
		MethodGetPlayers:        h.getPlayers,
		MethodGetPlayersCount:   h.totalPlayers,
		MethodTotalGames:        h.totalGames,
		MethodTotalPlayers:      h.totalPlayers,
		MethodGameIDCounter:     h.gameIDCounter,
		MethodGetGlobalAverages: h.getGlobalAverages,
		MethodNetworkPublicKey:  h.networkPublicKey,
		MethodUserDecrypt:       h.userDecrypt,
	}
	return h
}

// paramsError marks a params decoding failure.
type paramsError struct{ err error }

func (e paramsError) Error() string { return "params: " + e.err.Error() }

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return paramsError{err}
	}
	return nil
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(ctx context.Context, req Request) Response {
	m, ok := h.methods[req.Method]
	if !ok {
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), "")
	}
	result, err := m(ctx, req.Params)
	if err != nil {
		if pe, ok := err.(paramsError); ok {
			return errResponse(req.ID, CodeInvalidParams, pe.Error(), "")
		}
		if name := ledger.RevertName(err); name != "" {
			return errResponse(req.ID, CodeReverted, err.Error(), name)
		}
		return errResponse(req.ID, CodeInternalError, err.Error(), "")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error(), "")
	}
	return okResponse(req.ID, data)
}

func (h *Handler) chainID(context.Context, json.RawMessage) (any, error) {
	return h.node.ChainID(), nil
}

func (h *Handler) contractAddress(context.Context, json.RawMessage) (any, error) {
	return h.node.ContractAddress(), nil
}

func (h *Handler) getNonce(_ context.Context, raw json.RawMessage) (any, error) {
	var p AddressParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.node.Nonce(p.Address)
}

func (h *Handler) sendTransaction(_ context.Context, raw json.RawMessage) (any, error) {
	var tx ledger.Transaction
	if err := decode(raw, &tx); err != nil {
		return nil, err
	}
	return h.node.SendTransaction(&tx)
}

func (h *Handler) getGameSession(_ context.Context, raw json.RawMessage) (any, error) {
	var p SessionParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.node.GameSession(p.SessionID)
}

func (h *Handler) getPlayerStats(_ context.Context, raw json.RawMessage) (any, error) {
	var p AddressParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.node.PlayerStats(p.Address)
}

func (h *Handler) getPlayers(_ context.Context, raw json.RawMessage) (any, error) {
	var p PageParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.node.Players(p.Offset, p.Limit)
}

func (h *Handler) totalGames(context.Context, json.RawMessage) (any, error) {
	g, err := h.node.Globals()
	return g.TotalGames, err
}

func (h *Handler) totalPlayers(context.Context, json.RawMessage) (any, error) {
	g, err := h.node.Globals()
	return g.TotalPlayers, err
}

func (h *Handler) gameIDCounter(context.Context, json.RawMessage) (any, error) {
	g, err := h.node.Globals()
	return g.GameIDCounter, err
}

func (h *Handler) getGlobalAverages(context.Context, json.RawMessage) (any, error) {
	s, m, err := h.node.GlobalAverages()
	if err != nil {
		return nil, err
	}
	return AveragesResult{AvgScore: s, AvgMoves: m}, nil
}

func (h *Handler) networkPublicKey(ctx context.Context, _ json.RawMessage) (any, error) {
	return h.node.NetworkPublicKey(ctx)
}

func (h *Handler) userDecrypt(ctx context.Context, raw json.RawMessage) (any, error) {
	var req fhe.UserDecryptRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	return h.node.UserDecrypt(ctx, req)
}
