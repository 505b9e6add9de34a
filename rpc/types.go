// Package rpc exposes a devnet node over JSON-RPC 2.0 with a websocket
// event stream, and provides the matching client.
package rpc

import (
	"encoding/json"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object. Data carries the revert name
// for contract and key management errors.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32000
	CodeReverted       = -32001
)

// Method names.
const (
	MethodChainID           = "fhe2048_chainId"
	MethodContractAddress   = "fhe2048_contractAddress"
	MethodGetNonce          = "fhe2048_getNonce"
	MethodSendTransaction   = "fhe2048_sendTransaction"
	MethodGetGameSession    = "fhe2048_getGameSession"
	MethodGetPlayerStats    = "fhe2048_getPlayerStats"
	MethodGetPlayers        = "fhe2048_getPlayers"
	MethodGetPlayersCount   = "fhe2048_getPlayersCount"
	MethodTotalGames        = "fhe2048_totalGames"
	MethodTotalPlayers      = "fhe2048_totalPlayers"
	MethodGameIDCounter     = "fhe2048_gameIdCounter"
	MethodGetGlobalAverages = "fhe2048_getGlobalAverages"
	MethodNetworkPublicKey  = "fhe2048_networkPublicKey"
	MethodUserDecrypt       = "fhe2048_userDecrypt"
)

type AddressParams struct {
	Address crypto.Address `json:"address"`
}

type SessionParams struct {
	SessionID uint64 `json:"session_id"`
}

type PageParams struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type AveragesResult struct {
	AvgScore fhe.Handle `json:"avg_score"`
	AvgMoves fhe.Handle `json:"avg_moves"`
}

func errResponse(id any, code int, msg, data string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg, Data: data},
	}
}

func okResponse(id any, result json.RawMessage) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}
