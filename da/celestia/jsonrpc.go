package celestia

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const jsonrpcVersion = "2.0"

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Error codes used by the server.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Method names of the celestia-node API subset used by the rollup.
const (
	MethodBlobSubmit        = "blob.Submit"
	MethodBlobGetAll        = "blob.GetAll"
	MethodNetworkHead       = "header.NetworkHead"
	MethodHeaderGetByHeight = "header.GetByHeight"
)

// Messages of celestia-node errors that are interpreted by the client.
const (
	MsgBlobNotFound = "blob: not found"
	MsgFutureHeight = "given height is from the future"
	MsgSyncing      = "syncing in progress"
)

// Blob is the json form of a celestia blob. Byte fields are base64 encoded.
type Blob struct {
	Namespace    []byte `json:"namespace"`
	Data         []byte `json:"data"`
	ShareVersion uint32 `json:"share_version"`
	Commitment   []byte `json:"commitment"`
	Index        int    `json:"index"`
}

// SubmitOptions are transaction options of blob.Submit.
type SubmitOptions struct {
	GasPrice float64 `json:"gas_price,omitempty"`
}

// Height decodes both quoted and plain json numbers.
type Height uint64

// MarshalJSON encodes the height as a quoted number the way celestia headers do.
func (h Height) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(h), 10))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Height) UnmarshalJSON(data []byte) error {
	value, err := strconv.ParseUint(string(bytes.Trim(data, `"`)), 10, 64)
	if err != nil {
		return fmt.Errorf("parse height %s: %w", data, err)
	}
	*h = Height(value)
	return nil
}

// Header is the part of the extended header read by the client.
type Header struct {
	Header struct {
		Height Height `json:"height"`
	} `json:"header"`
}
