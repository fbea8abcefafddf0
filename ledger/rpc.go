package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures the JSON-RPC client.
type Options struct {
	URL          string
	Commitment   string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// RPCClient reads transactions from a Solana JSON-RPC node.
type RPCClient struct {
	client     *resty.Client
	commitment string
	nextID     atomic.Uint64
}

// JSON-RPC error codes returned for malformed request parameters. A signature
// the node cannot even parse cannot name a transaction.
const rpcInvalidParams = -32602

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result *txResult `json:"result"`
	Error  *rpcError `json:"error"`
}

type txResult struct {
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err               json.RawMessage `json:"err"`
		InnerInstructions []struct {
			Instructions []instruction `json:"instructions"`
		} `json:"innerInstructions"`
	} `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			Instructions []instruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type instruction struct {
	Program string `json:"program"`
	// Parsed is an object for known programs and a string otherwise.
	Parsed json.RawMessage `json:"parsed"`
}

type parsedInstruction struct {
	Type string   `json:"type"`
	Info Transfer `json:"info"`
}

// NewRPCClient builds a client that retries transport errors, 429 and 5xx
// with bounded exponential backoff.
func NewRPCClient(opts Options) *RPCClient {
	if opts.Commitment == "" {
		opts.Commitment = "confirmed"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(opts.URL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	return &RPCClient{client: client, commitment: opts.Commitment}
}

// GetTransaction fetches signature with jsonParsed encoding. A null result is
// reported as ErrTransactionNotFound without retrying.
func (c *RPCClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "getTransaction",
		Params: []interface{}{
			signature,
			map[string]interface{}{
				"encoding":                       "jsonParsed",
				"commitment":                     c.commitment,
				"maxSupportedTransactionVersion": 0,
			},
		},
	}

	var out rpcResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: rpc status %d", ErrUnavailable, resp.StatusCode())
	}
	if out.Error != nil {
		if out.Error.Code == rpcInvalidParams {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, out.Error.Message)
		}
		return nil, fmt.Errorf("%w: rpc error %d: %s", ErrUnavailable, out.Error.Code, out.Error.Message)
	}
	if out.Result == nil {
		return nil, ErrTransactionNotFound
	}
	return out.Result.toTransaction(signature), nil
}

func (r *txResult) toTransaction(signature string) *Transaction {
	tx := &Transaction{Signature: signature, Slot: r.Slot}
	if r.BlockTime != nil {
		bt := time.Unix(*r.BlockTime, 0).UTC()
		tx.BlockTime = &bt
	}

	instructions := r.Transaction.Message.Instructions
	if r.Meta != nil {
		if len(r.Meta.Err) > 0 && string(r.Meta.Err) != "null" {
			tx.Failed = true
		}
		for _, inner := range r.Meta.InnerInstructions {
			instructions = append(instructions, inner.Instructions...)
		}
	}

	for _, ins := range instructions {
		if ins.Program != "system" || len(ins.Parsed) == 0 || ins.Parsed[0] != '{' {
			continue
		}
		var p parsedInstruction
		if err := json.Unmarshal(ins.Parsed, &p); err != nil {
			continue
		}
		if p.Type == "transfer" || p.Type == "transferWithSeed" {
			tx.Transfers = append(tx.Transfers, p.Info)
		}
	}
	return tx
}
