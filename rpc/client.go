package rpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
)

// tokenTTL bounds the lifetime of each minted bearer token.
const tokenTTL = time.Minute

// Client calls a node over JSON-RPC.
type Client struct {
	url    string
	secret []byte
	http   *http.Client

	mu      sync.Mutex
	senders map[crypto.Address]*sync.Mutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithTLS dials the node with cfg.
func WithTLS(cfg *tls.Config) ClientOption {
	return func(c *Client) {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = cfg
		c.http = &http.Client{Transport: tr, Timeout: c.http.Timeout}
	}
}

// WithSecret makes the client sign an HS256 bearer token per request.
func WithSecret(secret []byte) ClientOption {
	return func(c *Client) { c.secret = secret }
}

// Dial returns a client for the node at url. No request is made.
func Dial(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:     strings.TrimRight(url, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		senders: make(map[crypto.Address]*sync.Mutex),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL is the node endpoint.
func (c *Client) URL() string { return c.url }

// HTTPClient is the client requests are sent with.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Token mints a bearer token, or "" when no secret is configured.
func (c *Client) Token() (string, error) {
	if len(c.secret) == 0 {
		return "", nil
	}
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		ID:        uuid.NewString(),
	})
	s, err := tok.SignedString(c.secret)
	return s, errors.Wrap(err, "sign token")
}

// Call invokes method with params and decodes the result into out (which
// may be nil). Revert errors match the ledger and fhe sentinels.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "encode params")
	}
	body, err := json.Marshal(Request{JSONRPC: "2.0", ID: uuid.NewString(), Method: method, Params: raw})
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	tok, err := c.Token()
	if err != nil {
		return err
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call %s", method)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return errors.Wrapf(err, "decode %s response (HTTP %d)", method, resp.StatusCode)
	}
	if e := rpcResp.Error; e != nil {
		if e.Data != "" {
			return ledger.RevertError(e.Data, e.Message)
		}
		return errors.Wrapf(e, "%s", method)
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(rpcResp.Result, out), "decode %s result", method)
}

// ChainID asks the node for its chain id.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var id uint64
	err := c.Call(ctx, MethodChainID, nil, &id)
	return id, err
}

// ContractAddress asks the node where the game contract lives.
func (c *Client) ContractAddress(ctx context.Context) (crypto.Address, error) {
	var a crypto.Address
	err := c.Call(ctx, MethodContractAddress, nil, &a)
	return a, err
}

func (c *Client) Nonce(ctx context.Context, addr crypto.Address) (uint64, error) {
	var n uint64
	err := c.Call(ctx, MethodGetNonce, AddressParams{Address: addr}, &n)
	return n, err
}

func (c *Client) SendTransaction(ctx context.Context, tx *ledger.Transaction) (ledger.Receipt, error) {
	var r ledger.Receipt
	err := c.Call(ctx, MethodSendTransaction, tx, &r)
	return r, err
}

// NetworkPublicKey makes Client an fhe.Relayer.
func (c *Client) NetworkPublicKey(ctx context.Context) ([]byte, error) {
	var k []byte
	err := c.Call(ctx, MethodNetworkPublicKey, nil, &k)
	return k, err
}

func (c *Client) UserDecrypt(ctx context.Context, req fhe.UserDecryptRequest) (map[fhe.Handle][]byte, error) {
	var out map[fhe.Handle][]byte
	err := c.Call(ctx, MethodUserDecrypt, req, &out)
	return out, err
}

var _ fhe.Relayer = (*Client)(nil)

// sender returns the lock serializing nonce assignment for addr.
func (c *Client) sender(addr crypto.Address) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.senders[addr]
	if !ok {
		l = new(sync.Mutex)
		c.senders[addr] = l
	}
	return l
}

// Bind returns the game contract at address, sending transactions for
// chainID signed by signer.
func (c *Client) Bind(address crypto.Address, chainID uint64, signer ledger.TxSigner) *Contract {
	return &Contract{c: c, address: address, chainID: chainID, signer: signer}
}
