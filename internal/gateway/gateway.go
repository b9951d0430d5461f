// Package gateway submits orders produced by the reconciliation pipeline to
// the venue's CLOB REST API, signing each one with EIP-712 first. A
// DRY_RUN deployment swaps in the in-memory Simulator instead.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/onyxlabs/pmengine/internal/crypto"
	"github.com/onyxlabs/pmengine/internal/domain"
)

// priceScale converts a decimal price/size into the CLOB's integer amount
// units, matching the venue's 6-decimal USDC collateral convention.
const priceScale = 1_000_000

// orderRateLimitKey is the single bucket every order submission waits on:
// the venue enforces its order-endpoint quota per API key, not per market.
const orderRateLimitKey = "clob:orders"

// Gateway signs and submits orders against the live CLOB REST API.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	hmacAuth   *crypto.HMACAuth
	chainID    int
	limiter    domain.RateLimiter
}

// New constructs a live Gateway. baseURL is the CLOB API root, e.g.
// "https://clob.example.com". hmacAuth may be nil if the venue does not
// require L2 authentication on the order endpoint. limiter may be nil, in
// which case Submit never waits before posting.
func New(baseURL string, signer *crypto.Signer, hmacAuth *crypto.HMACAuth, chainID int, limiter domain.RateLimiter) *Gateway {
	return &Gateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		signer:     signer,
		hmacAuth:   hmacAuth,
		chainID:    chainID,
		limiter:    limiter,
	}
}

type apiOrderResult struct {
	Success    bool    `json:"success"`
	OrderID    string  `json:"orderID"`
	Status     string  `json:"status"`
	FilledSize float64 `json:"filledSize"`
	AvgPrice   float64 `json:"avgPrice"`
	ErrorMsg   string  `json:"errorMsg"`
}

// Submit signs o and posts it to the CLOB order endpoint, translating the
// venue's response into a domain.OrderAck. Every order type is handled the
// same way: an unsuccessful response is Rejected, a "matched" or "filled"
// status is Filled, and any other status (including an order left resting
// on the book) is reported as Expired. Later fills of a resting order are
// not reported.
func (g *Gateway) Submit(ctx context.Context, o domain.Order) (domain.OrderAck, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, orderRateLimitKey); err != nil {
			return domain.OrderAck{}, fmt.Errorf("gateway: rate limit wait: %w", err)
		}
	}

	start := time.Now()

	sizeShares := 0.0
	if o.Price > 0 {
		sizeShares = o.SizeUSD / o.Price
	}

	payload := crypto.OrderPayload{
		Salt:          uuid.New().String(),
		Maker:         g.signer.Address().Hex(),
		Signer:        g.signer.Address().Hex(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       o.TokenID,
		MakerAmount:   scaleAmount(o.SizeUSD).String(),
		TakerAmount:   scaleAmount(sizeShares).String(),
		Expiration:    orderExpiration(o.Type),
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          0,
		SignatureType: 0,
	}

	sig, err := g.signer.SignOrder(payload)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("gateway: sign order: %w", err)
	}

	body := map[string]any{
		"order": map[string]any{
			"salt":          payload.Salt,
			"maker":         payload.Maker,
			"signer":        payload.Signer,
			"taker":         payload.Taker,
			"tokenID":       payload.TokenID,
			"makerAmount":   payload.MakerAmount,
			"takerAmount":   payload.TakerAmount,
			"expiration":    payload.Expiration,
			"nonce":         payload.Nonce,
			"feeRateBps":    payload.FeeRateBps,
			"side":          payload.Side,
			"signatureType": payload.SignatureType,
			"signature":     sig,
		},
		"orderType": string(o.Type),
		"owner":     g.signer.Address().Hex(),
	}

	respBody, err := g.doRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("gateway: post order: %w", err)
	}

	var result apiOrderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return domain.OrderAck{}, fmt.Errorf("gateway: decode order result: %w", err)
	}

	ack := domain.OrderAck{
		OrderID:    result.OrderID,
		StrategyID: o.StrategyID,
		Side:       o.Side,
		Price:      result.AvgPrice,
		SizeShares: result.FilledSize,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	if !result.Success {
		ack.Status = domain.OrderAckRejected
		return ack, fmt.Errorf("gateway: order rejected: %s", result.ErrorMsg)
	}
	switch result.Status {
	case "matched", "filled":
		ack.Status = domain.OrderAckFilled
		if ack.Price == 0 {
			ack.Price = o.Price
		}
		if ack.SizeShares == 0 && ack.Price > 0 {
			ack.SizeShares = o.SizeUSD / ack.Price
		}
	case "expired", "cancelled":
		ack.Status = domain.OrderAckExpired
	default:
		ack.Status = domain.OrderAckExpired
	}
	return ack, nil
}

// orderExpiration returns the Unix-second deadline the venue should expire
// the order at, or "0" for order types that never expire on their own.
func orderExpiration(t domain.OrderType) string {
	switch t {
	case domain.OrderTypeTimedAggressive:
		return fmt.Sprintf("%d", time.Now().Add(10*time.Second).Unix())
	case domain.OrderTypeAggressiveIOC:
		return fmt.Sprintf("%d", time.Now().Add(2*time.Second).Unix())
	default:
		return "0"
	}
}

func scaleAmount(v float64) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(v), big.NewFloat(priceScale))
	out, _ := scaled.Int(nil)
	return out
}

func (g *Gateway) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(raw)
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.hmacAuth != nil {
		headers := g.hmacAuth.L2Headers(g.signer.Address().Hex(), method, path, bodyStr)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gateway: http %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
