// Package gateway is the sole boundary between the engine and the exchange:
// every order placement, cancellation, position read and balance read goes
// through a Gateway. Nothing upstream builds a CLOB request or touches an
// EIP-712 signature directly.
package gateway

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway is the concrete Exchange Gateway: EIP-712 order signing plus
// HMAC-signed CLOB REST calls, tick-grid snapping via a cached metadata
// client, and a pre-submit collateral balance floor check.
type Gateway struct {
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string
	proxyAddress  string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder

	clobBaseURL string
	httpClient  *http.Client

	metadata *markets.CachedMetadataClient

	walletClient   *wallet.Client
	walletAddress  common.Address
	balanceFloorOn bool
	balanceFloor   decimal.Decimal

	logger *zap.Logger
}

// Config holds Gateway construction parameters.
type Config struct {
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	Address       string
	ProxyAddress  string
	SignatureType int
	CLOBBaseURL   string

	Metadata *markets.CachedMetadataClient

	WalletClient        *wallet.Client
	BalanceFloorEnabled bool
	BalanceFloorUSDC    decimal.Decimal

	Logger *zap.Logger
}

// New constructs a Gateway. The signing key is parsed and the EOA address
// derived from it unless Address is given explicitly.
func New(cfg Config) (*Gateway, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	address := cfg.Address
	if address == "" {
		publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("derive public key from private key")
		}
		address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	chainID := big.NewInt(137) // Polygon mainnet
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	clobBaseURL := cfg.CLOBBaseURL
	if clobBaseURL == "" {
		clobBaseURL = "https://clob.polymarket.com"
	}

	return &Gateway{
		apiKey:         cfg.APIKey,
		secret:         cfg.Secret,
		passphrase:     cfg.Passphrase,
		privateKey:     privateKey,
		address:        address,
		proxyAddress:   cfg.ProxyAddress,
		signatureType:  model.SignatureType(cfg.SignatureType),
		orderBuilder:   orderBuilder,
		clobBaseURL:    clobBaseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		metadata:       cfg.Metadata,
		walletClient:   cfg.WalletClient,
		walletAddress:  common.HexToAddress(address),
		balanceFloorOn: cfg.BalanceFloorEnabled,
		balanceFloor:   cfg.BalanceFloorUSDC,
		logger:         cfg.Logger,
	}, nil
}

// makerAddress returns the funder address: the proxy wallet if configured,
// otherwise the signing EOA itself.
func (g *Gateway) makerAddress() string {
	if g.proxyAddress != "" {
		return g.proxyAddress
	}
	return g.address
}

// PlaceLimitBuy snaps price and size to the token's tick grid, checks the
// collateral balance floor, builds and signs a GTC BUY order, and submits
// it. The returned Quote carries the exchange-assigned order id the state
// machine tracks as the resting order for this leg.
func (g *Gateway) PlaceLimitBuy(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error) {
	if g.balanceFloorOn {
		ok, err := g.checkBalanceFloor(ctx, price.Mul(size))
		if err != nil {
			return nil, fmt.Errorf("check balance floor: %w", err)
		}
		if !ok {
			BalanceFloorBlocksTotal.Inc()
			return nil, types.ErrBalanceFloor
		}
	}

	tickSize, minSize, err := g.metadata.GetTokenMetadata(ctx, string(token))
	if err != nil {
		return nil, fmt.Errorf("fetch token metadata: %w", err)
	}

	snappedPrice := snapToTick(price, tickSize)
	sizePrecision, amountPrecision := roundingConfig(tickSize)

	takerTokens := size.Round(int32(sizePrecision))
	if takerTokens.LessThan(decimal.NewFromFloat(minSize)) {
		return nil, fmt.Errorf("order size %s below minimum %.2f tokens", takerTokens, minSize)
	}

	makerUSD := takerTokens.Mul(snappedPrice).Round(int32(amountPrecision))

	orderData := &model.OrderData{
		Maker:         g.makerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       string(token),
		MakerAmount:   rawAmount(makerUSD),
		TakerAmount:   rawAmount(takerTokens),
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        g.address,
		Expiration:    "0",
		SignatureType: g.signatureType,
	}

	signedOrder, err := g.orderBuilder.BuildSignedOrder(g.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}

	timer := time.Now()
	resp, err := g.submitOrder(ctx, signedOrder)
	OrderSubmitDuration.Observe(time.Since(timer).Seconds())
	if err != nil {
		OrdersSubmittedTotal.WithLabelValues("BUY", "error").Inc()
		return nil, err
	}

	if !resp.Success {
		OrdersSubmittedTotal.WithLabelValues("BUY", "rejected").Inc()
		return nil, &types.OrderError{Code: resp.ErrorMsg, Message: resp.ErrorMsg, OrderID: resp.OrderID, Token: token}
	}

	OrdersSubmittedTotal.WithLabelValues("BUY", "success").Inc()

	return &types.Quote{
		Token:   token,
		OrderID: resp.OrderID,
		Price:   snappedPrice,
		Size:    takerTokens,
		Side:    types.Buy,
	}, nil
}

// PlaceMarketSell submits an aggressively priced GTC SELL intended to fill
// immediately against the best bid, used by one-sided fill recovery and
// cut-loss. sellPrice should already be at or below the current best bid.
func (g *Gateway) PlaceMarketSell(ctx context.Context, token types.Token, sellPrice, size decimal.Decimal) (*types.Quote, error) {
	tickSize, _, err := g.metadata.GetTokenMetadata(ctx, string(token))
	if err != nil {
		return nil, fmt.Errorf("fetch token metadata: %w", err)
	}

	snappedPrice := snapToTick(sellPrice, tickSize)
	sizePrecision, amountPrecision := roundingConfig(tickSize)

	takerTokens := size.Round(int32(sizePrecision))
	makerUSD := takerTokens.Mul(snappedPrice).Round(int32(amountPrecision))

	orderData := &model.OrderData{
		Maker:         g.makerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       string(token),
		MakerAmount:   rawAmount(takerTokens),
		TakerAmount:   rawAmount(makerUSD),
		Side:          model.SELL,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        g.address,
		Expiration:    "0",
		SignatureType: g.signatureType,
	}

	signedOrder, err := g.orderBuilder.BuildSignedOrder(g.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed sell order: %w", err)
	}

	resp, err := g.submitOrder(ctx, signedOrder)
	if err != nil {
		OrdersSubmittedTotal.WithLabelValues("SELL", "error").Inc()
		if strings.Contains(err.Error(), types.ErrCodeNotEnoughBalance) {
			return nil, types.ErrInsufficientBalance
		}
		return nil, err
	}

	if !resp.Success {
		OrdersSubmittedTotal.WithLabelValues("SELL", "rejected").Inc()
		if resp.ErrorMsg == types.ErrCodeNotEnoughBalance {
			return nil, types.ErrInsufficientBalance
		}
		return nil, &types.OrderError{Code: resp.ErrorMsg, Message: resp.ErrorMsg, OrderID: resp.OrderID, Token: token}
	}

	OrdersSubmittedTotal.WithLabelValues("SELL", "success").Inc()

	return &types.Quote{
		Token:   token,
		OrderID: resp.OrderID,
		Price:   snappedPrice,
		Size:    takerTokens,
		Side:    types.Sell,
	}, nil
}

// Cancel cancels a single resting order by id.
func (g *Gateway) Cancel(ctx context.Context, orderID string) error {
	reqBody, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}

	_, err = g.signedRequest(ctx, http.MethodDelete, "/order", reqBody)
	if err != nil {
		CancelsTotal.WithLabelValues("cancel", "error").Inc()
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	CancelsTotal.WithLabelValues("cancel", "success").Inc()
	return nil
}

// CancelAll cancels every resting order for this account atomically via the
// exchange's cancel-all endpoint.
func (g *Gateway) CancelAll(ctx context.Context) error {
	_, err := g.signedRequest(ctx, http.MethodDelete, "/cancel-all", nil)
	if err != nil {
		CancelsTotal.WithLabelValues("cancel_all", "error").Inc()
		return fmt.Errorf("cancel all orders: %w", err)
	}

	CancelsTotal.WithLabelValues("cancel_all", "success").Inc()
	return nil
}

// ListOpenOrders returns every order resting at the exchange for this
// account, across every market.
func (g *Gateway) ListOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
	body, err := g.signedRequest(ctx, http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}

	var raw []types.OrderQueryResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse open orders: %w", err)
	}

	orders := make([]types.OpenOrder, 0, len(raw))
	for _, o := range raw {
		price, _ := decimal.NewFromString(strconv.FormatFloat(o.Price, 'f', -1, 64))
		size, _ := decimal.NewFromString(strconv.FormatFloat(o.Size, 'f', -1, 64))
		filled, _ := decimal.NewFromString(strconv.FormatFloat(o.SizeFilled, 'f', -1, 64))

		side := types.Buy
		if o.Side == "SELL" {
			side = types.Sell
		}

		orders = append(orders, types.OpenOrder{
			OrderID:      o.OrderID,
			Token:        types.Token(o.TokenID),
			Price:        price,
			OriginalSize: size,
			SizeFilled:   filled,
			Side:         side,
		})
	}

	return orders, nil
}

// Position returns the share count the exchange reports for a token. The
// Gateway never caches this; callers sample on demand.
func (g *Gateway) Position(ctx context.Context, token types.Token) (types.Position, error) {
	positions, err := g.walletClient.GetPositions(ctx, g.makerAddress())
	if err != nil {
		return types.Position{}, fmt.Errorf("get positions: %w", err)
	}

	for _, p := range positions {
		if p.TokenID == string(token) {
			return types.Position{Token: token, Shares: int64(p.Size)}, nil
		}
	}

	return types.Position{Token: token, Shares: 0}, nil
}

// CollateralBalance returns the wallet's current USDC balance.
func (g *Gateway) CollateralBalance(ctx context.Context) (decimal.Decimal, error) {
	balances, err := g.walletClient.GetBalances(ctx, g.walletAddress)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get wallet balances: %w", err)
	}

	usdc := decimal.NewFromBigInt(balances.USDC, -6)
	CollateralBalanceUSDC.Set(usdc.InexactFloat64())
	return usdc, nil
}

// FetchPrice hits the CLOB's unauthenticated /price endpoint (spec.md Sec 6)
// for a one-off executable price on a side, without requiring a live book
// cache subscription. Used by debug tooling and by components that need a
// single price read rather than a streamed book.
func (g *Gateway) FetchPrice(ctx context.Context, token types.Token, side types.Side) (decimal.Decimal, error) {
	sideParam := "buy"
	if side == types.Sell {
		sideParam = "sell"
	}

	url := fmt.Sprintf("%s/price?token_id=%s&side=%s", g.clobBaseURL, string(token), sideParam)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build price request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price request failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("parse price response: %w", err)
	}

	price, err := decimal.NewFromString(parsed.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price value %q: %w", parsed.Price, err)
	}

	return price, nil
}

// checkBalanceFloor reports whether the wallet holds at least floor
// collateral above the notional of the order about to be submitted. This is
// a single pre-submit safety rail, not portfolio-wide risk management: it
// does not size positions, track exposure, or correlate across markets.
func (g *Gateway) checkBalanceFloor(ctx context.Context, notional decimal.Decimal) (bool, error) {
	balance, err := g.CollateralBalance(ctx)
	if err != nil {
		return false, err
	}
	return balance.Sub(notional).GreaterThanOrEqual(g.balanceFloor), nil
}

func (g *Gateway) submitOrder(ctx context.Context, order *model.SignedOrder) (*types.OrderSubmissionResponse, error) {
	jsonOrder := convertToOrderJSON(order)

	orderRequest := types.OrderSubmissionRequest{
		Order:     jsonOrder,
		Owner:     g.apiKey,
		OrderType: "GTC",
	}

	reqBody, err := json.Marshal(orderRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	body, err := g.signedRequest(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		return nil, err
	}

	var resp types.OrderSubmissionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}

	return &resp, nil
}

// signedRequest performs an HMAC-SHA256 signed CLOB request. The signature
// payload is timestamp+method+path+body, matching the exchange's own
// Python reference client; the secret is URL-safe base64 decoded before
// use and the signature URL-safe base64 encoded before sending.
func (g *Gateway) signedRequest(ctx context.Context, method, path string, reqBody []byte) ([]byte, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	signaturePayload := timestamp + method + path + string(reqBody)

	secretBytes, err := base64.URLEncoding.DecodeString(g.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	url := g.clobBaseURL + path

	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", g.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", g.passphrase)
	req.Header.Set("POLY_ADDRESS", g.address)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		RequestErrorsByType.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("send request: %w", types.ErrTransient)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		RequestErrorsByType.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("exchange error (status %d): %w", resp.StatusCode, types.ErrTransient)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		RequestErrorsByType.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("exchange error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func convertToOrderJSON(order *model.SignedOrder) types.SignedOrderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	return types.SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

// rawAmount converts a decimal USDC/token amount to the raw 6-decimal
// integer string the exchange expects, without the float64 rounding drift
// the reference client's multiply-by-1e6 approach carries.
func rawAmount(d decimal.Decimal) string {
	return d.Shift(6).Round(0).String()
}

// snapToTick rounds a price down to the nearest valid tick for a token.
func snapToTick(price decimal.Decimal, tickSize float64) decimal.Decimal {
	tick := decimal.NewFromFloat(tickSize)
	if tick.IsZero() {
		return price
	}
	ticks := price.Div(tick).Floor()
	return ticks.Mul(tick)
}

// roundingConfig mirrors the exchange's own rounding table: size is always
// rounded to 2 decimals, amount precision depends on the token's tick size.
func roundingConfig(tickSize float64) (sizePrecision, amountPrecision int) {
	switch tickSize {
	case 0.1:
		return 2, 3
	case 0.01:
		return 2, 4
	case 0.001:
		return 2, 5
	case 0.0001:
		return 2, 6
	default:
		return 2, 4
	}
}
