package binance

import "time"

// REST endpoints.
const (
	SpotMainnetURL    = "https://api.binance.com"
	SpotTestnetURL    = "https://testnet.binance.vision"
	FuturesMainnetURL = "https://fapi.binance.com"
	FuturesTestnetURL = "https://testnet.binancefuture.com"

	defaultTimeout = 10 * time.Second
	recvWindow     = "5000"
)

type endpoints struct {
	ticker    string
	order     string
	positions string
}

var (
	spotEndpoints = endpoints{
		ticker:    "/api/v3/ticker/price",
		order:     "/api/v3/order",
		positions: "/api/v3/account",
	}
	futuresEndpoints = endpoints{
		ticker:    "/fapi/v1/ticker/price",
		order:     "/fapi/v1/order",
		positions: "/fapi/v2/positionRisk",
	}
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type tickerPrice struct {
	Symbol string `json:"symbol" validate:"required"`
	Price  string `json:"price" validate:"required,numeric"`
}

// orderResponse covers the spot (transactTime) and futures (updateTime) shapes.
type orderResponse struct {
	Symbol        string `json:"symbol" validate:"required"`
	OrderID       int64  `json:"orderId" validate:"required"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	AvgPrice      string `json:"avgPrice"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Side          string `json:"side"`
	TransactTime  int64  `json:"transactTime"`
	UpdateTime    int64  `json:"updateTime"`
}

type spotBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

type spotAccount struct {
	Balances []spotBalance `json:"balances"`
}

type futuresPosition struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	Leverage         string `json:"leverage"`
}
