package angelone

import (
	json "github.com/goccy/go-json"
)

// DefaultRestURL is the SmartAPI REST host.
const DefaultRestURL = "https://apiconnect.angelone.in"

const (
	pathLogin     = "/rest/auth/angelbroking/user/v1/loginByPassword"
	pathLogout    = "/rest/secure/angelbroking/user/v1/logout"
	pathLTP       = "/rest/secure/angelbroking/order/v1/getLtpData"
	pathOrder     = "/rest/secure/angelbroking/order/v1/placeOrder"
	pathPositions = "/rest/secure/angelbroking/order/v1/getPosition"
)

// envelope wraps every SmartAPI response.
type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

type loginRequest struct {
	ClientCode string `json:"clientcode"`
	Password   string `json:"password"`
	TOTP       string `json:"totp"`
}

type loginData struct {
	JWTToken     string `json:"jwtToken" validate:"required"`
	RefreshToken string `json:"refreshToken"`
	FeedToken    string `json:"feedToken"`
}

type logoutRequest struct {
	ClientCode string `json:"clientcode"`
}

type ltpRequest struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

type placeOrderRequest struct {
	Variety         string `json:"variety"`
	TradingSymbol   string `json:"tradingsymbol"`
	SymbolToken     string `json:"symboltoken"`
	TransactionType string `json:"transactiontype"`
	Exchange        string `json:"exchange"`
	OrderType       string `json:"ordertype"`
	ProductType     string `json:"producttype"`
	Duration        string `json:"duration"`
	Price           string `json:"price"`
	Quantity        string `json:"quantity"`
}

type placeOrderData struct {
	Script        string `json:"script"`
	OrderID       string `json:"orderid" validate:"required"`
	UniqueOrderID string `json:"uniqueorderid"`
}
