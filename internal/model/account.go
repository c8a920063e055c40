package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID               uuid.UUID       `json:"id"`
	AccountNumber    string          `json:"account_number"`
	Status           string          `json:"status"`
	CryptoStatus     string          `json:"crypto_status"`
	Currency         string          `json:"currency"`
	Cash             decimal.Decimal `json:"cash"`
	BuyingPower      decimal.Decimal `json:"buying_power"`
	PortfolioValue   decimal.Decimal `json:"portfolio_value"`
	Equity           decimal.Decimal `json:"equity"`
	Multiplier       decimal.Decimal `json:"multiplier"`
	PatternDayTrader bool            `json:"pattern_day_trader"`
	TradingBlocked   bool            `json:"trading_blocked"`
	TransfersBlocked bool            `json:"transfers_blocked"`
	AccountBlocked   bool            `json:"account_blocked"`
}

type Position struct {
	AssetID        uuid.UUID       `json:"asset_id"`
	Symbol         string          `json:"symbol"`
	Exchange       string          `json:"exchange"`
	AssetClass     string          `json:"asset_class"`
	Side           string          `json:"side"`
	Qty            decimal.Decimal `json:"qty"`
	AvgEntryPrice  decimal.Decimal `json:"avg_entry_price"`
	MarketValue    decimal.Decimal `json:"market_value"`
	CostBasis      decimal.Decimal `json:"cost_basis"`
	UnrealizedPL   decimal.Decimal `json:"unrealized_pl"`
	UnrealizedPLPC decimal.Decimal `json:"unrealized_plpc"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
}

// ClosePositionResult is one entry of a bulk close response.
type ClosePositionResult struct {
	Symbol string `json:"symbol"`
	Status int    `json:"status"`
}
