package model

type Asset struct {
	AssetID  int64
	Ticker   string
	Name     string
	Type     string // Stock, ETF, Crypto, Fund, Bond, Other
	Sector   string
	Country  string
	Currency string
}

// AssetRef is the minimal identity needed to look up news or prices.
type AssetRef struct {
	Ticker string
	Name   string
}

type AssetSearchResult struct {
	Ticker      string
	Name        string
	TypeDisplay string
	Exchange    string
}
