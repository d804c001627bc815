package config

// DefaultContractMultipliers covers the common underlyings. Index options
// settle on a smaller multiplier than single-name/ETF options, so SPX-class
// symbols get 10 and everything else inherits the 100 default.
var DefaultContractMultipliers = map[string]int{
	"SPX": 10,
	"NDX": 10,
	"RUT": 10,
	"VIX": 10,
}

// DefaultSymbols lists the underlyings scanned when none are configured.
var DefaultSymbols = []string{
	"SPX", "NDX", "RUT", "SPY", "QQQ", "IWM",
	"AAPL", "TSLA", "NVDA", "META", "AMZN", "GOOGL",
}
