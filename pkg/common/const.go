package common

const (
	KEY_LAST_TRADE_PRICE = "last_trade_price:%s"
	KEY_LAST_QUOTE       = "last_quote:%s"
)
