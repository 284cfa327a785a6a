package config

import (
	"time"

	"github.com/iliyamo/cinema-pos/internal/payment"
)

// LoadPaymentConfig reads the prepaid gateway settings.  An empty
// PAYMENT_BASE_URL disables prepaid checkout.
func LoadPaymentConfig() payment.Config {
	return payment.Config{
		BaseURL:    envStr("PAYMENT_BASE_URL", ""),
		TerminalID: envStr("PAYMENT_TERMINAL_ID", ""),
		Password:   envStr("PAYMENT_PASSWORD", ""),
		Currency:   envStr("PAYMENT_CURRENCY", "VND"),
		SuccessURL: envStr("PAYMENT_SUCCESS_URL", ""),
		FailURL:    envStr("PAYMENT_FAIL_URL", ""),
		Timeout:    envDur("PAYMENT_TIMEOUT", 15*time.Second),
	}
}
