package angelone

import (
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// totpCode returns the 6-digit RFC 6238 code SmartAPI expects at login.
func totpCode(secret string, now time.Time) (string, error) {
	code, err := totp.GenerateCode(secret, now)
	if err != nil {
		return "", fmt.Errorf("%w: invalid SMARTAPI_TOTP_SECRET: %v", domain.ErrConfiguration, err)
	}
	return code, nil
}
