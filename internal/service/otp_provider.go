package service

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var otpCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

type TOTPProvider struct {
	Issuer    string
	Period    uint
	Skew      uint
	Digits    otp.Digits
	Algorithm otp.Algorithm
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewTOTPProvider(issuer string) *TOTPProvider {
	return &TOTPProvider{
		Issuer:    issuer,
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (p *TOTPProvider) GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      fallbackIssuer(p.Issuer),
		AccountName: "pending",
		Period:      p.period(),
		Digits:      p.digits(),
		Algorithm:   p.algorithm(),
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// ProvisioningURI builds the otpauth:// URI an authenticator app enrolls
// from; the client renders it as a QR code.
func (p *TOTPProvider) ProvisioningURI(email string, secret string) string {
	issuer := fallbackIssuer(p.Issuer)
	label := url.PathEscape(issuer + ":" + email)
	query := url.Values{}
	query.Set("secret", secret)
	query.Set("issuer", issuer)
	query.Set("algorithm", "SHA1")
	query.Set("digits", "6")
	query.Set("period", "30")
	return "otpauth://totp/" + label + "?" + query.Encode()
}

// ValidateCode rejects anything that is not exactly six digits before doing
// any cryptographic work, then checks the code against the current and
// adjacent time steps.
func (p *TOTPProvider) ValidateCode(secret string, code string) bool {
	if !otpCodePattern.MatchString(code) {
		return false
	}
	valid, err := totp.ValidateCustom(code, secret, p.now(), totp.ValidateOpts{
		Period:    p.period(),
		Skew:      p.skew(),
		Digits:    p.digits(),
		Algorithm: p.algorithm(),
	})
	return err == nil && valid
}

func (p *TOTPProvider) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *TOTPProvider) period() uint {
	if p.Period == 0 {
		return 30
	}
	return p.Period
}

func (p *TOTPProvider) skew() uint {
	if p.Skew == 0 {
		return 1
	}
	return p.Skew
}

func (p *TOTPProvider) digits() otp.Digits {
	if p.Digits == 0 {
		return otp.DigitsSix
	}
	return p.Digits
}

func (p *TOTPProvider) algorithm() otp.Algorithm {
	if p.Algorithm == 0 {
		return otp.AlgorithmSHA1
	}
	return p.Algorithm
}

func fallbackIssuer(issuer string) string {
	if strings.TrimSpace(issuer) == "" {
		return "Classforge"
	}
	return issuer
}
