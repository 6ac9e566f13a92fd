package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// StreamRequest carries the two form fields.
type StreamRequest struct {
	Recipient string `json:"recipient" validate:"required,algoaddr"`
	// Rate is microAlgos per second as a decimal string.
	Rate string `json:"rate" validate:"required"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("algoaddr", func(fl validator.FieldLevel) bool {
		_, err := types.DecodeAddress(strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
}

// Validate checks the request and returns the parsed rate.
func (r StreamRequest) Validate() (uint64, error) {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidRequest, describeFieldError(verrs[0]))
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return ParseRate(r.Rate)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
	case "algoaddr":
		return fmt.Sprintf("%s is not a valid Algorand address", strings.ToLower(fe.Field()))
	default:
		return fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
	}
}

// rateSyntax admits plain decimal notation only. Exponent forms such as
// "1e50000000" would make BigInt materialise the full power of ten.
var rateSyntax = regexp.MustCompile(`^-?[0-9]+(\.[0-9]*)?$`)

// maxRateDigits is the length of the largest uint64.
const maxRateDigits = 20

// ParseRate parses a non-negative whole number of microAlgos that fits in uint64.
func ParseRate(s string) (uint64, error) {
	return parseMicroAlgos("rate", s)
}

func parseMicroAlgos(field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if !rateSyntax.MatchString(s) {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidRequest, field, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidRequest, field, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s cannot be negative", ErrInvalidRequest, field)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s must be a whole number of microAlgos", ErrInvalidRequest, field)
	}
	if whole := strings.TrimLeft(strings.SplitN(s, ".", 2)[0], "0"); len(whole) > maxRateDigits {
		return 0, fmt.Errorf("%w: %s exceeds uint64", ErrInvalidRequest, field)
	}
	bi := d.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: %s exceeds uint64", ErrInvalidRequest, field)
	}
	return bi.Uint64(), nil
}

// FundRequest carries the microAlgo amount sent to the contract account.
type FundRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// Validate checks the request and returns the parsed amount, which must be
// positive.
func (r FundRequest) Validate() (uint64, error) {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidRequest, describeFieldError(verrs[0]))
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	amount, err := parseMicroAlgos("amount", r.Amount)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	return amount, nil
}

// RateInAlgos renders a microAlgo rate as Algos.
func RateInAlgos(rate uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(rate), -6).String()
}

// EncodeUint64 is the 8-byte big-endian form the contract reads with btoi.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// StreamArgs builds the application arguments: the raw recipient string and
// the encoded rate.
func StreamArgs(recipient string, rate uint64) [][]byte {
	return [][]byte{[]byte(recipient), EncodeUint64(rate)}
}
