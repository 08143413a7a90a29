package validators

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kartwise/storefront-backend/pkg/enums"
)

var (
	couponCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)
	pincodePattern    = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	phonePattern      = regexp.MustCompile(`^(\+91)?[6-9][0-9]{9}$`)
)

var ruleMessages = map[string]string{
	"coupon_code":    "must be 3-32 letters, digits, '-' or '_'",
	"pincode":        "must be a 6 digit PIN code",
	"phone":          "must be a 10 digit mobile number",
	"payment_method": "must be one of cod online wallet",
}

func registerRules(v *validator.Validate) {
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("coupon_code", matches(couponCodePattern))
	must("pincode", matches(pincodePattern))
	must("phone", func(fl validator.FieldLevel) bool {
		digits := strings.NewReplacer(" ", "", "-", "").Replace(fl.Field().String())
		return phonePattern.MatchString(digits)
	})
	must("payment_method", func(fl validator.FieldLevel) bool {
		return enums.PaymentMethod(strings.ToLower(fl.Field().String())).IsValid()
	})
}

func matches(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(strings.TrimSpace(fl.Field().String()))
	}
}
