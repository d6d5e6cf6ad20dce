package user

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo-admin/core"
)

var (
	validate, translator = core.NewValidator()

	roleTag  = "role"
	roleText = "choose a valid role"

	usernameTag   = "uname"
	usernameText  = "only letters, digits and @/./+/-/_ are allowed"
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

	dateTag  = "datetime"
	dateText = "enter a valid date (YYYY-MM-DD)"

	credentialsTag  = "credentials"
	credentialsText = "required to give this role access"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdConfirmTag  = "eqfield"
	pwdConfirmText = "passwords do not match"
)

func init() {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(usernameTag, usernameValidation)
	core.RegisterCustomTranslation(validate, translator, usernameTag, usernameText)

	validate.RegisterStructValidation(userStructValidation, Draft{})
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText, true)
	core.RegisterCustomTranslation(validate, translator, credentialsTag, credentialsText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdConfirmTag, pwdConfirmText, true)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	_, ok := RoleByID(int(fl.Field().Int()))
	return ok
}

func usernameValidation(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

// userStructValidation checks the role + credentials pair and the password policy.
// A new user needs a username and a password to sign in with the chosen role;
// an existing user only has its password checked when it is replaced.
func userStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(Draft)
	if d.ID == 0 && d.RoleID != 0 {
		if d.Username == "" {
			sl.ReportError(d.Username, "username", "Username", credentialsTag, "")
		}
		if d.Password == "" {
			sl.ReportError(d.Password, "password", "Password", credentialsTag, "")
		}
	}
	if d.Password != "" {
		validatePassword(d.Password, d.Name, d.Username, d.Email, sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - no user attrs similarity
func validatePassword(pwd, name, uname, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(usrAttr), "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim ||
		getRatio(pwd, uname) >= pwdMaxSim ||
		getRatio(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
