package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/user"
	"github.com/trezcool/masomo-admin/storage/database/inmem"
)

const contextUserKey = "user"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"rol,omitempty"`
	IsStaff  bool   `json:"is_staff,omitempty"` // -> ADMIN DASHBOARDS
}

func (s *server) userClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.opts.AppName,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(s.opts.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Email:    usr.Email,
		Role:     usr.Role.Name,
		IsStaff:  user.IsStaffRole(usr.Role.ID),
	}
}

func (s *server) authenticate(uname, pwd string) (inmemdb.Account, error) {
	acc, err := s.opts.DB.AccountByUsernameOrEmail(uname)
	if err != nil {
		if err == inmemdb.ErrNotFound {
			return inmemdb.Account{}, errAuthenticationFailed
		}
		return inmemdb.Account{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return inmemdb.Account{}, errAuthenticationFailed
	}
	if !acc.User.IsActive || !acc.User.Active {
		return inmemdb.Account{}, errAccountDeactivated
	}
	return acc, nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (s *server) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(s.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(s.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get("userToken").(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func (s *server) getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return user.User{}, errUnauthorized
	}
	acc, err := s.opts.DB.Accounts.Get(id)
	if err != nil {
		return user.User{}, errUnauthorized // deleted since the token was issued
	}
	ctx.Set(contextUserKey, acc.User)
	return acc.User, nil
}
