package formlogin

import (
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
)

var errNoCookie = errors.New("no session cookie")

// cookieCodec turns credential tokens into cookie values and back.
type cookieCodec struct {
	cfg    CookieConfig
	secure *securecookie.SecureCookie
}

func newCookieCodec(cfg CookieConfig) *cookieCodec {
	c := &cookieCodec{cfg: cfg}
	if len(cfg.HashKey) > 0 {
		var block []byte
		if len(cfg.BlockKey) > 0 {
			block = cfg.BlockKey
		}
		// securecookie defaults to a 30 day timestamp limit; MaxAge 0 disables the check so
		// a token stays valid until it is revoked.
		c.secure = securecookie.New(cfg.HashKey, block).MaxAge(cfg.MaxAge)
	}
	return c
}

// token extracts the credential token from r. Absent, empty and undecodable cookies all
// report an error; callers treat every such case as an anonymous request.
func (c *cookieCodec) token(r *http.Request) (string, error) {
	ck, err := r.Cookie(c.cfg.Name)
	if err != nil || ck.Value == "" {
		return "", errNoCookie
	}
	if c.secure == nil {
		return ck.Value, nil
	}

	var token string
	if err := c.secure.Decode(c.cfg.Name, ck.Value, &token); err != nil {
		return "", err
	}
	if token == "" {
		return "", errNoCookie
	}
	return token, nil
}

func (c *cookieCodec) set(w http.ResponseWriter, token string) error {
	value := token
	if c.secure != nil {
		encoded, err := c.secure.Encode(c.cfg.Name, token)
		if err != nil {
			return err
		}
		value = encoded
	}

	http.SetCookie(w, c.base(value, c.cfg.MaxAge))
	return nil
}

func (c *cookieCodec) clear(w http.ResponseWriter) {
	// MaxAge -1 is rendered as Max-Age=0.
	http.SetCookie(w, c.base("", -1))
}

func (c *cookieCodec) base(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.cfg.Name,
		Value:    value,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   c.cfg.Secure,
		HttpOnly: c.cfg.HTTPOnly,
		SameSite: c.cfg.SameSite,
	}
}
