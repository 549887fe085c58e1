package config

import "net/http"

func (ct *CookieTemplate) sameSite() http.SameSite {
	switch ct.SameSite {
	case CookieSameSiteNone:
		return http.SameSiteNoneMode
	case CookieSameSiteLax:
		return http.SameSiteLaxMode
	case CookieSameSiteStrict:
		return http.SameSiteStrictMode
	default:
		return http.SameSiteDefaultMode
	}
}

// ToCookie renders the template with value.
func (ct *CookieTemplate) ToCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     ct.Name,
		Value:    value,
		MaxAge:   ct.MaxAge,
		Path:     ct.Path,
		Domain:   ct.Domain,
		Secure:   ct.Secure,
		HttpOnly: ct.HTTPOnly,
		SameSite: ct.sameSite(),
	}
}

// ValueFrom returns the value of the templated cookie sent with r.
func (ct *CookieTemplate) ValueFrom(r *http.Request) (string, bool) {
	c, err := r.Cookie(ct.Name)
	if err != nil || c.Value == "" {
		return "", false
	}

	return c.Value, true
}
