package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/drblury/protogate/modules"
	"github.com/drblury/protogate/transport"
)

const (
	langKey = "protogate.lang"
	authKey = "protogate.auth"
)

type locales struct {
	matcher  language.Matcher
	names    []string
	fallback string
}

// newLocales builds the negotiator. The default language always takes part
// and wins when nothing matches.
func newLocales(def string, supported []string) (*locales, error) {
	if strings.TrimSpace(def) == "" {
		return nil, errors.New("httpapi: default language is required")
	}
	names := []string{def}
	for _, s := range supported {
		if s = strings.TrimSpace(s); s != "" && s != def {
			names = append(names, s)
		}
	}
	tags := make([]language.Tag, 0, len(names))
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("httpapi: language %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return &locales{matcher: language.NewMatcher(tags), names: names, fallback: def}, nil
}

// resolve negotiates the request language. An explicit lang header wins over
// Accept-Language.
func (l *locales) resolve(lang, acceptLanguage string) string {
	value := strings.TrimSpace(lang)
	if value == "" {
		value = acceptLanguage
	}
	prefs, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(prefs) == 0 {
		return l.fallback
	}
	_, index, confidence := l.matcher.Match(prefs...)
	if confidence == language.No {
		return l.fallback
	}
	return l.names[index]
}

func (s *Server) lang(c *gin.Context) {
	c.Set(langKey, s.locales.resolve(c.GetHeader("lang"), c.GetHeader("Accept-Language")))
	c.Next()
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// authenticate verifies the bearer token with the auth module and stores the
// identity it answers with.
func (s *Server) authenticate(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		writeError(c, &requestError{code: http.StatusUnauthorized, message: "missing access token"})
		return
	}

	resp, err := s.gw.Call(c.Request.Context(), modules.AuthModule, modules.OpVerifyAccessToken, transport.Payload{"data": token})
	if err != nil {
		writeError(c, err)
		return
	}
	identity, ok := resp.Data()
	if !ok || identity == nil {
		writeError(c, &requestError{code: http.StatusUnauthorized, message: "invalid access token"})
		return
	}
	c.Set(authKey, identity)
	c.Next()
}

// authorize asks the auth module whether the caller holds permission. An
// explicit false answer is a 403.
func (s *Server) authorize(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := c.Get(authKey)
		payload := transport.Payload{"data": map[string]any{"auth": identity, "permission": permission}}

		resp, err := s.gw.Call(c.Request.Context(), modules.AuthModule, modules.OpVerifyPermission, payload)
		if err != nil {
			writeError(c, err)
			return
		}
		if data, ok := resp.Data(); ok {
			if granted, isBool := data.(bool); isBool && !granted {
				writeError(c, &requestError{code: http.StatusForbidden, message: "forbidden"})
				return
			}
		}
		c.Next()
	}
}
