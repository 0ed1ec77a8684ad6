package signal

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// AliasSessionKey is where the session cookie keeps the chosen alias.
const AliasSessionKey = "alias"

// SessionAlias reads the alias stored in the session, if any.
func SessionAlias(c *gin.Context) string {
	s, ok := c.Get(sessions.DefaultKey)
	if !ok {
		return ""
	}
	v, _ := s.(sessions.Session).Get(AliasSessionKey).(string)
	return v
}

func aliasOr(given, fallback string) string {
	if strings.TrimSpace(given) != "" {
		return given
	}
	return fallback
}
