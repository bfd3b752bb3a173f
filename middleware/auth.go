package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/utils"
)

// ContextAdminKey stores the authenticated moderator's subject in the Gin context.
const ContextAdminKey = "admin_subject"

type authFailure struct {
	code    int
	message string
}

var (
	errAuthMissing = &authFailure{40101, "authorization header missing"}
	errAuthFormat  = &authFailure{40102, "invalid authorization header format"}
	errAuthEmpty   = &authFailure{40103, "empty bearer token"}
	errAuthInvalid = &authFailure{40105, "invalid token"}
)

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, *authFailure) {
	if header == "" {
		return "", errAuthMissing
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errAuthFormat
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errAuthEmpty
	}
	return token, nil
}

// AdminRequired admits moderation requests carrying an admin token signed with secret.
func AdminRequired(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, failure := bearerToken(ctx.GetHeader("Authorization"))
		if failure == nil {
			claims, err := utils.ParseAdminToken(secret, token)
			if err == nil {
				ctx.Set(ContextAdminKey, claims.Subject)
				ctx.Next()
				return
			}
			utils.Logger.Info("admin token rejected", zap.String("ip", ctx.ClientIP()), zap.Error(err))
			failure = errAuthInvalid
		}
		utils.Error(ctx, http.StatusUnauthorized, failure.code, failure.message)
		ctx.Abort()
	}
}
