package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"iface-http-service/config"
	"iface-http-service/services"
)

var jwtService *services.JWTService

// InitAuthMiddleware 初始化认证中间件
func InitAuthMiddleware(cfg *config.Config) {
	jwtService = services.NewJWTService(cfg)
}

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	// 检查并移除 "Bearer " 前缀
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// abortUnauthorized 以401终止请求
func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    401,
		"message": message,
		"data":    nil,
	})
	c.Abort()
}

// AuthenticateAdmin 验证系统管理员权限
func AuthenticateAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		tokenString := extractToken(authHeader)
		token, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid token: "+err.Error())
			return
		}

		if !token.Valid {
			abortUnauthorized(c, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "Invalid token claims")
			return
		}

		// 检查是否是系统管理员
		if role, exists := claims["role"].(string); !exists || role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "Insufficient permissions: requires system admin role",
				"data":    nil,
			})
			c.Abort()
			return
		}

		// 存储claims到上下文
		c.Set("userID", claims["user_id"])
		c.Set("role", claims["role"])
		c.Set("claims", claims)
		c.Next()
	}
}

// Authentication 通用的认证中间件
func Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		// 检查是否是Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		tokenString := parts[1]
		if tokenString == "" {
			abortUnauthorized(c, "Invalid token format")
			return
		}

		token, err := jwtService.ValidateToken(tokenString)
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "Invalid token claims")
			return
		}

		c.Set("userID", claims["user_id"])
		c.Set("role", claims["role"])
		c.Set("claims", claims)
		c.Next()
	}
}
