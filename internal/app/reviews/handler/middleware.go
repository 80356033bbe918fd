package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims структура claims для пользовательских и модераторских токенов
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// ServiceClaims - короткоживущий elevated credential для внутренних
// вызовов (author lookup). Валидируется отдельным секретом: обычный
// пользовательский токен здесь не проходит по построению.
type ServiceClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

const scopeModerationInternal = "moderation:internal"

// AuthMiddleware проверяет JWT токены в запросах для Gin
type AuthMiddleware struct {
	jwtSecret     string
	serviceSecret string
}

// NewAuthMiddleware создает новый middleware для аутентификации
func NewAuthMiddleware(jwtSecret, serviceSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:     jwtSecret,
		serviceSecret: serviceSecret,
	}
}

// Authenticate проверяет пользовательский JWT и кладёт данные в контекст Gin
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(m.jwtSecret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role_name", claims.RoleName)
		c.Set("permissions", claims.Permissions)

		c.Next()
	}
}

// RequireModerator пускает дальше только роли moderator и admin
func (m *AuthMiddleware) RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role_name")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		roleName, _ := role.(string)
		if roleName != "moderator" && roleName != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Moderator role required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuthenticateService проверяет elevated service credential.
// Ambient-состояние не используется: credential передается явно в каждом запросе.
func (m *AuthMiddleware) AuthenticateService() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(m.serviceSecret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired service token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*ServiceClaims)
		if !ok || claims.Scope != scopeModerationInternal {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient scope"})
			c.Abort()
			return
		}

		c.Set("service_subject", claims.Subject)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}

	return parts[1], true
}
