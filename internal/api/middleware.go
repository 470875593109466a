package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// jwtMiddleware проверяет токен "Authorization: Bearer <token>"
func (s *AdminServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{Message: "Отсутствует токен авторизации"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{Message: "Неверный формат токена"})
			return
		}
		claims, err := s.issuer.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{Message: "Недействительный токен"})
			return
		}
		c.Set("admin", claims.Username)
		c.Next()
	}
}
