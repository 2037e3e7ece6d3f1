package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/response"
)

const (
	SignatureHeader  = "X-Signature"
	signaturePrefix  = "sha256="
	maxWebhookBodyKB = 64
)

// WebhookSignature проверяет HMAC-SHA256 тела уведомления: X-Signature: sha256=<hex>.
// Пустой секрет отключает проверку.
func WebhookSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyKB<<10))
		if err != nil {
			response.BadRequest(c, "не удалось прочитать тело уведомления")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !ValidSignature(secret, body, c.GetHeader(SignatureHeader)) {
			response.Unauthorized(c, "подпись уведомления невалидна")
			c.Abort()
			return
		}

		c.Next()
	}
}

// Sign возвращает значение заголовка X-Signature для тела.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func ValidSignature(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
