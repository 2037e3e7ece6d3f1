// Package ref генерирует сортируемые по времени ссылки на платежи.
package ref

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	PrefixPayment = "pay_"
	PrefixRelease = "rel_"
	PrefixRefund  = "ref_"
)

// New возвращает prefix + ULID в нижнем регистре. ulid.Make безопасен для конкурентного вызова.
func New(prefix string) string {
	return prefix + strings.ToLower(ulid.Make().String())
}
