package valueobject

import "github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"

type ActorRole string

const (
	RoleClient   ActorRole = "client"
	RoleProvider ActorRole = "provider"
	RoleOperator ActorRole = "operator"
	// RoleEngine используется для переходов, которые выполняет сам движок (webhook, сверка).
	RoleEngine ActorRole = "engine"
)

// NewActorRole принимает только роли, которые может выдать токен.
func NewActorRole(role string) (ActorRole, error) {
	r := ActorRole(role)
	switch r {
	case RoleClient, RoleProvider, RoleOperator:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректная роль пользователя")
}
