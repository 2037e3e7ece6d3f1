package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/lifecycle"
)

const dateLayout = "2006-01-02"

type CreateRequestRequest struct {
	OfferedServiceID *uuid.UUID `json:"offered_service_id"`
	CategoryID       *uuid.UUID `json:"category_id"`
	PreferredDate    *string    `json:"preferred_date"`
	Description      string     `json:"description" binding:"required"`
}

type UpdateStatusRequest struct {
	Status             string           `json:"status" binding:"required"`
	ProposedValue      *decimal.Decimal `json:"proposed_value"`
	AcceptedProviderID *uuid.UUID       `json:"accepted_provider_id"`
}

func (r UpdateStatusRequest) Payload() lifecycle.Payload {
	return lifecycle.Payload{
		ProposedValue:      r.ProposedValue,
		AcceptedProviderID: r.AcceptedProviderID,
	}
}

type RequestResponse struct {
	ID                 uuid.UUID        `json:"id"`
	ClientID           uuid.UUID        `json:"client_id"`
	OfferedServiceID   *uuid.UUID       `json:"offered_service_id,omitempty"`
	CategoryID         *uuid.UUID       `json:"category_id,omitempty"`
	Description        string           `json:"description"`
	PreferredDate      *string          `json:"preferred_date,omitempty"`
	AcceptedProviderID *uuid.UUID       `json:"accepted_provider_id,omitempty"`
	ProposedValue      *decimal.Decimal `json:"proposed_value,omitempty"`
	Status             string           `json:"status"`
	Version            int64            `json:"version"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
}

type HistoryResponse struct {
	ID         uuid.UUID  `json:"id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Action     string     `json:"action"`
	FromStatus *string    `json:"from_status,omitempty"`
	ToStatus   string     `json:"to_status"`
	CreatedAt  time.Time  `json:"created_at"`
}

func ToRequestResponse(req *entity.ServiceRequest) RequestResponse {
	resp := RequestResponse{
		ID:                 req.ID,
		ClientID:           req.ClientID,
		OfferedServiceID:   req.Service.OfferedServiceID,
		CategoryID:         req.Service.CategoryID,
		Description:        req.Description,
		AcceptedProviderID: req.AcceptedProviderID,
		ProposedValue:      req.ProposedValue,
		Status:             string(req.Status),
		Version:            req.Version,
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
		CompletedAt:        req.CompletedAt,
	}
	if req.PreferredDate != nil {
		date := req.PreferredDate.Format(dateLayout)
		resp.PreferredDate = &date
	}
	return resp
}

func ToRequestResponses(reqs []*entity.ServiceRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, ToRequestResponse(req))
	}
	return out
}

func ToHistoryResponses(records []*entity.RequestHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(records))
	for _, rec := range records {
		item := HistoryResponse{
			ID:        rec.ID,
			ActorID:   rec.ActorID,
			Action:    rec.Action,
			ToStatus:  string(rec.ToStatus),
			CreatedAt: rec.CreatedAt,
		}
		if rec.FromStatus != nil {
			from := string(*rec.FromStatus)
			item.FromStatus = &from
		}
		out = append(out, item)
	}
	return out
}

// ParseDate принимает дату в формате YYYY-MM-DD или RFC3339.
func ParseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, *raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
