package webhook

import (
	"context"
	"encoding/json"

	"efficity_backend/internal/leads/transport"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadCreator is the port into the leads module. Keeping it an interface
// avoids a package cycle and lets tests substitute a fake.
type LeadCreator interface {
	Create(ctx context.Context, req transport.CreateLeadRequest) (*transport.LeadResponse, error)
}

// SubmissionResult is returned to the submitting site.
type SubmissionResult struct {
	LeadID       uuid.UUID `json:"leadId"`
	IsIncomplete bool      `json:"isIncomplete"`
}

// Service turns raw form submissions into leads.
type Service struct {
	repo        *Repository
	leadCreator LeadCreator
	log         *logger.Logger
}

// NewService creates the webhook service.
func NewService(repo *Repository, leadCreator LeadCreator, log *logger.Logger) *Service {
	return &Service{repo: repo, leadCreator: leadCreator, log: log}
}

// ProcessSubmission extracts what it can from the raw form data and creates
// a lead. Extraction is best-effort: an incomplete submission still becomes
// a (flagged) lead, because a partial contact is worth more than a dropped
// one. The raw payload is archived for audit and later re-extraction.
func (s *Service) ProcessSubmission(ctx context.Context, keyID uuid.UUID, sourceDomain string, formData map[string]string) (*SubmissionResult, error) {
	fields := ExtractFields(formData)

	req := transport.CreateLeadRequest{
		FirstName:  fields.FirstName,
		LastName:   fields.LastName,
		Email:      fields.Email,
		Phone:      fields.Phone,
		City:       fields.City,
		PostalCode: fields.PostalCode,
		Budget:     fields.Budget,
		Notes:      fields.Message,
		Age:        fields.Age,
		Source:     fields.Source,
	}
	if req.Source == "" {
		req.Source = "website"
	}

	lead, err := s.leadCreator.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, marshalErr := json.Marshal(formData)
	if marshalErr != nil {
		raw = []byte("{}")
	}
	if err := s.repo.SaveSubmission(ctx, lead.ID, keyID, sourceDomain, raw, fields.IsIncomplete()); err != nil {
		// The lead exists; losing the raw archive is logged, not fatal.
		s.log.Error("archive webhook submission failed", "leadId", lead.ID, "error", err)
	}

	s.log.Info("webhook lead captured",
		"leadId", lead.ID, "sourceDomain", sourceDomain, "incomplete", fields.IsIncomplete())

	return &SubmissionResult{LeadID: lead.ID, IsIncomplete: fields.IsIncomplete()}, nil
}
