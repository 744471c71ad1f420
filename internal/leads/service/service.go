// Package service implements the leads business logic: lifecycle, interaction
// tracking and the scoring operations exposed over HTTP and the scheduler.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"efficity_backend/internal/events"
	"efficity_backend/internal/leads/repository"
	"efficity_backend/internal/leads/scoring"
	"efficity_backend/internal/leads/transport"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/logger"
	"efficity_backend/platform/phone"

	"github.com/google/uuid"
)

// Service coordinates the leads repository and the scoring pipeline.
type Service struct {
	repo   repository.LeadsRepository
	scorer *scoring.Service
	bus    events.Bus
	log    *logger.Logger
}

// New creates the leads service.
func New(repo repository.LeadsRepository, scorer *scoring.Service, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, scorer: scorer, bus: bus, log: log}
}

// Create stores a new lead. The phone number is normalized to E.164 when it
// parses; an unparseable number is kept verbatim rather than rejected, since
// webhook form input is beyond our control.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (*transport.LeadResponse, error) {
	lead := repository.Lead{
		FirstName:  optional(req.FirstName),
		LastName:   optional(req.LastName),
		Email:      optionalLower(req.Email),
		City:       optional(req.City),
		PostalCode: optional(req.PostalCode),
		Budget:     req.Budget,
		Notes:      optional(req.Notes),
		Source:     optional(req.Source),
		Age:        req.Age,
		Tags:       req.Tags,
	}

	if req.Phone != "" {
		normalized := phone.NormalizeE164(req.Phone)
		lead.Phone = &normalized
	}

	if lead.Email != nil {
		if existing, err := s.repo.GetByEmail(ctx, *lead.Email); err == nil {
			return nil, apperr.Conflict("a lead with this email already exists").
				WithDetails(map[string]string{"leadId": existing.ID.String()})
		}
	}

	if err := s.repo.Create(ctx, &lead); err != nil {
		return nil, err
	}

	if s.bus != nil {
		evt := events.LeadCreated{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID}
		if lead.Source != nil {
			evt.Source = *lead.Source
		}
		if lead.Email != nil {
			evt.Email = *lead.Email
		}
		s.bus.Publish(ctx, evt)
	}

	resp := toResponse(lead)
	return &resp, nil
}

// GetByID returns one lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(lead)
	return &resp, nil
}

// Update applies a partial update. Nil request fields keep their stored value.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (*transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyPatch(&lead, req)

	if err := s.repo.Update(ctx, &lead); err != nil {
		return nil, err
	}

	resp := toResponse(lead)
	return &resp, nil
}

// List returns a page of leads matching the filter.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (*transport.ListLeadsResponse, error) {
	filter := repository.ListFilter{
		Source:   req.Source,
		City:     req.City,
		MinScore: req.MinScore,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status != nil {
		status := string(*req.Status)
		filter.Status = &status
	}

	leads, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := transport.ListLeadsResponse{
		Leads:    make([]transport.LeadResponse, 0, len(leads)),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if resp.Page < 1 {
		resp.Page = 1
	}
	if resp.PageSize < 1 {
		resp.PageSize = 20
	}
	for _, lead := range leads {
		resp.Leads = append(resp.Leads, toResponse(lead))
	}
	return &resp, nil
}

// Delete removes a lead and its scoring history.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteScores(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// RecordInteraction logs one exchange and optionally refreshes the measured
// response time. Counters feed directly into the behavioral features.
func (s *Service) RecordInteraction(ctx context.Context, id uuid.UUID, req transport.RecordInteractionRequest) error {
	if err := s.repo.RecordInteraction(ctx, id, req.Channel, time.Now().UTC()); err != nil {
		return err
	}

	if req.ResponseTimeHours != nil {
		lead, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		lead.ResponseTimeHours = req.ResponseTimeHours
		if err := s.repo.Update(ctx, &lead); err != nil {
			return err
		}
	}
	return nil
}

// Score runs the scoring pipeline for one lead, persisting the result and
// publishing the scored event.
func (s *Service) Score(ctx context.Context, id uuid.UUID) (*scoring.Result, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := s.scorer.Evaluate(ctx, lead)
	return &result, nil
}

// LatestScore returns the most recent stored result for a lead, unmarshalled
// from its persisted payload.
func (s *Service) LatestScore(ctx context.Context, id uuid.UUID) (*scoring.Result, error) {
	record, err := s.repo.LatestScore(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeResult(record)
}

// ScoreHistory returns the stored scoring history, newest first.
func (s *Service) ScoreHistory(ctx context.Context, id uuid.UUID, limit int) (*transport.ScoreHistoryResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	records, err := s.repo.ScoreHistory(ctx, id, limit)
	if err != nil {
		return nil, err
	}

	resp := transport.ScoreHistoryResponse{LeadID: id, Results: make([]scoring.Result, 0, len(records))}
	for _, record := range records {
		result, err := decodeResult(record)
		if err != nil {
			// Skip records from incompatible past versions.
			continue
		}
		resp.Results = append(resp.Results, *result)
	}
	return &resp, nil
}

// ScoreBatch scores a set of leads. IDs without a matching lead are skipped
// silently; the response reports how many were actually scored.
func (s *Service) ScoreBatch(ctx context.Context, req transport.BatchScoreRequest) (*transport.BatchScoreResponse, error) {
	results := s.scorer.EvaluateBatch(ctx, req.LeadIDs)
	return &transport.BatchScoreResponse{
		Results:   results,
		Requested: len(req.LeadIDs),
		Scored:    len(results),
	}, nil
}

// RescoreAll re-runs scoring over every lead. Used by the scheduler's
// periodic rescore task and the backfill command.
func (s *Service) RescoreAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	results := s.scorer.EvaluateBatch(ctx, ids)
	return len(results), nil
}

// Retrain rebuilds the scoring model from leads with terminal outcomes.
func (s *Service) Retrain(ctx context.Context) (*scoring.RetrainResult, error) {
	result, err := s.scorer.RetrainFromHistory(ctx)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func decodeResult(record repository.ScoreRecord) (*scoring.Result, error) {
	var result scoring.Result
	if err := json.Unmarshal(record.ResultJSON, &result); err != nil {
		return nil, apperr.Internal("stored score payload is unreadable")
	}
	return &result, nil
}

func applyPatch(lead *repository.Lead, req transport.UpdateLeadRequest) {
	if req.FirstName != nil {
		lead.FirstName = req.FirstName
	}
	if req.LastName != nil {
		lead.LastName = req.LastName
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		lead.Email = &email
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		lead.Phone = &normalized
	}
	if req.City != nil {
		lead.City = req.City
	}
	if req.PostalCode != nil {
		lead.PostalCode = req.PostalCode
	}
	if req.Budget != nil {
		lead.Budget = req.Budget
	}
	if req.Notes != nil {
		lead.Notes = req.Notes
	}
	if req.Source != nil {
		lead.Source = req.Source
	}
	if req.Age != nil {
		lead.Age = req.Age
	}
	if req.Status != nil {
		lead.Status = string(*req.Status)
	}
	if req.Tags != nil {
		lead.Tags = *req.Tags
	}
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                 lead.ID,
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		City:               lead.City,
		PostalCode:         lead.PostalCode,
		Budget:             lead.Budget,
		Notes:              lead.Notes,
		Source:             lead.Source,
		Status:             transport.LeadStatus(lead.Status),
		Age:                lead.Age,
		Tags:               lead.Tags,
		AssignedAgentID:    lead.AssignedAgentID,
		EmailInteractions:  lead.EmailInteractions,
		TotalInteractions:  lead.TotalInteractions,
		LastInteractionAt:  lead.LastInteractionAt,
		EmailConsent:       lead.EmailConsent,
		PhoneConsent:       lead.PhoneConsent,
		QualificationScore: lead.QualificationScore,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalLower(s string) *string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return &s
}
