package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/perarneng/autoboard/pkg/audit"
	"github.com/perarneng/autoboard/pkg/interfaces"
	"github.com/perarneng/autoboard/pkg/message"
	"github.com/perarneng/autoboard/pkg/parser"
	"github.com/perarneng/autoboard/pkg/provision"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type parseRequest struct {
	MessageID string `json:"messageId"`
	Subject   string `json:"subject"`
	From      string `json:"from"`
	Body      string `json:"body"`
	HTML      string `json:"html"`
}

// handleParse previews the record for an email without creating anything.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	email := &message.Email{
		ID:      req.MessageID,
		Subject: req.Subject,
		From:    req.From,
	}
	if req.Body != "" {
		email.TextPlain = &req.Body
	}
	if req.HTML != "" {
		email.HTML = &req.HTML
	}

	record, err := s.parser.Parse(email)
	if err != nil {
		if isMissingName(err) {
			s.record(audit.Event{
				Action:      audit.ActionParseFailed,
				PerformedBy: "api",
				IPAddress:   clientIP(r),
				Details:     map[string]any{"subject": req.Subject, "error": err.Error()},
			})
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	record.Password = ""
	respondJSON(w, http.StatusOK, record)
}

type onboardRequest struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	FullName      string `json:"fullName"`
	PreferredName string `json:"preferredName"`
	Email         string `json:"email"`
	JobTitle      string `json:"jobTitle"`
	Department    string `json:"department"`
	Country       string `json:"country"`
	UsageLocation string `json:"usageLocation"`
	AssignLicense *bool  `json:"assignLicense"`
	PerformedBy   string `json:"performedBy"`
}

type onboardResponse struct {
	*provision.Result
	Record *interfaces.OnboardingRecord `json:"record"`
}

// handleOnboard rate limits the caller, builds the record and creates the
// accounts.
func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ip := clientIP(r)

	st := s.limiter.Check(ip)
	if !st.Allowed {
		s.logger.Warn(fmt.Sprintf("Rate limit exceeded for %s", ip))
		s.record(audit.Event{
			Action:      audit.ActionRateLimited,
			TargetEmail: strings.ToLower(req.Email),
			PerformedBy: req.PerformedBy,
			IPAddress:   ip,
			Details:     map[string]any{"count": st.Count, "limit": st.Limit},
		})
		s.respondRateLimited(w, st)
		return
	}
	setRateLimitHeaders(w, st)

	record, err := s.parser.Build(parser.ManualInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		FullName:      req.FullName,
		PreferredName: req.PreferredName,
		Email:         req.Email,
		Position:      req.JobTitle,
		Department:    req.Department,
		Country:       req.Country,
		UsageLocation: req.UsageLocation,
	})
	if err != nil {
		if isMissingName(err) {
			respondError(w, http.StatusBadRequest, "Missing required fields: firstName and lastName, or fullName")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts := s.opts.Provisioning
	if req.AssignLicense != nil {
		opts.AssignLicense = *req.AssignLicense
	}

	result, err := s.provisioner.Onboard(r.Context(), record.Account(), opts)
	details := map[string]any{
		"google":    result != nil && result.Google != nil,
		"microsoft": result != nil && result.Microsoft != nil,
	}
	if result != nil {
		details["errors"] = result.Errors
		if result.Microsoft != nil {
			details["license"] = result.Microsoft.LicenseAssigned
		}
	}

	record.Password = ""
	if err != nil {
		s.record(audit.Event{
			Action:      audit.ActionUserCreationFailed,
			TargetEmail: record.PrimaryEmail,
			PerformedBy: req.PerformedBy,
			IPAddress:   ip,
			Details:     details,
		})
		status := http.StatusInternalServerError
		if errors.Is(err, provision.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, onboardResponse{Result: result, Record: record})
		return
	}

	s.record(audit.Event{
		Action:      audit.ActionUserCreated,
		TargetEmail: record.PrimaryEmail,
		PerformedBy: req.PerformedBy,
		IPAddress:   ip,
		Success:     true,
		Details:     details,
	})
	s.warnIfSuspicious()
	respondJSON(w, http.StatusOK, onboardResponse{Result: result, Record: record})
}

type rateLimitRequest struct {
	Identifier string `json:"identifier"`
}

// handleRateLimitCheck counts one creation for a workflow that provisions
// accounts itself.
func (s *Server) handleRateLimitCheck(w http.ResponseWriter, r *http.Request) {
	var req rateLimitRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	id := req.Identifier
	if id == "" {
		id = clientIP(r)
	}

	st := s.limiter.Check(id)
	if !st.Allowed {
		s.record(audit.Event{
			Action:    audit.ActionRateLimited,
			IPAddress: clientIP(r),
			Details:   map[string]any{"identifier": id, "count": st.Count, "limit": st.Limit},
		})
		s.respondRateLimited(w, st)
		return
	}

	setRateLimitHeaders(w, st)
	respondJSON(w, http.StatusOK, map[string]any{
		"allowed":   true,
		"message":   "Rate limit OK - proceed with user creation",
		"remaining": st.Remaining,
		"limit":     st.Limit,
		"resetAt":   st.ResetAt,
	})
}

func (s *Server) handleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("identifier")
	if id == "" {
		id = clientIP(r)
	}
	st := s.limiter.Status(id)
	setRateLimitHeaders(w, st)
	respondJSON(w, http.StatusOK, map[string]any{
		"remaining": st.Remaining,
		"limit":     st.Limit,
		"count":     st.Count,
		"resetAt":   st.ResetAt,
		"resetIn":   st.ResetInMinutes(),
	})
}

type auditRequest struct {
	Action      string         `json:"action"`
	TargetEmail string         `json:"targetEmail"`
	PerformedBy string         `json:"performedBy"`
	Success     *bool          `json:"success"`
	Details     map[string]any `json:"details"`
}

// handleAuditRecord lets external workflows log creations they performed.
func (s *Server) handleAuditRecord(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Action == "" || req.TargetEmail == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: action, targetEmail")
		return
	}
	if s.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "audit log not configured")
		return
	}

	performedBy := req.PerformedBy
	if performedBy == "" {
		performedBy = "n8n-workflow"
	}
	details := map[string]any{"source": "api"}
	for k, v := range req.Details {
		details[k] = v
	}

	event, err := s.audit.Record(audit.Event{
		Action:      req.Action,
		TargetEmail: strings.ToLower(req.TargetEmail),
		PerformedBy: performedBy,
		IPAddress:   clientIP(r),
		Success:     req.Success == nil || *req.Success,
		Details:     details,
	})
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to log audit event: %v", err))
		respondError(w, http.StatusInternalServerError, "Failed to log audit event")
		return
	}
	if event.Action == audit.ActionUserCreated && event.Success {
		s.warnIfSuspicious()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"id":      event.ID,
		"message": "Audit event logged successfully",
	})
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "audit log not configured")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = min(n, 1000)
	}

	events, err := s.audit.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	suspicion, err := s.audit.DetectSuspicious()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"events":     events,
		"suspicious": suspicion,
	})
}

func (s *Server) handleLicenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := s.provisioner.Licenses(r.Context())
	if errors.Is(err, provision.ErrNotConfigured) {
		respondJSON(w, http.StatusOK, map[string]any{"licenses": []interfaces.License{}})
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch licenses: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"licenses": licenses})
}
