package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"marathon-billing/internal/domain/model"
)

type enrollmentView struct {
	ID              string    `json:"id"`
	MarathonID      string    `json:"marathonId"`
	Status          string    `json:"status"`
	Paid            bool      `json:"paid"`
	CurrentDay      int       `json:"currentDay"`
	LastAccessedDay int       `json:"lastAccessedDay"`
	CompletedDays   []int     `json:"completedDays"`
	EnrolledAt      time.Time `json:"enrolledAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

func toEnrollmentView(e *model.Enrollment) enrollmentView {
	days := e.CompletedDays
	if days == nil {
		days = []int{}
	}
	return enrollmentView{
		ID:              e.ID,
		MarathonID:      e.ProgramID,
		Status:          string(e.Status),
		Paid:            e.Paid,
		CurrentDay:      e.CurrentDay,
		LastAccessedDay: e.LastAccessedDay,
		CompletedDays:   days,
		EnrolledAt:      e.EnrolledAt,
		ExpiresAt:       e.ExpiresAt,
	}
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	marathonID := chi.URLParam(r, "id")
	enrollment, err := s.enrollmentUC.Enroll(r.Context(), UserID(r.Context()), marathonID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toEnrollmentView(enrollment))
}

// handleDay is the gate in front of day content: it validates enrollment and the
// calendar schedule, then reports the day as accessible. Content itself is
// served elsewhere.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	marathonID := chi.URLParam(r, "id")
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 {
		respondError(w, http.StatusBadRequest, "invalid_request", "day must be a positive number")
		return
	}

	enrollment, err := s.enrollmentUC.CheckDayAccess(r.Context(), UserID(r.Context()), marathonID, day, time.Now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Day       int    `json:"day"`
		Completed bool   `json:"completed"`
		Status    string `json:"status"`
	}{day, enrollment.HasCompleted(day), string(enrollment.Status)})
}

type completeDayRequest struct {
	Day int `json:"day"`
}

func (s *Server) handleCompleteDay(w http.ResponseWriter, r *http.Request) {
	marathonID := chi.URLParam(r, "id")
	var req completeDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	enrollment, err := s.enrollmentUC.CompleteDay(r.Context(), UserID(r.Context()), marathonID, req.Day)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toEnrollmentView(enrollment))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	marathonID := chi.URLParam(r, "id")
	enrollment, err := s.enrollmentUC.Progress(r.Context(), UserID(r.Context()), marathonID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	unlocked, err := s.enrollmentUC.UnlockedDay(r.Context(), marathonID, time.Now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		enrollmentView
		UnlockedDay int `json:"unlockedDay"`
	}{toEnrollmentView(enrollment), unlocked})
}

func (s *Server) handleMyEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := s.enrollmentUC.ListByUser(r.Context(), UserID(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	views := make([]enrollmentView, 0, len(enrollments))
	for _, e := range enrollments {
		views = append(views, toEnrollmentView(e))
	}
	respondJSON(w, http.StatusOK, struct {
		Data []enrollmentView `json:"data"`
	}{views})
}
