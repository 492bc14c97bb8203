package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

const (
	defaultHours       = 24
	defaultRecentLimit = 10
	defaultRunsLimit   = 50
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type runStats struct {
	ProcessedEmails int `json:"processed_emails"`
	DraftsCreated   int `json:"drafts_created"`
}

type checkEmailsResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Stats   runStats `json:"stats"`
	Logs    []string `json:"logs"`
}

type accountResponse struct {
	Email        string `json:"email"`
	Service      string `json:"service"`
	IsConfigured bool   `json:"isConfigured"`
}

type recentEmailResponse struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Unread    bool   `json:"unread"`
	Timestamp string `json:"timestamp"`
	Received  string `json:"received_at"`
}

type emailSearchResponse struct {
	Count         int    `json:"count"`
	SearchTerm    string `json:"search_term"`
	HoursSearched int    `json:"hours_searched"`
	TimePeriod    string `json:"time_period"`
}

type runResponse struct {
	ID              string    `json:"id"`
	Service         string    `json:"service"`
	Account         string    `json:"account"`
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	ProcessedEmails int       `json:"processed_emails"`
	DraftsCreated   int       `json:"drafts_created"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

type serviceHealth struct {
	Email      string `json:"email"`
	Configured bool   `json:"configured"`
}

type healthResponse struct {
	Status   string                   `json:"status"`
	Version  string                   `json:"version"`
	Accounts map[string]serviceHealth `json:"accounts"`
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorResponse{Detail: detail})
}

// requestError maps account and service resolution failures to 400
func requestError(err error) int {
	switch {
	case errors.Is(err, config.ErrUnknownService),
		errors.Is(err, config.ErrAccountNotFound),
		errors.Is(err, config.ErrNoAccounts),
		errors.Is(err, config.ErrInvalidAccount):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrReportingUnsupported):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func serviceParam(c *gin.Context) (config.Service, bool) {
	service, err := config.ParseService(c.Query("service"))
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return service, true
}

func positiveIntParam(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		abort(c, http.StatusBadRequest, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return n, true
}

func (s *Server) checkEmails(c *gin.Context) {
	service, ok := serviceParam(c)
	if !ok {
		return
	}

	result, err := s.automation.Run(c.Request.Context(), service, c.Query("account"))
	if err != nil {
		if result == nil {
			abort(c, requestError(err), err.Error())
			return
		}
		s.logger.Error("Error checking emails", zap.String("service", string(service)), zap.Error(err))
		abort(c, http.StatusInternalServerError, result.Message)
		return
	}

	logs := result.Logs
	if logs == nil {
		logs = []string{}
	}
	c.JSON(http.StatusOK, checkEmailsResponse{
		Status:  result.Status,
		Message: result.Message,
		Stats: runStats{
			ProcessedEmails: result.Stats.ProcessedEmails,
			DraftsCreated:   result.Stats.DraftsCreated,
		},
		Logs: logs,
	})
}

func (s *Server) emailStats(c *gin.Context) {
	service, ok := serviceParam(c)
	if !ok {
		return
	}
	hours, ok := positiveIntParam(c, "hours", defaultHours)
	if !ok {
		return
	}

	stats, err := s.automation.InboxStats(c.Request.Context(), service, c.Query("account"), time.Duration(hours)*time.Hour)
	if err != nil {
		s.logger.Error("Error getting email stats", zap.String("service", string(service)), zap.Error(err))
		abort(c, requestError(err), fmt.Sprintf("Error getting email stats: %v", err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) accounts(c *gin.Context) {
	accounts := s.automation.Accounts()
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			Email:        a.Email,
			Service:      string(a.Service),
			IsConfigured: a.Validate() == nil,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) recentEmails(c *gin.Context) {
	service, ok := serviceParam(c)
	if !ok {
		return
	}
	hours, ok := positiveIntParam(c, "hours", defaultHours)
	if !ok {
		return
	}
	limit, ok := positiveIntParam(c, "limit", defaultRecentLimit)
	if !ok {
		return
	}

	emails, err := s.automation.RecentEmails(c.Request.Context(), service, c.Query("account"), time.Duration(hours)*time.Hour, limit)
	if err != nil {
		s.logger.Error("Error processing recent emails", zap.String("service", string(service)), zap.Error(err))
		abort(c, requestError(err), fmt.Sprintf("Error processing recent emails: %v", err))
		return
	}

	now := s.now()
	out := make([]recentEmailResponse, 0, len(emails))
	for _, e := range emails {
		out = append(out, recentEmailResponse{
			ID:        e.ID,
			ThreadID:  e.ThreadID,
			Sender:    e.Sender,
			Subject:   e.Subject,
			Unread:    e.Unread,
			Timestamp: relativeTime(now, e.ReceivedAt),
			Received:  e.ReceivedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) emailSearch(c *gin.Context) {
	service, ok := serviceParam(c)
	if !ok {
		return
	}
	term := strings.TrimSpace(c.Query("search_term"))
	if term == "" {
		abort(c, http.StatusBadRequest, "search_term is required")
		return
	}
	hours, ok := positiveIntParam(c, "hours", defaultHours)
	if !ok {
		return
	}

	count, err := s.automation.CountFromSender(c.Request.Context(), service, c.Query("account"), term, time.Duration(hours)*time.Hour)
	if err != nil {
		s.logger.Error("Error searching emails", zap.String("service", string(service)), zap.Error(err))
		abort(c, requestError(err), fmt.Sprintf("Error processing email search: %v", err))
		return
	}

	c.JSON(http.StatusOK, emailSearchResponse{
		Count:         count,
		SearchTerm:    term,
		HoursSearched: hours,
		TimePeriod:    timePeriod(hours),
	})
}

// timePeriod renders a search window as "12 hours" or, from a day up, "3 days"
func timePeriod(hours int) string {
	if hours < 24 {
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d days", hours/24)
}

func (s *Server) runs(c *gin.Context) {
	limit, ok := positiveIntParam(c, "limit", defaultRunsLimit)
	if !ok {
		return
	}

	records, err := s.automation.History(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("Error listing runs", zap.Error(err))
		abort(c, http.StatusInternalServerError, fmt.Sprintf("Error listing runs: %v", err))
		return
	}

	out := make([]runResponse, 0, len(records))
	for _, r := range records {
		out = append(out, runResponse{
			ID:              r.ID,
			Service:         r.Service,
			Account:         r.Account,
			Status:          r.Status,
			Message:         r.Message,
			ProcessedEmails: r.ProcessedEmails,
			DraftsCreated:   r.DraftsCreated,
			StartedAt:       r.StartedAt,
			FinishedAt:      r.FinishedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) health(c *gin.Context) {
	accounts := map[string]serviceHealth{
		string(config.ServiceGmail):   {},
		string(config.ServiceOutlook): {},
	}
	for _, a := range s.automation.Accounts() {
		key := string(a.Service)
		if accounts[key].Email != "" {
			continue
		}
		accounts[key] = serviceHealth{Email: a.Email, Configured: a.Validate() == nil}
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:   "healthy",
		Version:  s.version,
		Accounts: accounts,
	})
}

// relativeTime renders how long ago t was, as "3d ago", "2h ago" or "5m ago"
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	}
}
