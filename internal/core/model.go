package core

import (
	"strings"
	"time"
)

// Email represents one inbound message, normalised across providers
type Email struct {
	ID         string
	ThreadID   string
	MessageID  string
	References string
	Sender     string
	SenderName string
	Subject    string
	Body       string
	Unread     bool
	Labels     []string
	ReceivedAt time.Time
}

// FromMatches reports whether the sender name or address contains term,
// ignoring case
func (e Email) FromMatches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(e.Sender), term) ||
		strings.Contains(strings.ToLower(e.SenderName), term)
}

// Draft is an unsent reply stored in the mailbox provider
type Draft struct {
	ID        string
	ThreadID  string
	Subject   string
	To        string
	Body      string
	CreatedAt time.Time
}

// Category is the classification assigned to an email
type Category string

const (
	CategoryProductEnquiry       Category = "product_enquiry"
	CategoryCustomerComplaint    Category = "customer_complaint"
	CategoryCustomerFeedback     Category = "customer_feedback"
	CategorySamsaraLocationQuery Category = "samsara_location_query"
	CategorySamsaraDriverQuery   Category = "samsara_driver_query"
	CategorySamsaraVehicleQuery  Category = "samsara_vehicle_query"
	CategoryUnrelated            Category = "unrelated"
)

// Categories lists every category the categorizer may return
var Categories = []Category{
	CategoryProductEnquiry,
	CategoryCustomerComplaint,
	CategoryCustomerFeedback,
	CategorySamsaraLocationQuery,
	CategorySamsaraDriverQuery,
	CategorySamsaraVehicleQuery,
	CategoryUnrelated,
}

// IsSamsara reports whether the category belongs to the telemetry branch
func (c Category) IsSamsara() bool {
	switch c {
	case CategorySamsaraLocationQuery, CategorySamsaraDriverQuery, CategorySamsaraVehicleQuery:
		return true
	}
	return false
}

// SamsaraQueryType is the telemetry intent extracted from an email
type SamsaraQueryType string

const (
	QueryVehicleLocation     SamsaraQueryType = "vehicle_location"
	QueryVehicleInfo         SamsaraQueryType = "vehicle_info"
	QueryDriverInfo          SamsaraQueryType = "driver_info"
	QueryDriverAssignments   SamsaraQueryType = "driver_assignments"
	QueryImmobilizerStatus   SamsaraQueryType = "immobilizer_status"
	QueryLocationHistory     SamsaraQueryType = "location_history"
	QueryVehicleStats        SamsaraQueryType = "vehicle_stats"
	QueryVehicleStatsHistory SamsaraQueryType = "vehicle_stats_history"
	QueryTachographFiles     SamsaraQueryType = "tachograph_files"
	QueryAllVehicles         SamsaraQueryType = "all_vehicles"
	QueryAllDrivers          SamsaraQueryType = "all_drivers"
)

// SamsaraQueryTypes lists every supported telemetry intent
var SamsaraQueryTypes = []SamsaraQueryType{
	QueryVehicleLocation,
	QueryVehicleInfo,
	QueryDriverInfo,
	QueryDriverAssignments,
	QueryImmobilizerStatus,
	QueryLocationHistory,
	QueryVehicleStats,
	QueryVehicleStatsHistory,
	QueryTachographFiles,
	QueryAllVehicles,
	QueryAllDrivers,
}

// SamsaraQuery is the parsed telemetry intent of an email
type SamsaraQuery struct {
	QueryType      SamsaraQueryType
	Identifiers    []string
	AdditionalInfo map[string]interface{}
}

// Review is the proofreader verdict on a draft
type Review struct {
	Feedback string
	Send     bool
}

// RunState is the mutable record threaded through every workflow step of one run
type RunState struct {
	Emails             []Email
	CurrentEmail       *Email
	EmailCategory      Category
	GeneratedEmail     string
	RAGQueries         []string
	RetrievedDocuments string
	WriterMessages     []string
	Sendable           bool
	Trials             int

	SamsaraQueryType      SamsaraQueryType
	SamsaraIdentifiers    []string
	SamsaraAdditionalInfo map[string]interface{}
	RetrievedSamsaraData  string
}

// NewRunState returns an empty state ready for the first inbox load
func NewRunState() *RunState {
	return &RunState{
		Emails:                []Email{},
		RAGQueries:            []string{},
		WriterMessages:        []string{},
		SamsaraIdentifiers:    []string{},
		SamsaraAdditionalInfo: map[string]interface{}{},
	}
}

// Peek returns the last pending email, or nil when the queue is empty
func (s *RunState) Peek() *Email {
	if len(s.Emails) == 0 {
		return nil
	}
	e := s.Emails[len(s.Emails)-1]
	return &e
}

// Pop removes the last pending email
func (s *RunState) Pop() {
	if len(s.Emails) > 0 {
		s.Emails = s.Emails[:len(s.Emails)-1]
	}
}

// Conclude pops the current email and clears the per-email drafting state
func (s *RunState) Conclude() {
	s.Pop()
	s.WriterMessages = []string{}
	s.Trials = 0
}

// RunStats are the aggregate counts reported for a run
type RunStats struct {
	ProcessedEmails int
	DraftsCreated   int
	Skipped         int
	Abandoned       int
	Steps           int
}

// Run statuses
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RunRecord is one entry of the run history
type RunRecord struct {
	ID              string
	Service         string
	Account         string
	Status          string
	Message         string
	ProcessedEmails int
	DraftsCreated   int
	StartedAt       time.Time
	FinishedAt      time.Time
	ExpiresAt       time.Time
}

// InboxStats summarises a mailbox over a time window
type InboxStats struct {
	Total   int `json:"total"`
	Unread  int `json:"unread"`
	Read    int `json:"read"`
	Replied int `json:"replied"`
	Drafted int `json:"drafted"`
}

// Role is the speaker of a chat message sent to an LLM
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of an LLM conversation
type Message struct {
	Role    Role
	Content string
}

// Prompt is a provider-neutral LLM request
type Prompt struct {
	System   string
	Messages []Message
	// JSONOutput asks the provider for a JSON object response where supported
	JSONOutput bool
}

// Passage is a knowledge-base chunk returned by retrieval
type Passage struct {
	Source string
	Text   string
	Score  float64
}
