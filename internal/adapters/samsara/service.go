package samsara

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// Default lookback windows and stat types when the query leaves them open
const (
	defaultHistoryWindow    = 24 * time.Hour
	defaultTachographWindow = 7 * 24 * time.Hour
)

var defaultStatTypes = []string{"spreaderGranularName", "evChargingCurrentMilliAmp"}

// Service resolves a telemetry query into email-ready text. It never returns
// an error: failures are reported in the text so the workflow can narrate them.
type Service struct {
	client *Client
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a telemetry service
func NewService(client *Client, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Fetch dispatches the query to the matching endpoint and formats the result
func (s *Service) Fetch(ctx context.Context, query core.SamsaraQuery) string {
	ids := query.Identifiers
	info := query.AdditionalInfo
	s.logger.Info("Fetching telemetry",
		zap.String("query_type", string(query.QueryType)),
		zap.Strings("identifiers", ids))

	switch query.QueryType {
	case core.QueryVehicleLocation:
		if boolInfo(info, "real_time") {
			res := s.client.VehicleLocationsFeed(ctx, ids)
			if s.failed(res.Error, query) {
				return FetchErrorText
			}
			return FormatLocationsFeed(res.Data)
		}
		res := s.client.VehicleLocations(ctx, ids)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatLocations(res.Data)

	case core.QueryVehicleInfo:
		return s.vehicleInfo(ctx, query)

	case core.QueryDriverInfo:
		return s.driverInfo(ctx, query)

	case core.QueryDriverAssignments:
		res := s.client.DriverAssignments(ctx, ids)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatDriverAssignments(res.Data)

	case core.QueryImmobilizerStatus:
		start := stringInfo(info, "start_time", s.rfc3339(s.now().Add(-defaultHistoryWindow)))
		res := s.client.ImmobilizerStream(ctx, ids, start)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatImmobilizer(res.Data)

	case core.QueryLocationHistory:
		start, end := s.window(info, defaultHistoryWindow)
		res := s.client.LocationHistory(ctx, ids, start, end)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatLocationHistory(res.Data)

	case core.QueryVehicleStats:
		res := s.client.StatsFeed(ctx, ids, stringsInfo(info, "types", defaultStatTypes))
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatStats(res.Data)

	case core.QueryVehicleStatsHistory:
		start, end := s.window(info, defaultHistoryWindow)
		res := s.client.StatsHistory(ctx, ids, start, end, stringsInfo(info, "types", defaultStatTypes))
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatStats(res.Data)

	case core.QueryTachographFiles:
		start := stringInfo(info, "start_time", s.rfc3339(s.now().Add(-defaultTachographWindow)))
		res := s.client.TachographFiles(ctx, ids, start, stringInfo(info, "after", ""))
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatTachographFiles(res.Data, res.Pagination)

	case core.QueryAllVehicles:
		res := s.client.Vehicles(ctx)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatVehicles(res.Data)

	case core.QueryAllDrivers:
		res := s.client.Drivers(ctx)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatDrivers(res.Data)
	}

	s.logger.Warn("Unsupported telemetry query type", zap.String("query_type", string(query.QueryType)))
	return FetchErrorText
}

func (s *Service) failed(errMsg string, query core.SamsaraQuery) bool {
	if errMsg == "" {
		return false
	}
	s.logger.Error("Telemetry request failed",
		zap.String("query_type", string(query.QueryType)),
		zap.String("error", errMsg))
	return true
}

func (s *Service) vehicleInfo(ctx context.Context, query core.SamsaraQuery) string {
	var vehicles []Vehicle
	if len(query.Identifiers) > 0 {
		res := s.client.VehicleLocations(ctx, query.Identifiers)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		vehicles = res.Data
	} else {
		res := s.client.Vehicles(ctx)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		vehicles = res.Data
	}
	if len(vehicles) == 0 {
		return NoVehicleInfo
	}

	ids := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		if v.ID != "" {
			ids = append(ids, string(v.ID))
		}
	}
	assignments := s.client.DriverAssignments(ctx, ids)
	if assignments.Error != "" {
		s.logger.Warn("Driver assignments unavailable", zap.String("error", assignments.Error))
	}
	return FormatVehicleInfo(vehicles, assignments.Data)
}

// driverInfo looks the identifier up as a driver first, then as a vehicle
// whose assigned driver is reported
func (s *Service) driverInfo(ctx context.Context, query core.SamsaraQuery) string {
	if len(query.Identifiers) == 0 {
		res := s.client.Drivers(ctx)
		if s.failed(res.Error, query) {
			return FetchErrorText
		}
		return FormatDrivers(res.Data)
	}

	id := query.Identifiers[0]
	direct := s.client.Driver(ctx, id)
	if direct.Error == "" && direct.Data != nil {
		return FormatDriver(direct.Data)
	}

	s.logger.Info("Driver not found, trying vehicle assignment", zap.String("identifier", id), zap.String("error", direct.Error))
	assignments := s.client.DriverAssignments(ctx, []string{id})
	if s.failed(assignments.Error, query) {
		return FetchErrorText
	}
	for _, vehicle := range assignments.Data {
		if len(vehicle.DriverAssignments) == 0 || vehicle.DriverAssignments[0].Driver == nil {
			continue
		}
		assignment := vehicle.DriverAssignments[0]
		driver := assignment.Driver
		if driver.ID != "" {
			if full := s.client.Driver(ctx, string(driver.ID)); full.Error == "" && full.Data != nil {
				driver = full.Data
			}
		}
		return FormatDriverAssignment(driver, vehicle, assignment)
	}
	return NoDriverInfo
}

func (s *Service) window(info map[string]interface{}, lookback time.Duration) (string, string) {
	start := stringInfo(info, "start_time", "")
	end := stringInfo(info, "end_time", "")
	if start == "" || end == "" {
		now := s.now()
		return s.rfc3339(now.Add(-lookback)), s.rfc3339(now)
	}
	return start, end
}

func (s *Service) rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func boolInfo(info map[string]interface{}, key string) bool {
	switch v := info[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1"
	}
	return false
}

func stringInfo(info map[string]interface{}, key, fallback string) string {
	if v, ok := info[key]; ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return fallback
}

func stringsInfo(info map[string]interface{}, key string, fallback []string) []string {
	switch v := info[key].(type) {
	case []string:
		if len(v) > 0 {
			return v
		}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		if len(out) > 0 {
			return out
		}
	case string:
		if v != "" {
			return strings.Split(v, ",")
		}
	}
	return fallback
}
