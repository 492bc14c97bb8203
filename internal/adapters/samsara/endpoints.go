package samsara

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FlexString accepts both JSON strings and numbers
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	*f = FlexString(strings.TrimSpace(string(b)))
	return nil
}

// ReverseGeo is a resolved street address
type ReverseGeo struct {
	FormattedLocation string `json:"formattedLocation"`
}

// Location is one GPS fix
type Location struct {
	Time       string      `json:"time"`
	Latitude   *float64    `json:"latitude"`
	Longitude  *float64    `json:"longitude"`
	Speed      *float64    `json:"speed"`
	Heading    *float64    `json:"heading"`
	ReverseGeo *ReverseGeo `json:"reverseGeo"`
}

func (l *Location) valid() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// Vehicle is a fleet vehicle, optionally with its latest GPS fix
type Vehicle struct {
	ID          FlexString        `json:"id"`
	Name        string            `json:"name"`
	ExternalIDs map[string]string `json:"externalIds"`
	Make        string            `json:"make"`
	Model       string            `json:"model"`
	Year        FlexString        `json:"year"`
	VIN         string            `json:"vin"`
	GPS         *Location         `json:"gps"`
	Locations   []Location        `json:"locations"`
}

// Driver is a fleet driver
type Driver struct {
	ID            FlexString `json:"id"`
	Name          string     `json:"name"`
	Username      string     `json:"username"`
	Phone         string     `json:"phone"`
	LicenseNumber string     `json:"licenseNumber"`
}

// DriverAssignment links a driver to a vehicle from StartTime
type DriverAssignment struct {
	Driver    *Driver `json:"driver"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
}

// VehicleAssignments lists the driver assignments of one vehicle
type VehicleAssignments struct {
	ID                FlexString         `json:"id"`
	Name              string             `json:"name"`
	DriverAssignments []DriverAssignment `json:"driverAssignments"`
}

// RelayState is the state of one immobilizer relay
type RelayState struct {
	ID   string `json:"id"`
	IsOn bool   `json:"isOn"`
}

// ImmobilizerEvent is one immobilizer state change
type ImmobilizerEvent struct {
	VehicleID            FlexString   `json:"vehicleId"`
	HappenedAtTime       string       `json:"happenedAtTime"`
	IsConnectedToVehicle bool         `json:"isConnectedToVehicle"`
	RelayStates          []RelayState `json:"relayStates"`
}

// StatPoint is one timestamped statistic value
type StatPoint struct {
	Time  string          `json:"time"`
	Value json.RawMessage `json:"value"`
}

// VehicleStats holds stat series keyed by stat type
type VehicleStats struct {
	ID    FlexString
	Name  string
	Stats map[string][]StatPoint
}

// UnmarshalJSON implements json.Unmarshaler
func (v *VehicleStats) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v.Stats = map[string][]StatPoint{}
	for key, value := range raw {
		switch key {
		case "id":
			if err := json.Unmarshal(value, &v.ID); err != nil {
				return err
			}
		case "name":
			if err := json.Unmarshal(value, &v.Name); err != nil {
				return err
			}
		case "externalIds":
		default:
			var points []StatPoint
			if err := json.Unmarshal(value, &points); err != nil {
				var single StatPoint
				if err := json.Unmarshal(value, &single); err != nil {
					continue
				}
				points = []StatPoint{single}
			}
			v.Stats[key] = points
		}
	}
	return nil
}

// TachographFile is one downloaded tachograph file
type TachographFile struct {
	ID            FlexString `json:"id"`
	CreatedAtTime string     `json:"createdAtTime"`
	Name          string     `json:"name"`
}

// VehicleTachographFiles lists the files of one vehicle
type VehicleTachographFiles struct {
	Vehicle struct {
		ID   FlexString `json:"id"`
		Name string     `json:"name"`
	} `json:"vehicle"`
	Files []TachographFile `json:"files"`
}

// Result is a decoded list response. Error is set when the request failed.
type Result[T any] struct {
	Data       []T
	Pagination *Pagination
	Error      string
}

// ItemResult is a decoded single-object response
type ItemResult[T any] struct {
	Data  *T
	Error string
}

func decodeList[T any](env *envelope) *Result[T] {
	res := &Result[T]{Data: []T{}, Pagination: env.Pagination, Error: env.Error}
	if env.Error != "" || len(env.Data) == 0 || string(env.Data) == "null" {
		return res
	}
	if err := json.Unmarshal(env.Data, &res.Data); err != nil {
		res.Error = fmt.Sprintf("API Error: malformed data: %v", err)
	}
	return res
}

func decodeItem[T any](env *envelope) *ItemResult[T] {
	res := &ItemResult[T]{Error: env.Error}
	if env.Error != "" || len(env.Data) == 0 || string(env.Data) == "null" {
		return res
	}
	var item T
	if err := json.Unmarshal(env.Data, &item); err != nil {
		res.Error = fmt.Sprintf("API Error: malformed data: %v", err)
		return res
	}
	res.Data = &item
	return res
}

func idSet(ids []string) map[FlexString]struct{} {
	set := make(map[FlexString]struct{}, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			set[FlexString(trimmed)] = struct{}{}
		}
	}
	return set
}

func idParams(params url.Values, key string, ids []string) url.Values {
	if len(ids) > 0 {
		params.Set(key, strings.Join(ids, ","))
	}
	return params
}

// filterVehicles keeps vehicles whose ID or name matches one of ids
func (c *Client) filterVehicles(vehicles []Vehicle, ids []string) []Vehicle {
	if len(ids) == 0 {
		return vehicles
	}
	set := idSet(ids)
	filtered := make([]Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		_, byID := set[v.ID]
		_, byName := set[FlexString(v.Name)]
		if byID || byName {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// VehicleLocations returns the latest GPS fix of every vehicle, filtered on
// the client by ID or name
func (c *Client) VehicleLocations(ctx context.Context, vehicleIDs []string) *Result[Vehicle] {
	res := decodeList[Vehicle](c.get(ctx, "/fleet/vehicles/stats", url.Values{"types": {"gps"}}))
	res.Data = c.filterVehicles(res.Data, vehicleIDs)
	return res
}

// VehicleLocationsFeed returns the real-time location feed, filtered on the client
func (c *Client) VehicleLocationsFeed(ctx context.Context, vehicleIDs []string) *Result[Vehicle] {
	res := decodeList[Vehicle](c.get(ctx, "/fleet/vehicles/locations/feed", nil))
	res.Data = c.filterVehicles(res.Data, vehicleIDs)
	return res
}

// Vehicle returns one vehicle
func (c *Client) Vehicle(ctx context.Context, id string) *ItemResult[Vehicle] {
	return decodeItem[Vehicle](c.get(ctx, "/fleet/vehicles/"+url.PathEscape(id), nil))
}

// Driver returns one driver
func (c *Client) Driver(ctx context.Context, id string) *ItemResult[Driver] {
	return decodeItem[Driver](c.get(ctx, "/fleet/drivers/"+url.PathEscape(id), nil))
}

// Vehicles returns every vehicle
func (c *Client) Vehicles(ctx context.Context) *Result[Vehicle] {
	return decodeList[Vehicle](c.get(ctx, "/fleet/vehicles", nil))
}

// Drivers returns every driver
func (c *Client) Drivers(ctx context.Context) *Result[Driver] {
	return decodeList[Driver](c.get(ctx, "/fleet/drivers", nil))
}

// DriverAssignments returns the driver assignments of the given vehicles, or all vehicles
func (c *Client) DriverAssignments(ctx context.Context, vehicleIDs []string) *Result[VehicleAssignments] {
	params := idParams(url.Values{}, "vehicleIds", vehicleIDs)
	return decodeList[VehicleAssignments](c.get(ctx, "/fleet/vehicles/driver-assignments", params))
}

// ImmobilizerStream returns immobilizer events since startTime
func (c *Client) ImmobilizerStream(ctx context.Context, vehicleIDs []string, startTime string) *Result[ImmobilizerEvent] {
	params := idParams(url.Values{"startTime": {startTime}}, "vehicleIds", vehicleIDs)
	return decodeList[ImmobilizerEvent](c.get(ctx, "/fleet/vehicles/immobilizer/stream", params))
}

// LocationHistory returns GPS fixes between startTime and endTime
func (c *Client) LocationHistory(ctx context.Context, vehicleIDs []string, startTime, endTime string) *Result[Vehicle] {
	params := idParams(url.Values{"startTime": {startTime}, "endTime": {endTime}}, "vehicleIds", vehicleIDs)
	return decodeList[Vehicle](c.get(ctx, "/fleet/vehicles/locations/history", params))
}

// StatsFeed returns the latest values of the given stat types
func (c *Client) StatsFeed(ctx context.Context, vehicleIDs, types []string) *Result[VehicleStats] {
	params := idParams(url.Values{"types": {strings.Join(types, ",")}}, "vehicleIds", vehicleIDs)
	return decodeList[VehicleStats](c.get(ctx, "/fleet/vehicles/stats/feed", params))
}

// StatsHistory returns stat values between startTime and endTime
func (c *Client) StatsHistory(ctx context.Context, vehicleIDs []string, startTime, endTime string, types []string) *Result[VehicleStats] {
	params := idParams(url.Values{
		"startTime": {startTime},
		"endTime":   {endTime},
		"types":     {strings.Join(types, ",")},
	}, "vehicleIds", vehicleIDs)
	return decodeList[VehicleStats](c.get(ctx, "/fleet/vehicles/stats/history", params))
}

// TachographFiles returns tachograph files created since startTime. after is
// the pagination cursor of a previous page.
func (c *Client) TachographFiles(ctx context.Context, vehicleIDs []string, startTime, after string) *Result[VehicleTachographFiles] {
	params := idParams(url.Values{"startTime": {startTime}}, "vehicleIds", vehicleIDs)
	if after != "" {
		params.Set("after", after)
	}
	return decodeList[VehicleTachographFiles](c.get(ctx, "/fleet/vehicles/tachograph-files/history", params))
}
