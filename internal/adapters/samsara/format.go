package samsara

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Messages used when a response carries no data
const (
	NoLocationData     = "No vehicle location data available."
	NoFeedData         = "No vehicle location data available in the real-time feed."
	NoVehicleInfo      = "No vehicle information available."
	NoDriverInfo       = "No driver information available."
	NoAssignmentData   = "No driver assignment data available."
	NoImmobilizerData  = "No immobilizer data available."
	NoLocationHistory  = "No location history available."
	NoVehicleStats     = "No vehicle statistics available."
	NoTachographFiles  = "No tachograph files available."
	FetchErrorText     = "Error: Unable to retrieve data from Samsara at this time."
	notAvailable       = "Not available"
	maxHistoryPoints   = 20
	googleMapsTemplate = "https://maps.google.com/?q=%s,%s"
)

// vinYears maps the model-year character of a VIN
var vinYears = map[byte]string{
	'A': "2010", 'B': "2011", 'C': "2012", 'D': "2013",
	'E': "2014", 'F': "2015", 'G': "2016", 'H': "2017",
	'J': "2018", 'K': "2019", 'L': "2020", 'M': "2021",
	'N': "2022", 'P': "2023", 'R': "2024", 'S': "2025",
}

func formatFloat(f *float64) string {
	if f == nil {
		return "0"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func address(l *Location) string {
	if l.ReverseGeo == nil {
		return "No address available"
	}
	return orDefault(l.ReverseGeo.FormattedLocation, "No address available")
}

func writeFix(b *strings.Builder, l *Location, withMotion bool) {
	lat, lon := formatFloat(l.Latitude), formatFloat(l.Longitude)
	fmt.Fprintf(b, "  Time: %s\n", orDefault(l.Time, "Unknown"))
	fmt.Fprintf(b, "  Location: %s, %s\n", lat, lon)
	fmt.Fprintf(b, "  Address: %s\n", address(l))
	if withMotion {
		fmt.Fprintf(b, "  Speed: %s mph\n", formatFloat(l.Speed))
		fmt.Fprintf(b, "  Heading: %s°\n", formatFloat(l.Heading))
	}
	fmt.Fprintf(b, "  Google Maps: "+googleMapsTemplate+"\n\n", lat, lon)
}

// FormatLocations renders the latest GPS fix of each vehicle
func FormatLocations(vehicles []Vehicle) string {
	if len(vehicles) == 0 {
		return NoLocationData
	}

	var b strings.Builder
	b.WriteString("Vehicle Locations:\n\n")
	for _, v := range vehicles {
		name := orDefault(v.Name, "Unknown Vehicle")
		if !v.GPS.valid() {
			fmt.Fprintf(&b, "- %s: No location data available\n\n", name)
			continue
		}
		fmt.Fprintf(&b, "- %s:\n", name)
		writeFix(&b, v.GPS, false)
	}
	return b.String()
}

// FormatLocationsFeed renders the real-time feed entry of each vehicle
func FormatLocationsFeed(vehicles []Vehicle) string {
	if len(vehicles) == 0 {
		return NoFeedData
	}

	var b strings.Builder
	b.WriteString("Real-Time Vehicle Locations:\n\n")
	for _, v := range vehicles {
		id := orDefault(string(v.ID), "Unknown ID")
		name := orDefault(v.Name, "Vehicle "+id)
		if len(v.Locations) == 0 || !v.Locations[0].valid() {
			fmt.Fprintf(&b, "- %s (ID: %s): No location data available\n\n", name, id)
			continue
		}
		fmt.Fprintf(&b, "- %s (ID: %s):\n", name, id)
		writeFix(&b, &v.Locations[0], true)
	}
	return b.String()
}

func vehicleVIN(v Vehicle) string {
	if vin := v.ExternalIDs["samsara.vin"]; vin != "" {
		return vin
	}
	return orDefault(v.VIN, notAvailable)
}

func vehicleYear(v Vehicle, vin string) string {
	if v.Year != "" {
		return string(v.Year)
	}
	if vin != notAvailable && len(vin) >= 10 {
		if year, ok := vinYears[vin[9]]; ok {
			return year
		}
	}
	return notAvailable
}

// FormatVehicleInfo renders vehicle details with the current driver when known
func FormatVehicleInfo(vehicles []Vehicle, assignments []VehicleAssignments) string {
	if len(vehicles) == 0 {
		return NoVehicleInfo
	}

	drivers := make(map[FlexString]DriverAssignment, len(assignments))
	for _, a := range assignments {
		if len(a.DriverAssignments) > 0 && a.DriverAssignments[0].Driver != nil {
			drivers[a.ID] = a.DriverAssignments[0]
		}
	}

	var b strings.Builder
	b.WriteString("Vehicle Information:\n\n")
	for _, v := range vehicles {
		vin := vehicleVIN(v)
		fmt.Fprintf(&b, "- ID: %s\n", orDefault(string(v.ID), notAvailable))
		fmt.Fprintf(&b, "- Name: %s\n", orDefault(v.Name, notAvailable))
		fmt.Fprintf(&b, "- VIN: %s\n", vin)
		fmt.Fprintf(&b, "- Make: %s\n", orDefault(v.Make, notAvailable))
		fmt.Fprintf(&b, "- Model: %s\n", orDefault(v.Model, notAvailable))
		fmt.Fprintf(&b, "- Year: %s\n", vehicleYear(v, vin))
		if a, ok := drivers[v.ID]; ok {
			fmt.Fprintf(&b, "- Assigned Driver: %s (since %s)\n", orDefault(a.Driver.Name, "Unknown"), orDefault(a.StartTime, "Unknown"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatDriver renders one driver
func FormatDriver(d *Driver) string {
	if d == nil {
		return NoDriverInfo
	}

	var b strings.Builder
	b.WriteString("Driver Information:\n\n")
	fmt.Fprintf(&b, "- ID: %s\n", orDefault(string(d.ID), notAvailable))
	fmt.Fprintf(&b, "- Name: %s\n", orDefault(d.Name, notAvailable))
	if d.Username != "" {
		fmt.Fprintf(&b, "- Username: %s\n", d.Username)
	}
	if d.Phone != "" {
		fmt.Fprintf(&b, "- Phone: %s\n", d.Phone)
	}
	if d.LicenseNumber != "" {
		fmt.Fprintf(&b, "- License: %s\n", d.LicenseNumber)
	}
	return b.String()
}

// FormatDriverAssignment renders a driver found through a vehicle assignment
func FormatDriverAssignment(d *Driver, vehicle VehicleAssignments, assignment DriverAssignment) string {
	var b strings.Builder
	b.WriteString(FormatDriver(d))
	b.WriteString("\nVehicle Assignment:\n")
	fmt.Fprintf(&b, "- Vehicle: %s (ID: %s)\n", orDefault(vehicle.Name, "Unknown Vehicle"), vehicle.ID)
	fmt.Fprintf(&b, "- Assigned since: %s\n", orDefault(assignment.StartTime, "Unknown"))
	return b.String()
}

// FormatVehicles renders a vehicle list
func FormatVehicles(vehicles []Vehicle) string {
	if len(vehicles) == 0 {
		return NoVehicleInfo
	}
	var b strings.Builder
	fmt.Fprintf(&b, "All Vehicles (%d):\n\n", len(vehicles))
	for _, v := range vehicles {
		fmt.Fprintf(&b, "- %s (ID: %s)\n", orDefault(v.Name, "Unknown Vehicle"), v.ID)
	}
	return b.String()
}

// FormatDrivers renders a driver list
func FormatDrivers(drivers []Driver) string {
	if len(drivers) == 0 {
		return NoDriverInfo
	}
	var b strings.Builder
	fmt.Fprintf(&b, "All Drivers (%d):\n\n", len(drivers))
	for _, d := range drivers {
		fmt.Fprintf(&b, "- %s (ID: %s)\n", orDefault(d.Name, "Unknown Driver"), d.ID)
	}
	return b.String()
}

// FormatDriverAssignments renders which driver is assigned to each vehicle
func FormatDriverAssignments(assignments []VehicleAssignments) string {
	if len(assignments) == 0 {
		return NoAssignmentData
	}
	var b strings.Builder
	b.WriteString("Driver Assignments:\n\n")
	for _, a := range assignments {
		fmt.Fprintf(&b, "- %s (ID: %s):\n", orDefault(a.Name, "Unknown Vehicle"), a.ID)
		if len(a.DriverAssignments) == 0 || a.DriverAssignments[0].Driver == nil {
			b.WriteString("  No driver assigned\n\n")
			continue
		}
		current := a.DriverAssignments[0]
		fmt.Fprintf(&b, "  Driver: %s (ID: %s)\n", orDefault(current.Driver.Name, "Unknown Driver"), current.Driver.ID)
		fmt.Fprintf(&b, "  Since: %s\n\n", orDefault(current.StartTime, "Unknown"))
	}
	return b.String()
}

// FormatImmobilizer renders immobilizer events
func FormatImmobilizer(events []ImmobilizerEvent) string {
	if len(events) == 0 {
		return NoImmobilizerData
	}
	var b strings.Builder
	b.WriteString("Immobilizer Status:\n\n")
	for _, e := range events {
		state := "Disengaged"
		for _, r := range e.RelayStates {
			if r.IsOn {
				state = "Engaged"
				break
			}
		}
		connected := "No"
		if e.IsConnectedToVehicle {
			connected = "Yes"
		}
		fmt.Fprintf(&b, "- Vehicle %s:\n", e.VehicleID)
		fmt.Fprintf(&b, "  Time: %s\n", orDefault(e.HappenedAtTime, "Unknown"))
		fmt.Fprintf(&b, "  Connected: %s\n", connected)
		fmt.Fprintf(&b, "  Immobilizer: %s\n\n", state)
	}
	return b.String()
}

// FormatLocationHistory renders GPS fixes per vehicle, newest last
func FormatLocationHistory(vehicles []Vehicle) string {
	total := 0
	for _, v := range vehicles {
		total += len(v.Locations)
	}
	if total == 0 {
		return NoLocationHistory
	}

	var b strings.Builder
	b.WriteString("Location History:\n\n")
	for _, v := range vehicles {
		fmt.Fprintf(&b, "- %s (ID: %s):\n", orDefault(v.Name, "Unknown Vehicle"), v.ID)
		if len(v.Locations) == 0 {
			b.WriteString("  No location data available\n\n")
			continue
		}
		for i, l := range v.Locations {
			if i == maxHistoryPoints {
				fmt.Fprintf(&b, "  ... and %d more\n", len(v.Locations)-maxHistoryPoints)
				break
			}
			if !l.valid() {
				continue
			}
			lat, lon := formatFloat(l.Latitude), formatFloat(l.Longitude)
			fmt.Fprintf(&b, "  %s: %s, %s (%s)\n", orDefault(l.Time, "Unknown"), lat, lon, address(&l))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatStats renders stat series per vehicle
func FormatStats(stats []VehicleStats) string {
	if len(stats) == 0 {
		return NoVehicleStats
	}
	var b strings.Builder
	b.WriteString("Vehicle Statistics:\n\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "- %s (ID: %s):\n", orDefault(s.Name, "Unknown Vehicle"), s.ID)
		if len(s.Stats) == 0 {
			b.WriteString("  No statistics reported\n\n")
			continue
		}
		keys := make([]string, 0, len(s.Stats))
		for k := range s.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			points := s.Stats[k]
			if len(points) == 0 {
				fmt.Fprintf(&b, "  %s: %s\n", k, notAvailable)
				continue
			}
			latest := points[len(points)-1]
			fmt.Fprintf(&b, "  %s: %s (%s)\n", k, strings.Trim(string(latest.Value), `"`), orDefault(latest.Time, "Unknown"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatTachographFiles renders tachograph files per vehicle
func FormatTachographFiles(files []VehicleTachographFiles, pagination *Pagination) string {
	if len(files) == 0 {
		return NoTachographFiles
	}
	var b strings.Builder
	b.WriteString("Tachograph Files:\n\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- %s (ID: %s):\n", orDefault(f.Vehicle.Name, "Unknown Vehicle"), f.Vehicle.ID)
		if len(f.Files) == 0 {
			b.WriteString("  No files\n\n")
			continue
		}
		for _, file := range f.Files {
			fmt.Fprintf(&b, "  %s created %s\n", orDefault(file.Name, string(file.ID)), orDefault(file.CreatedAtTime, "Unknown"))
		}
		b.WriteString("\n")
	}
	if pagination != nil && pagination.HasNextPage {
		fmt.Fprintf(&b, "More files are available (cursor: %s)\n", pagination.EndCursor)
	}
	return b.String()
}
