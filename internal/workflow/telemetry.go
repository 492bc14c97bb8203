package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
)

// noDataIndicators mark formatted telemetry text that carries no usable data
var noDataIndicators = []string{
	"No vehicle location data available",
	"No vehicle information available",
	"No driver information available",
	"Error: Unable to retrieve data",
	"API Error:",
	"No driver assignment data available",
	"No immobilizer data available",
	"No location history available",
	"No vehicle statistics available",
	"No tachograph files available",
}

// notAvailableThreshold is the count of "Not available" fields at which a
// vehicle information block is treated as empty
const notAvailableThreshold = 5

// SamsaraDataFound reports whether formatted telemetry text holds real data
func SamsaraDataFound(queryType core.SamsaraQueryType, data string) bool {
	found := true
	for _, indicator := range noDataIndicators {
		if strings.Contains(data, indicator) {
			found = false
			break
		}
	}

	if queryType == core.QueryVehicleLocation && strings.Contains(data, "Vehicle Locations:") {
		found = !strings.Contains(data, "No location data available")
	}
	if queryType == core.QueryVehicleInfo && strings.Contains(data, "Vehicle Information:") {
		found = strings.Count(data, "Not available") < notAvailableThreshold
	}
	return found
}

type telemetryMetadata struct {
	QueryType core.SamsaraQueryType `json:"query_type"`
	DataFound bool                  `json:"data_found"`
}

// annotateSamsaraData prefixes telemetry text with a metadata comment for the narrator
func annotateSamsaraData(queryType core.SamsaraQueryType, data string) string {
	meta, _ := json.Marshal(telemetryMetadata{
		QueryType: queryType,
		DataFound: SamsaraDataFound(queryType, data),
	})
	return fmt.Sprintf("<!-- Metadata: %s -->\n%s", meta, data)
}
