// Package simreport computes the aggregate service-quality metrics report
// from a completed run's order export and handles atomic JSON export of
// orders and fleet history.
package simreport

import "github.com/ubi-africa/ridesim/internal/simcore"

// MetricsReport is the §8 metrics computed from an order export.
type MetricsReport struct {
	OrderCount                int     `json:"order_count"`
	ResponseRate              float64 `json:"response_rate"`
	AvgResponseWait           float64 `json:"avg_response_wait"`
	AvgPickupAfterAssignment  float64 `json:"avg_pickup_after_assignment"`
	AvgTripTime               float64 `json:"avg_trip_time"`
	AvgVehicleOccupancyRate   float64 `json:"avg_vehicle_occupancy_rate"`

	SpecialCaseNoPickup         int `json:"special_case_no_pickup"`
	SpecialCaseSameLocation     int `json:"special_case_same_location"`
	SpecialCaseInvalidAssignment int `json:"special_case_invalid_assignment"`
	SpecialCaseNegativeTrip      int `json:"special_case_negative_trip"`
}

// Compute derives the §8/§8.1 metrics from an order export set and,
// separately, the per-vehicle fleet export (needed for occupancy, which is
// defined per taxi).
func Compute(orders map[string]simcore.OrderExport, fleet simcore.FleetExportDoc) MetricsReport {
	report := MetricsReport{OrderCount: len(orders)}
	if len(orders) == 0 {
		return report
	}

	var (
		responseWaitSum, pickupWaitSum, tripTimeSum float64
		responseCount, pickupCount, tripCount       int
		minRequest, maxDropoffOrRequest              int
		first                                        = true
	)

	for _, o := range orders {
		if first {
			minRequest, maxDropoffOrRequest = o.RequestTime, o.RequestTime
			first = false
		}
		if o.RequestTime < minRequest {
			minRequest = o.RequestTime
		}
		latest := o.RequestTime
		if o.DropoffTime != nil && *o.DropoffTime > latest {
			latest = *o.DropoffTime
		}
		if latest > maxDropoffOrRequest {
			maxDropoffOrRequest = latest
		}

		if o.PickupNode == o.DropoffNode {
			report.SpecialCaseSameLocation++
		}

		if o.AssignedTime != nil {
			responseCount++
			responseWaitSum += float64(*o.AssignedTime - o.RequestTime)
			if *o.AssignedTime < o.RequestTime {
				report.SpecialCaseInvalidAssignment++
			}
		}
		if o.PickupTime != nil && o.AssignedTime != nil {
			pickupCount++
			pickupWaitSum += float64(*o.PickupTime - *o.AssignedTime)
		}
		if o.PickupTime != nil && o.DropoffTime != nil {
			tripCount++
			trip := float64(*o.DropoffTime - *o.PickupTime)
			tripTimeSum += trip
			if trip < 0 {
				report.SpecialCaseNegativeTrip++
			}
		}
		if o.PickupTime == nil && o.DropoffTime != nil {
			report.SpecialCaseNoPickup++
		}
	}

	report.ResponseRate = float64(responseCount) / float64(report.OrderCount)
	if responseCount > 0 {
		report.AvgResponseWait = responseWaitSum / float64(responseCount)
	}
	if pickupCount > 0 {
		report.AvgPickupAfterAssignment = pickupWaitSum / float64(pickupCount)
	}
	if tripCount > 0 {
		report.AvgTripTime = tripTimeSum / float64(tripCount)
	}
	report.AvgVehicleOccupancyRate = computeOccupancy(fleet, orders, minRequest, maxDropoffOrRequest)
	return report
}

// computeOccupancy computes the mean, over taxis, of the fraction of the
// run's simulated-time span (global max dropoff/request minus global min
// request) during which the taxi was occupied by an assigned order
// (dropoff_time - assigned_time summed across that taxi's orders).
func computeOccupancy(fleet simcore.FleetExportDoc, orders map[string]simcore.OrderExport, minRequest, maxTime int) float64 {
	span := maxTime - minRequest
	if span <= 0 || len(fleet.FleetData) == 0 {
		return 0
	}

	byID := make(map[int]simcore.OrderExport, len(orders))
	for _, o := range orders {
		byID[o.OrderID] = o
	}

	var sum float64
	for _, v := range fleet.FleetData {
		var busy float64
		for _, entry := range v.OrderHistory {
			o, ok := byID[entry.OrderID]
			if !ok || o.AssignedTime == nil || o.DropoffTime == nil {
				continue
			}
			busy += float64(*o.DropoffTime - *o.AssignedTime)
		}
		sum += busy / float64(span)
	}
	return sum / float64(len(fleet.FleetData))
}
