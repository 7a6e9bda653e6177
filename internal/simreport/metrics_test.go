package simreport_test

import (
	"testing"

	"github.com/ubi-africa/ridesim/internal/simcore"
	"github.com/ubi-africa/ridesim/internal/simreport"
)

func intp(v int) *int { return &v }

func TestComputeResponseRate(t *testing.T) {
	orders := map[string]simcore.OrderExport{
		"1": {OrderID: 1, RequestTime: 0, AssignedTime: intp(1), Status: "assigned"},
		"2": {OrderID: 2, RequestTime: 0, Status: "waiting"},
	}
	report := simreport.Compute(orders, simcore.FleetExportDoc{})
	if report.OrderCount != 2 {
		t.Fatalf("expected order_count=2, got %d", report.OrderCount)
	}
	if report.ResponseRate != 0.5 {
		t.Fatalf("expected response_rate=0.5, got %f", report.ResponseRate)
	}
}

func TestComputeAvgTripTime(t *testing.T) {
	orders := map[string]simcore.OrderExport{
		"1": {
			OrderID: 1, RequestTime: 0,
			AssignedTime: intp(1), PickupTime: intp(2), DropoffTime: intp(10),
			Status: "completed",
		},
	}
	report := simreport.Compute(orders, simcore.FleetExportDoc{})
	if report.AvgTripTime != 8 {
		t.Fatalf("expected avg_trip_time=8, got %f", report.AvgTripTime)
	}
	if report.AvgPickupAfterAssignment != 1 {
		t.Fatalf("expected avg_pickup_after_assignment=1, got %f", report.AvgPickupAfterAssignment)
	}
}

func TestComputeSpecialCaseNoPickup(t *testing.T) {
	orders := map[string]simcore.OrderExport{
		"1": {
			OrderID: 1, RequestTime: 0,
			AssignedTime: intp(1), DropoffTime: intp(3),
			Status: "completed",
		},
	}
	report := simreport.Compute(orders, simcore.FleetExportDoc{})
	if report.SpecialCaseNoPickup != 1 {
		t.Fatalf("expected special_case_no_pickup=1, got %d", report.SpecialCaseNoPickup)
	}
}

func TestComputeSpecialCaseSameLocation(t *testing.T) {
	orders := map[string]simcore.OrderExport{
		"1": {OrderID: 1, PickupNode: 5, DropoffNode: 5, RequestTime: 0, Status: "waiting"},
	}
	report := simreport.Compute(orders, simcore.FleetExportDoc{})
	if report.SpecialCaseSameLocation != 1 {
		t.Fatalf("expected special_case_same_location=1, got %d", report.SpecialCaseSameLocation)
	}
}

func TestComputeSpecialCaseInvalidAssignment(t *testing.T) {
	orders := map[string]simcore.OrderExport{
		"1": {OrderID: 1, RequestTime: 10, AssignedTime: intp(5), Status: "assigned"},
	}
	report := simreport.Compute(orders, simcore.FleetExportDoc{})
	if report.SpecialCaseInvalidAssignment != 1 {
		t.Fatalf("expected special_case_invalid_assignment=1, got %d", report.SpecialCaseInvalidAssignment)
	}
}

func TestComputeEmptyOrderSet(t *testing.T) {
	report := simreport.Compute(map[string]simcore.OrderExport{}, simcore.FleetExportDoc{})
	if report.OrderCount != 0 || report.ResponseRate != 0 {
		t.Fatalf("expected zero-value report for empty input, got %+v", report)
	}
}
