package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEnabledToggle(t *testing.T) {
	// Metrics should be enabled by default
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled by default")
	}

	SetEnabled(false)
	if IsEnabled() {
		t.Error("Expected metrics to be disabled after SetEnabled(false)")
	}

	SetEnabled(true)
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled after SetEnabled(true)")
	}
}

func TestRecordCeremony(t *testing.T) {
	SetEnabled(true)

	CeremoniesTotal.Reset()
	CeremonyDuration.Reset()

	RecordCeremony(CeremonyRegistration, PhaseOptions, StatusSuccess, 0.01)

	if count := testutil.CollectAndCount(CeremoniesTotal); count != 1 {
		t.Errorf("Expected 1 ceremony recorded, got %d", count)
	}
	if count := testutil.CollectAndCount(CeremonyDuration); count != 1 {
		t.Errorf("Expected 1 histogram sample, got %d", count)
	}

	RecordCeremony(CeremonyAuthentication, PhaseVerify, StatusError, 0.05)

	if count := testutil.CollectAndCount(CeremoniesTotal); count != 2 {
		t.Errorf("Expected 2 ceremonies recorded, got %d", count)
	}
}

func TestRecordCeremonyWhenDisabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	CeremoniesTotal.Reset()

	RecordCeremony(CeremonyRegistration, PhaseVerify, StatusSuccess, 0.01)

	if count := testutil.CollectAndCount(CeremoniesTotal); count != 0 {
		t.Errorf("Expected 0 ceremonies when disabled, got %d", count)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	SetEnabled(true)

	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "200", 0.02)
	RecordHTTPRequest("POST", "401", 0.01)

	if count := testutil.CollectAndCount(HTTPRequestsTotal); count != 2 {
		t.Errorf("Expected 2 requests recorded, got %d", count)
	}
}
