package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBuildSearchWhere_Empty(t *testing.T) {
	where, args := buildSearchWhere(SearchCriteria{}, time.UTC)
	if where != "1=1" || len(args) != 0 {
		t.Errorf("expected bare clause, got %q %v", where, args)
	}
}

func TestBuildSearchWhere_AllFilters(t *testing.T) {
	subject, resource, location := uuid.New(), uuid.New(), uuid.New()
	bt := TypeFollowUp
	from := time.Date(2025, 2, 20, 15, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 21, 0, 0, 0, 0, time.UTC)
	tf, tt := "09:00", "12:00"

	where, args := buildSearchWhere(SearchCriteria{
		SubjectID:   &subject,
		ResourceID:  &resource,
		LocationID:  &location,
		Statuses:    []Status{StatusScheduled, StatusConfirmed},
		BookingType: &bt,
		DateFrom:    &from,
		DateTo:      &to,
		TimeFrom:    &tf,
		TimeTo:      &tt,
	}, time.UTC)

	wantClauses := []string{
		"subject_id = $1",
		"resource_id = $2",
		"location_id = $3",
		"status = ANY($4)",
		"booking_type = $5",
		"start_time >= $6",
		"start_time < $7",
		"(start_time AT TIME ZONE $8)::time >= $9::time",
		"(start_time AT TIME ZONE $8)::time <= $10::time",
	}
	for _, c := range wantClauses {
		if !strings.Contains(where, c) {
			t.Errorf("expected clause %q in %q", c, where)
		}
	}
	if len(args) != 10 {
		t.Fatalf("expected 10 args, got %d", len(args))
	}

	statuses, ok := args[3].([]string)
	if !ok || len(statuses) != 2 || statuses[0] != "SCHEDULED" {
		t.Errorf("unexpected status arg %#v", args[3])
	}
	if args[4] != "FOLLOW_UP" {
		t.Errorf("unexpected booking type arg %#v", args[4])
	}
	// Date bounds are whole days: DateFrom truncates, DateTo is inclusive.
	if got := args[5].(time.Time); !got.Equal(time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected lower bound %v", got)
	}
	if got := args[6].(time.Time); !got.Equal(time.Date(2025, 2, 22, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected upper bound %v", got)
	}
	if args[7] != "UTC" {
		t.Errorf("expected zone name arg, got %#v", args[7])
	}
}

func TestBuildSearchWhere_OnlyTimeTo(t *testing.T) {
	tt := "17:00"
	where, args := buildSearchWhere(SearchCriteria{TimeTo: &tt}, time.UTC)
	if !strings.Contains(where, "(start_time AT TIME ZONE $1)::time <= $2::time") {
		t.Errorf("unexpected clause %q", where)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %d", len(args))
	}
}
