package snowflake

import "testing"

func TestSetup(t *testing.T) {
	err := Setup(3)
	if err != nil {
		t.Error(err)
	}

	// second call must be rejected
	err = Setup(4)
	if err == nil {
		t.Error("expected error on repeated Setup, got nil")
	}
}

func TestGenerateIsMonotonic(t *testing.T) {
	var prev int64
	for i := 0; i < 1000; i++ {
		id, err := Generate()
		if err != nil {
			// increment overflow is the only legitimate failure here
			return
		}
		if id <= prev {
			t.Fatalf("id %d is not greater than previous id %d", id, prev)
		}
		prev = id
	}
}

func TestExtract(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatal(err)
	}

	parts := Extract(id)
	if parts.WorkerID != 3 {
		t.Errorf("got worker ID %d, want 3", parts.WorkerID)
	}
	if parts.Timestamp != ExtractTimestamp(id) {
		t.Errorf("Extract and ExtractTimestamp disagree: %d vs %d", parts.Timestamp, ExtractTimestamp(id))
	}
}
