package services

import (
	"fmt"
	"reflect"
	"testing"

	"comet/internal/apperr"
)

func TestNormalizeTopics(t *testing.T) {
	got, err := NormalizeTopics([]string{"Hip Hop", "hip  hop", " ", "Music"})
	if err != nil {
		t.Fatalf("NormalizeTopics: %v", err)
	}
	want := []string{"hip_hop", "music"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	empty, err := NormalizeTopics(nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("nil input: %v, %v", empty, err)
	}
}

func TestNormalizeTopicsLimit(t *testing.T) {
	var many []string
	for i := 0; i < MaxTopicsPerPost+1; i++ {
		many = append(many, fmt.Sprintf("topic%d", i))
	}
	if _, err := NormalizeTopics(many); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	// duplicates do not count toward the limit
	dupes := append(many[:MaxTopicsPerPost:MaxTopicsPerPost], "TOPIC0")
	if _, err := NormalizeTopics(dupes); err != nil {
		t.Errorf("duplicates counted: %v", err)
	}
}
