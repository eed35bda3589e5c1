package credential

import (
	"sync"
	"testing"
)

func TestStoreSwap(t *testing.T) {
	s := NewStore("old-token")

	if got := s.Get(); got != "old-token" {
		t.Fatalf("Get() = %q, want old-token", got)
	}

	s.Set("new-token")
	if got := s.Get(); got != "new-token" {
		t.Errorf("Get() after Set = %q, want new-token", got)
	}
}

func TestStoreMatches(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		presented string
		expected  bool
	}{
		{"exact match", "secret", "secret", true},
		{"wrong token", "secret", "other", false},
		{"empty presented", "secret", "", false},
		{"empty stored never matches empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.token)
			if got := s.Matches(tt.presented); got != tt.expected {
				t.Errorf("Matches(%q) = %v, want %v", tt.presented, got, tt.expected)
			}
		})
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore("a")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set("b")
		}()
		go func() {
			defer wg.Done()
			got := s.Get()
			if got != "a" && got != "b" {
				t.Errorf("Get() = %q, want a or b", got)
			}
		}()
	}
	wg.Wait()
}
