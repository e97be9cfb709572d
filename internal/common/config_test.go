package common

import (
	"reflect"
	"testing"
)

func TestSplitEnvList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/drop", []string{"/drop"}},
		{"/drop:/inbox", []string{"/drop", "/inbox"}},
		{":/drop::/inbox:", []string{"/drop", "/inbox"}},
	}
	for _, tc := range cases {
		if got := splitEnvList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitEnvList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoadConfigWatchRoots(t *testing.T) {
	t.Setenv("WATCH_ROOTS", "/drop:/inbox")
	cfg := LoadConfig()
	if want := []string{"/drop", "/inbox"}; !reflect.DeepEqual(cfg.Watch.Roots, want) {
		t.Errorf("Watch.Roots = %v, want %v", cfg.Watch.Roots, want)
	}
}
