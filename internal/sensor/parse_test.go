package sensor

import (
	"errors"
	"testing"
	"time"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Request
		wantErr bool
	}{
		{
			name: "add",
			line: "23 24 1000",
			want: Request{Trigger: 23, Echo: 24, Timeout: time.Second},
		},
		{
			name: "add with explicit plus",
			line: "+23 24 1000",
			want: Request{Trigger: 23, Echo: 24, Timeout: time.Second},
		},
		{
			name: "remove",
			line: "-23 24",
			want: Request{Remove: true, Trigger: 23, Echo: 24},
		},
		{
			name: "surrounding whitespace",
			line: "  23 24 500\n",
			want: Request{Trigger: 23, Echo: 24, Timeout: 500 * time.Millisecond},
		},
		{
			name:    "empty",
			line:    "",
			wantErr: true,
		},
		{
			name:    "only whitespace",
			line:    "   \n",
			wantErr: true,
		},
		{
			name:    "single number",
			line:    "23",
			wantErr: true,
		},
		{
			name:    "add without timeout",
			line:    "23 24",
			wantErr: true,
		},
		{
			name:    "not numbers",
			line:    "trig echo",
			wantErr: true,
		},
		{
			name:    "zero timeout",
			line:    "23 24 0",
			wantErr: true,
		},
		{
			name:    "negative timeout",
			line:    "23 24 -5",
			wantErr: true,
		},
		{
			name:    "bare minus",
			line:    "-",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRequest) {
					t.Fatalf("ParseRequest(%q) error = %v, want ErrMalformedRequest", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest(%q) error = %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseRequest(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseName(t *testing.T) {
	pair, err := ParseName("distance_23_24")
	if err != nil {
		t.Fatalf("ParseName() error = %v", err)
	}
	if pair != (Pair{Trigger: 23, Echo: 24}) {
		t.Errorf("ParseName() = %+v", pair)
	}

	for _, name := range []string{"", "distance", "distance_23", "range_23_24", "distance_a_b"} {
		if _, err := ParseName(name); !errors.Is(err, ErrSensorNotFound) {
			t.Errorf("ParseName(%q) error = %v, want ErrSensorNotFound", name, err)
		}
	}
}

func TestPairName(t *testing.T) {
	got := Pair{Trigger: 7, Echo: 12}.Name()
	if got != "distance_7_12" {
		t.Errorf("Name() = %q, want distance_7_12", got)
	}
}
