package ingestion

import "testing"

func TestCanonicalDate(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "02-07-2024", want: "2024-07-02"},
		{in: "2024-07-02", want: "2024-07-02"},
		{in: "31-12-2023", want: "2023-12-31"},
		{in: "2-7-24", wantErr: true},
		{in: "2024/07/02", wantErr: true},
		{in: "", wantErr: true},
		{in: "32-01-2024", wantErr: true},
		{in: "2024-13-01", wantErr: true},
	}
	for _, tc := range cases {
		got, err := CanonicalDate(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("CanonicalDate(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("CanonicalDate(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("CanonicalDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUpstreamDate(t *testing.T) {
	if got := UpstreamDate("2024-07-02"); got != "02-07-2024" {
		t.Fatalf("UpstreamDate = %q, want 02-07-2024", got)
	}
}

func TestTranscriptID(t *testing.T) {
	p, s := 14, 3
	if got := TranscriptID("2024-07-02", &p, &s); got != "2024-07-02-p14-s3" {
		t.Fatalf("TranscriptID = %q", got)
	}
	if got := TranscriptID("2024-07-02", &p, nil); got != "2024-07-02-sitting-1" {
		t.Fatalf("TranscriptID without session = %q", got)
	}
	if got := TranscriptID("2024-07-02", nil, nil); got != "2024-07-02-sitting-1" {
		t.Fatalf("TranscriptID without numbers = %q", got)
	}
}
