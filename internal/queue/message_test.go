package queue

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Message{
		Type:       MessageTypeAnalysisRequested,
		AnalysisID: "a1",
		UserID:     "u1",
		SampleID:   "s1",
		RequestID:  "r1",
	}
	body, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
}

func TestDecodeRejectsBadMessages(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"missing type", `{"analysisId":"a1"}`},
		{"analysis request missing ids", `{"type":"analysis.requested","analysisId":"a1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.body); err == nil {
				t.Fatalf("expected error for %q", tc.body)
			}
		})
	}
}
