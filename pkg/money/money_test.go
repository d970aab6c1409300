package money

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Cents
		wantErr bool
	}{
		{in: "100.00", want: 10000},
		{in: "150", want: 15000},
		{in: "0.1", want: 10},
		{in: " 99.99 ", want: 9999},
		{in: "-5.25", want: -525},
		{in: "1.005", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "100000000000000000000", wantErr: true},
		{in: "1.500", want: 150},
		{in: "1e3", want: 100000},
		{in: "1e10000000", wantErr: true},
		{in: "1e-10000000", wantErr: true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("Parse(%q) expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStringIsFixedPoint(t *testing.T) {
	if got := Cents(15000).String(); got != "150.00" {
		t.Fatalf("expected 150.00, got %s", got)
	}
	if got := Cents(7).String(); got != "0.07" {
		t.Fatalf("expected 0.07, got %s", got)
	}
	if !Cents(10001).Decimal().Equal(decimal.RequireFromString("100.01")) {
		t.Fatalf("decimal conversion drifted")
	}
}

func TestJSONAcceptsNumbersAndStrings(t *testing.T) {
	var body struct {
		A Cents `json:"a"`
		B Cents `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 150.5, "b": "99.99"}`), &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if body.A != 15050 || body.B != 9999 {
		t.Fatalf("unexpected values: %d %d", body.A, body.B)
	}

	out, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `{"a":"150.50","b":"99.99"}` {
		t.Fatalf("unexpected json %s", out)
	}

	if err := json.Unmarshal([]byte(`{"a": 0.001}`), &body); err == nil {
		t.Fatal("expected sub-cent amount to be rejected")
	}
}

func TestHugeExponentRejectedCheaply(t *testing.T) {
	for _, raw := range []string{`1e10000000`, `"1e10000000"`, `-1e10000000`, `1e-10000000`, `"` + strings.Repeat("9", 5000) + `"`} {
		var c Cents
		start := time.Now()
		err := json.Unmarshal([]byte(raw), &c)
		elapsed := time.Since(start)
		if err == nil {
			t.Fatalf("expected %.20s to be rejected", raw)
		}
		if len(err.Error()) > 128 {
			t.Fatalf("error message should not echo the amount, got %d bytes", len(err.Error()))
		}
		if elapsed > 100*time.Millisecond {
			t.Fatalf("rejecting %.20s took %s", raw, elapsed)
		}
	}

	if _, err := FromDecimal(decimal.New(1, 10000000)); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange, got %v", err)
	}
}
