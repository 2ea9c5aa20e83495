package payload

import (
	"errors"
	"reflect"
	"testing"

	"pantrack/internal/testutil/testlog"
)

func TestDecodeTagEncoding(t *testing.T) {
	testlog.Start(t)
	p, err := Decode("CASE-102-SLIP-55")
	if err != nil {
		t.Fatalf("decode tag: %v", err)
	}
	if p.CaseID != 102 || !reflect.DeepEqual(p.SlipIDs, []int{55}) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodeTagEncodingCaseInsensitive(t *testing.T) {
	testlog.Start(t)
	p, err := Decode("scanned: case-8-slip-21 (pan 4)")
	if err != nil {
		t.Fatalf("decode lowercase tag: %v", err)
	}
	if p.CaseID != 8 || !reflect.DeepEqual(p.SlipIDs, []int{21}) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodeStructuredEncoding(t *testing.T) {
	testlog.Start(t)
	p, err := Decode(`{"case_id":7,"slip_ids":[1,2,3]}`)
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if p.CaseID != 7 || !reflect.DeepEqual(p.SlipIDs, []int{1, 2, 3}) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodeStructuredScalarSlip(t *testing.T) {
	testlog.Start(t)
	p, err := Decode(`{"case_id":"12","slip_ids":"34"}`)
	if err != nil {
		t.Fatalf("decode json scalar: %v", err)
	}
	if p.CaseID != 12 || !reflect.DeepEqual(p.SlipIDs, []int{34}) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodePathEncoding(t *testing.T) {
	testlog.Start(t)
	p, err := Decode("https://lab.example.com/case/41/slip/9?src=qr")
	if err != nil {
		t.Fatalf("decode path: %v", err)
	}
	if p.CaseID != 41 || !reflect.DeepEqual(p.SlipIDs, []int{9}) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodeKeyValueEncoding(t *testing.T) {
	testlog.Start(t)
	p, err := Decode("case_id:9,slip_ids:10,11,12")
	if err != nil {
		t.Fatalf("decode key-value: %v", err)
	}
	if p.CaseID != 9 || !reflect.DeepEqual(p.SlipIDs, []int{10, 11, 12}) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodePrecedenceStructuredWins(t *testing.T) {
	testlog.Start(t)
	// Text that both parses as JSON and contains a tag substring; the
	// structured strategy is consulted first.
	p, err := Decode(`{"case_id":3,"slip_ids":[4],"label":"CASE-99-SLIP-98"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.CaseID != 3 || !reflect.DeepEqual(p.SlipIDs, []int{4}) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodePrecedencePathBeforeTag(t *testing.T) {
	testlog.Start(t)
	p, err := Decode("case/1/slip/2 CASE-3-SLIP-4")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.CaseID != 1 || !reflect.DeepEqual(p.SlipIDs, []int{2}) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodeDuplicatesPreserved(t *testing.T) {
	testlog.Start(t)
	p, err := Decode("case_id:5,slip_ids:7,7,8")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(p.SlipIDs, []int{7, 7, 8}) {
		t.Fatalf("duplicates should survive decode: %+v", p.SlipIDs)
	}
}

func TestDecodeUnrecognizedText(t *testing.T) {
	testlog.Start(t)
	for _, raw := range []string{
		"not a recognizable code",
		"",
		"   ",
		`{"unrelated":true}`,
		"case/x/slip/y",
	} {
		if _, err := Decode(raw); !errors.Is(err, ErrUnrecognized) {
			t.Fatalf("input %q: expected ErrUnrecognized, got %v", raw, err)
		}
	}
}

func TestDecodeStructuredRejectsBadNumbers(t *testing.T) {
	testlog.Start(t)
	tests := []string{
		`{"case_id":7.5,"slip_ids":[1]}`,
		`{"case_id":"abc","slip_ids":[1]}`,
		`{"case_id":7,"slip_ids":[1,"x"]}`,
		`{"case_id":7,"slip_ids":true}`,
		`{"case_id":0,"slip_ids":[1]}`,
		`{"case_id":7,"slip_ids":[-1]}`,
	}
	for _, raw := range tests {
		if _, err := Decode(raw); !errors.Is(err, ErrBadNumber) {
			t.Fatalf("input %q: expected ErrBadNumber, got %v", raw, err)
		}
	}
}

func TestDecodeStructuredRejectsEmptySlipList(t *testing.T) {
	testlog.Start(t)
	if _, err := Decode(`{"case_id":7,"slip_ids":[]}`); !errors.Is(err, ErrNoSlips) {
		t.Fatalf("expected ErrNoSlips, got %v", err)
	}
}

func TestDecodeIsPure(t *testing.T) {
	testlog.Start(t)
	const raw = `{"case_id":7,"slip_ids":[1,2,3]}`
	first, err1 := Decode(raw)
	second, err2 := Decode(raw)
	if err1 != nil || err2 != nil {
		t.Fatalf("decode errors: %v %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("decode not deterministic: %+v vs %+v", first, second)
	}
	first.SlipIDs[0] = 999
	if second.SlipIDs[0] == 999 {
		t.Fatalf("decode results share backing storage")
	}
}
