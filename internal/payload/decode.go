package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrUnrecognized = errors.New("payload: unrecognized encoding")
	ErrBadNumber    = errors.New("payload: invalid numeric field")
	ErrNoSlips      = errors.New("payload: no slip ids")
)

// Payload identifies the case pan contents carried by one scan.
type Payload struct {
	CaseID  int   `json:"case_id"`
	SlipIDs []int `json:"slip_ids"`
}

func (p Payload) Validate() error {
	if p.CaseID <= 0 {
		return fmt.Errorf("%w: case_id must be positive", ErrBadNumber)
	}
	if len(p.SlipIDs) == 0 {
		return ErrNoSlips
	}
	for i, id := range p.SlipIDs {
		if id <= 0 {
			return fmt.Errorf("%w: slip_ids[%d] must be positive", ErrBadNumber, i)
		}
	}
	return nil
}

// A strategy reports whether it recognized the text, and if so what it
// decoded. A recognized match with a coercion error is terminal: later
// strategies are not consulted.
type strategy func(raw string) (Payload, bool, error)

var strategies = []strategy{
	decodeStructured,
	decodePath,
	decodeTag,
	decodeKeyValue,
}

// Decode parses raw scanned text, trying each known encoding in fixed
// precedence order: structured JSON, path, tag, then key-value. It performs
// no I/O and returns a tagged error for anything it cannot decode.
func Decode(raw string) (Payload, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Payload{}, ErrUnrecognized
	}
	for _, decode := range strategies {
		p, ok, err := decode(text)
		if err != nil {
			return Payload{}, err
		}
		if !ok {
			continue
		}
		if err := p.Validate(); err != nil {
			return Payload{}, err
		}
		return p, nil
	}
	return Payload{}, ErrUnrecognized
}

// decodeStructured handles JSON objects carrying case_id and slip_ids.
// slip_ids may be a single scalar or an array.
func decodeStructured(raw string) (Payload, bool, error) {
	if !strings.HasPrefix(raw, "{") {
		return Payload{}, false, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return Payload{}, false, nil
	}
	caseRaw, hasCase := body["case_id"]
	slipsRaw, hasSlips := body["slip_ids"]
	if !hasCase || !hasSlips {
		return Payload{}, false, nil
	}

	caseID, err := coerceID(caseRaw)
	if err != nil {
		return Payload{}, true, err
	}

	var slipIDs []int
	switch v := slipsRaw.(type) {
	case []any:
		slipIDs = make([]int, 0, len(v))
		for _, item := range v {
			id, err := coerceID(item)
			if err != nil {
				return Payload{}, true, err
			}
			slipIDs = append(slipIDs, id)
		}
	default:
		id, err := coerceID(v)
		if err != nil {
			return Payload{}, true, err
		}
		slipIDs = []int{id}
	}
	return Payload{CaseID: caseID, SlipIDs: slipIDs}, true, nil
}

var (
	pathPattern     = regexp.MustCompile(`case/(\d+)/slip/(\d+)`)
	tagPattern      = regexp.MustCompile(`(?i)CASE-(\d+)-SLIP-(\d+)`)
	keyValuePattern = regexp.MustCompile(`case_id:(\d+),slip_ids:(\d+(?:,\d+)*)`)
)

// decodePath handles "case/<id>/slip/<id>" substrings, as embedded in deep
// links. Exactly one slip id.
func decodePath(raw string) (Payload, bool, error) {
	m := pathPattern.FindStringSubmatch(raw)
	if m == nil {
		return Payload{}, false, nil
	}
	return singleSlipPayload(m[1], m[2])
}

// decodeTag handles "CASE-<id>-SLIP-<id>" printed-label tags, case-insensitive.
func decodeTag(raw string) (Payload, bool, error) {
	m := tagPattern.FindStringSubmatch(raw)
	if m == nil {
		return Payload{}, false, nil
	}
	return singleSlipPayload(m[1], m[2])
}

// decodeKeyValue handles "case_id:<id>,slip_ids:<id,id,...>" strings, keeping
// the listed slip order.
func decodeKeyValue(raw string) (Payload, bool, error) {
	m := keyValuePattern.FindStringSubmatch(raw)
	if m == nil {
		return Payload{}, false, nil
	}
	caseID, err := parseID(m[1])
	if err != nil {
		return Payload{}, true, err
	}
	parts := strings.Split(m[2], ",")
	slipIDs := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := parseID(part)
		if err != nil {
			return Payload{}, true, err
		}
		slipIDs = append(slipIDs, id)
	}
	return Payload{CaseID: caseID, SlipIDs: slipIDs}, true, nil
}

func singleSlipPayload(caseText, slipText string) (Payload, bool, error) {
	caseID, err := parseID(caseText)
	if err != nil {
		return Payload{}, true, err
	}
	slipID, err := parseID(slipText)
	if err != nil {
		return Payload{}, true, err
	}
	return Payload{CaseID: caseID, SlipIDs: []int{slipID}}, true, nil
}

func parseID(text string) (int, error) {
	id, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, text)
	}
	return id, nil
}

func coerceID(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		return parseID(n.String())
	case string:
		return parseID(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("%w: unexpected type %T", ErrBadNumber, v)
	}
}
