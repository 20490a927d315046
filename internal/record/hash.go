package record

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// DomainRecordContent prefixes content hashes. The version suffix leaves
// room for a future change of the canonical form.
const DomainRecordContent = "brewlog/record-content/v1"

// ContentHash returns a stable hash of the record's content fields. Identity,
// timestamps, the delete flag and sync status are excluded, so two records
// with the same observations hash equal and an update that changes nothing
// keeps the hash.
func ContentHash(r TastingRecord) (string, error) {
	canonical, err := MarshalCanonical(contentObject(r))
	if err != nil {
		return "", fmt.Errorf("record: content hash: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainRecordContent))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func contentObject(r TastingRecord) map[string]any {
	notes := make([]any, len(r.FlavorNotes))
	for i, n := range r.FlavorNotes {
		notes[i] = map[string]any{
			"level":           int64(n.Level),
			"value":           n.Value,
			"localized_value": n.LocalizedValue,
		}
	}
	obj := map[string]any{
		"roastery":         r.Roastery,
		"coffee_name":      r.CoffeeName,
		"cafe_name":        r.CafeName,
		"origin":           r.Origin,
		"variety":          r.Variety,
		"altitude":         r.Altitude,
		"process":          r.Process,
		"temperature":      string(r.Temperature),
		"roaster_notes":    r.RoasterNotes,
		"personal_comment": r.PersonalComment,
		"mode":             string(r.Mode),
		"score_total":      int64(r.Scores.Total),
		"score_flavor":     int64(r.Scores.Flavor),
		"score_sensory":    int64(r.Scores.Sensory),
		"flavor_notes":     notes,
	}
	if s := r.Sensory; s != nil {
		obj["sensory"] = map[string]any{
			"body":       int64(s.Body),
			"acidity":    int64(s.Acidity),
			"sweetness":  int64(s.Sweetness),
			"finish":     int64(s.Finish),
			"bitterness": int64(s.Bitterness),
			"balance":    int64(s.Balance),
			"mouthfeel":  string(s.Mouthfeel),
		}
	}
	if rc := r.Recipe; rc != nil {
		obj["recipe"] = map[string]any{
			"method":       rc.Method,
			"dripper":      rc.Dripper,
			"grind_size":   rc.GrindSize,
			"dose_grams":   rc.DoseGrams,
			"water_grams":  rc.WaterGrams,
			"water_temp_c": rc.WaterTempC,
			"brew_seconds": int64(rc.BrewSeconds),
		}
	}
	if l := r.Lab; l != nil {
		obj["lab"] = map[string]any{
			"tds":              l.TDS,
			"extraction_yield": l.ExtractionYield,
		}
	}
	return obj
}

// MarshalCanonical encodes v as canonical JSON: object keys sorted by
// UTF-16 code units, strings NFC-normalized, no HTML escaping, no
// insignificant whitespace.
//
// Supported values: nil, bool, string, int64, float64, []any and
// map[string]any. Floats must be finite.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case string:
		return writeCanonicalString(buf, x)
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("canonical: non-finite float %v", x)
		}
		buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case []any:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return lessUTF16(keys[i], keys[j]) })

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, x[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonical: unsupported type %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	// encoding/json escapes U+2028 and U+2029; canonical JSON keeps them literal.
	buf.Write(unescapeLineSeparators(out))
	return nil
}

func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) && data[i+1] == '\\' {
			out = append(out, '\\', '\\')
			i++
			continue
		}
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// lessUTF16 compares strings by UTF-16 code units.
func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
