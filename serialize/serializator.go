// Package serialize implements the whitespace-token, checksummed artifact
// format every trained Classifier is saved and loaded through: a decimal
// checksum, a space, then one token per atomic field, with literal spaces in
// string tokens escaped by a sentinel.
package serialize

import (
	"strconv"
	"strings"

	"github.com/philipluk/primeclue"
)

// spaceSubstitute replaces literal spaces inside string tokens so the whole
// stream can be split on whitespace unambiguously.
const spaceSubstitute = "PRIMECLUE_SPACE_SUBSTITUTE"

// FileExt is the suffix every serialized classifier file carries.
const FileExt = ".ssd"

// Serializable is implemented by any type that can append its own tokens to
// a Serializator.
type Serializable interface {
	Serialize(s *Serializator)
}

// Serializator is an ordered token stream: a write side (Add/AddString) used
// while serializing, and a read side (NextToken) used while deserializing,
// sharing the same token slice so round-tripping a byte stream back through
// the type that produced it just works.
type Serializator struct {
	tokens    []string
	nextToken int
}

// NewSerializator returns an empty token stream ready for writing.
func NewSerializator() *Serializator {
	return &Serializator{}
}

// NextToken consumes and returns the next unread token.
func (s *Serializator) NextToken() (string, error) {
	if s.nextToken >= len(s.tokens) {
		return "", primeclue.Errorf("not enough tokens")
	}
	t := s.tokens[s.nextToken]
	s.nextToken++
	return t, nil
}

// AddString appends v as a single token, escaping any literal spaces.
func (s *Serializator) AddString(v string) {
	s.tokens = append(s.tokens, strings.ReplaceAll(v, " ", spaceSubstitute))
}

// Add serializes v by appending its own tokens.
func (s *Serializator) Add(v Serializable) {
	v.Serialize(s)
}

// AddItems serializes every item in order, a convenience for struct
// Serialize methods that just forward a fixed field list.
func (s *Serializator) AddItems(items ...Serializable) {
	for _, item := range items {
		s.Add(item)
	}
}

// AsSerialized renders every token, each followed by a single space.
func (s *Serializator) AsSerialized() string {
	var b strings.Builder
	for _, t := range s.tokens {
		b.WriteString(t)
		b.WriteByte(' ')
	}
	return b.String()
}

// ToBytes renders the checksum, a space, then every token.
func (s *Serializator) ToBytes() []byte {
	var b strings.Builder
	b.WriteString(calcChecksum(s.tokens).String())
	b.WriteByte(' ')
	b.WriteString(s.AsSerialized())
	return []byte(b.String())
}

// FromBytes parses data back into a fresh, read-ready Serializator,
// rejecting it outright if the checksum does not match.
func FromBytes(data []byte) (*Serializator, error) {
	content := string(data)
	idx := strings.IndexByte(content, ' ')
	if idx < 0 {
		return nil, primeclue.Errorf("unable to find checksum")
	}
	csToken, rest := content[:idx], content[idx+1:]
	want, ok := parseChecksum128(csToken)
	if !ok {
		return nil, primeclue.Errorf("unable to parse checksum %q", csToken)
	}
	tokens := strings.Fields(rest)
	if calcChecksum(tokens) != want {
		return nil, primeclue.Errorf("invalid checksum")
	}
	return &Serializator{tokens: tokens}, nil
}

// Primitive serialize/deserialize helpers. These exist as free functions
// rather than methods on int/bool/string/float32/float64 since Go does not
// let a package add methods to builtin types.

func SerializeInt(s *Serializator, v int) {
	s.AddString(strconv.Itoa(v))
}

func DeserializeInt(s *Serializator) (int, error) {
	tok, err := s.NextToken()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, primeclue.Errorf("unable to parse %q as int: %s", tok, err)
	}
	return v, nil
}

func SerializeUint16(s *Serializator, v uint16) {
	s.AddString(strconv.FormatUint(uint64(v), 10))
}

func DeserializeUint16(s *Serializator) (uint16, error) {
	tok, err := s.NextToken()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(tok, 10, 16)
	if err != nil {
		return 0, primeclue.Errorf("unable to parse %q as u16: %s", tok, err)
	}
	return uint16(v), nil
}

func SerializeFloat32(s *Serializator, v float32) {
	s.AddString(strconv.FormatFloat(float64(v), 'g', -1, 32))
}

func DeserializeFloat32(s *Serializator) (float32, error) {
	tok, err := s.NextToken()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, primeclue.Errorf("unable to parse %q as f32: %s", tok, err)
	}
	return float32(v), nil
}

func SerializeFloat64(s *Serializator, v float64) {
	s.AddString(strconv.FormatFloat(v, 'g', -1, 64))
}

func DeserializeFloat64(s *Serializator) (float64, error) {
	tok, err := s.NextToken()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, primeclue.Errorf("unable to parse %q as f64: %s", tok, err)
	}
	return v, nil
}

func SerializeBool(s *Serializator, v bool) {
	s.AddString(strconv.FormatBool(v))
}

func DeserializeBool(s *Serializator) (bool, error) {
	tok, err := s.NextToken()
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(tok)
	if err != nil {
		return false, primeclue.Errorf("unable to parse %q as bool: %s", tok, err)
	}
	return v, nil
}

func SerializeString(s *Serializator, v string) {
	s.AddString(v)
}

func DeserializeString(s *Serializator) (string, error) {
	tok, err := s.NextToken()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(tok, spaceSubstitute, " "), nil
}

// SerializeSlice writes len(items) then every element via each, mirroring
// Vec<T>'s length-prefixed encoding.
func SerializeSlice[T any](s *Serializator, items []T, each func(*Serializator, T)) {
	SerializeInt(s, len(items))
	for _, item := range items {
		each(s, item)
	}
}

func DeserializeSlice[T any](s *Serializator, each func(*Serializator) (T, error)) ([]T, error) {
	n, err := DeserializeInt(s)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, err := each(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SerializeMap writes len(m) then alternating key/value tokens; iteration
// order is unspecified, matching HashMap's encoding.
func SerializeMap[K comparable, V any](s *Serializator, m map[K]V, eachKey func(*Serializator, K), eachValue func(*Serializator, V)) {
	SerializeInt(s, len(m))
	for k, v := range m {
		eachKey(s, k)
		eachValue(s, v)
	}
}

func DeserializeMap[K comparable, V any](s *Serializator, eachKey func(*Serializator) (K, error), eachValue func(*Serializator) (V, error)) (map[K]V, error) {
	n, err := DeserializeInt(s)
	if err != nil {
		return nil, err
	}
	m := make(map[K]V, n)
	for i := 0; i < n; i++ {
		k, err := eachKey(s)
		if err != nil {
			return nil, err
		}
		v, err := eachValue(s)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// SerializeOption writes "None", or "Some" followed by *v's tokens.
func SerializeOption[T any](s *Serializator, v *T, each func(*Serializator, T)) {
	if v == nil {
		s.AddString("None")
		return
	}
	s.AddString("Some")
	each(s, *v)
}

func DeserializeOption[T any](s *Serializator, each func(*Serializator) (T, error)) (*T, error) {
	tok, err := s.NextToken()
	if err != nil {
		return nil, err
	}
	switch tok {
	case "None":
		return nil, nil
	case "Some":
		v, err := each(s)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, primeclue.Errorf("invalid token when deserializing option: %q", tok)
	}
}
