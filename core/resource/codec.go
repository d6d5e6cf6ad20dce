package resource

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

// Record is an entity with a backend-assigned numeric identity.
type Record interface {
	Identity() int
}

// Draft is an uncommitted create/edit buffer. Identity is 0 while the record does not exist yet.
type Draft interface {
	Identity() int
}

// Codec translates between the backend wire shape and the local view-model of one entity type.
type Codec[T Record, D Draft] interface {
	// Decode maps one raw backend object. Missing mandatory fields yield a *core.MalformedRecordError.
	Decode(raw json.RawMessage) (T, error)
	// Encode builds the create/update payload for a draft.
	Encode(draft D) (*Payload, error)
	// Merge echoes a draft onto the current record, for updates the backend answers without a body.
	Merge(current T, draft D) T
}

// DecodeList decodes a JSON array entry by entry.
// Entries that fail are skipped and reported; only a body that is not an array fails as a whole.
func DecodeList[T Record](resource string, body []byte, decode func(json.RawMessage) (T, error)) ([]T, []error, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, nil, errors.Wrap(err, "decoding list")
	}
	items := make([]T, 0, len(raws))
	var skipped []error
	for i, raw := range raws {
		rec, err := decode(raw)
		if err == nil && rec.Identity() == 0 {
			err = core.NewMalformedField("id", nil)
		}
		if err != nil {
			skipped = append(skipped, asMalformed(resource, i, err))
			continue
		}
		items = append(items, rec)
	}
	return items, skipped, nil
}

func asMalformed(resource string, idx int, err error) error {
	var mErr *core.MalformedRecordError
	if errors.As(err, &mErr) {
		cp := *mErr
		cp.Resource = resource
		cp.Index = idx
		return &cp
	}
	return &core.MalformedRecordError{Resource: resource, Index: idx, Err: err}
}

// Unwrap returns the object stored under key when the backend wrapped the entity (eg. `{"usuario": {...}}`),
// or body unchanged.
func Unwrap(body []byte, key string) []byte {
	if key == "" {
		return body
	}
	value, dataType, _, err := jsonparser.Get(body, key)
	if err != nil || dataType != jsonparser.Object {
		return body
	}
	return value
}

func hasID(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	_, dataType, _, err := jsonparser.Get(raw, "id")
	return err == nil && dataType != jsonparser.Null
}

// AssetURL resolves a file field for display: relative paths get the asset base URL prefixed,
// absolute and local preview URLs pass through.
func AssetURL(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, prefix := range []string{"http://", "https://", "//", "blob:", "data:", "file:"} {
		if strings.HasPrefix(raw, prefix) {
			return raw
		}
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/")
}

// WireID is an identity as the backend sends it: a number, a numeric string or null.
type WireID int

func (id *WireID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			*id = 0
			return nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n != float64(int(n)) {
		return errors.Errorf("invalid id %s", string(b))
	}
	*id = WireID(int(n))
	return nil
}

func (id WireID) Int() int { return int(id) }

// WireRef is a foreign key sent either as a bare id or as the nested object (`{"id": 3, ...}`).
type WireRef int

func (ref *WireRef) UnmarshalJSON(b []byte) error {
	value, dataType, _, err := jsonparser.Get(b)
	if err != nil {
		return errors.Wrap(err, "parsing reference")
	}
	if dataType == jsonparser.Object {
		value, dataType, _, err = jsonparser.Get(b, "id")
		if err != nil {
			if dataType == jsonparser.NotExist {
				*ref = 0
				return nil
			}
			return errors.Wrap(err, "parsing reference id")
		}
	}
	if dataType == jsonparser.String {
		value = []byte(strconv.Quote(string(value)))
	}
	var id WireID
	if err := id.UnmarshalJSON(value); err != nil {
		return err
	}
	*ref = WireRef(id)
	return nil
}

func (ref WireRef) Int() int { return int(ref) }

// WireBool is a boolean-like flag: true/false, 1/0, "true"/"false", "1"/"0" or null (false).
type WireBool bool

func (wb *WireBool) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	switch strings.ToLower(s) {
	case "true", "1", "t", "yes":
		*wb = true
	case "false", "0", "f", "no", "", "null":
		*wb = false
	default:
		return errors.Errorf("invalid boolean %s", string(b))
	}
	return nil
}

func (wb WireBool) Bool() bool { return bool(wb) }

// File is a file replacement sent as a multipart field.
type File struct {
	Field   string
	Name    string
	Content []byte
}

// Payload is the wire shape of a create/update call.
// Without files it is sent as a JSON object, with files as multipart/form-data.
type Payload struct {
	Fields map[string]interface{}
	Files  []File
	form   bool
}

func NewPayload() *Payload {
	return &Payload{Fields: make(map[string]interface{})}
}

// Set stores val under key unless it is empty: nil, "", a nil pointer or an invalid null.* value.
// The backend reads an absent field as "unchanged", so empty values are never sent.
func (p *Payload) Set(key string, val interface{}) *Payload {
	if !isEmpty(val) {
		p.Fields[key] = val
	}
	return p
}

// AttachFile adds a file replacement; a nil content means no new file was selected.
func (p *Payload) AttachFile(field, name string, content []byte) *Payload {
	if content != nil {
		p.Files = append(p.Files, File{Field: field, Name: name, Content: content})
	}
	return p
}

// AsForm marks p to be sent as multipart/form-data even without files.
func (p *Payload) AsForm() *Payload {
	p.form = true
	return p
}

func (p *Payload) Multipart() bool { return p.form || len(p.Files) > 0 }

// Keys returns the field names in a stable order.
func (p *Payload) Keys() []string {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Fields)
}

// FormValue renders a field for a multipart body.
func (p *Payload) FormValue(key string) string {
	return formValue(p.Fields[key])
}

func formValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil || dv == nil {
			return ""
		}
		if t, ok := dv.(time.Time); ok {
			return t.Format(time.RFC3339)
		}
		return fmt.Sprint(dv)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func isEmpty(val interface{}) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case driver.Valuer:
		dv, err := v.Value()
		return err == nil && (dv == nil || dv == "")
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// NoDraft is the draft type of read-only resources.
type NoDraft struct{}

func (NoDraft) Identity() int { return 0 }

// DecodeOnly is the Codec of a read-only resource.
type DecodeOnly[T Record] func(json.RawMessage) (T, error)

func (f DecodeOnly[T]) Decode(raw json.RawMessage) (T, error) { return f(raw) }

func (DecodeOnly[T]) Encode(NoDraft) (*Payload, error) { return NewPayload(), nil }

func (DecodeOnly[T]) Merge(current T, _ NoDraft) T { return current }
