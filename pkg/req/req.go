package req

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	MaxBodyBytes   = 1 << 20
	maxMemoryBytes = 1 << 20
)

// InvocationParams are the two values every procedure route accepts: param1 is the
// procedure name, param2 its single argument.
type InvocationParams struct {
	Param1 string
	Param2 string
}

// ParseInvocation reads param1 and param2 from the query string on GET and from the
// body otherwise. A JSON object body wins over form fields; an empty or unparseable
// JSON body falls back to the form. Missing values are "".
func ParseInvocation(r *http.Request) (*InvocationParams, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		q := r.URL.Query()
		return &InvocationParams{Param1: q.Get("param1"), Param2: q.Get("param2")}, nil
	}

	raw, err := readBody(r)
	if err != nil {
		return nil, err
	}

	if obj, ok := decodeObject(raw); ok {
		return &InvocationParams{
			Param1: text(obj["param1"]),
			Param2: text(obj["param2"]),
		}, nil
	}

	r.Body = io.NopCloser(bytes.NewReader(raw))
	values, err := formValues(r)
	if err != nil {
		return nil, err
	}
	return &InvocationParams{Param1: values.Get("param1"), Param2: values.Get("param2")}, nil
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(raw) > MaxBodyBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", MaxBodyBytes)
	}
	return raw, nil
}

func decodeObject(raw []byte) (map[string]any, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

func formValues(r *http.Request) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		return r.PostForm, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		return r.PostForm, nil
	default:
		// Not a form and not a JSON object: nothing to read.
		return url.Values{}, nil
	}
}

// text renders a decoded JSON value the way it would be passed on as a parameter.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimSpace(string(b))
	}
}
