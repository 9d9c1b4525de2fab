package res

import (
	"bytes"
	"encoding/json"
	"net/http"
)

const ContentTypeJSON = "application/json; charset=utf-8"

// Json writes data as a JSON body. Non-ASCII text and HTML characters are written as is.
func Json(w http.ResponseWriter, data any, status int) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// Raw writes an already serialized body.
func Raw(w http.ResponseWriter, body []byte, contentType string, status int) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
