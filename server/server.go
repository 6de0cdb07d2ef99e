// Package server contains the JSON payloads shared by the HTTP wrappers.
//
// Scalars travel as single-key objects so that any HTTP client can use
// them without knowing Go types: {"f64": 1.5}, {"int": 3}, {"str": "a"},
// {"bool": true}.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
)

// FloatT is a float payload
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is an int payload
type IntT struct {
	Int int `json:"int"`
}

// StrT is a string payload
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a bool payload
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload holds one scalar, T selects which field is sent
type HumanPayload struct {
	T types.BasicKind

	Bool   bool
	Float  float64
	Int    int
	String string
}

// Payload returns the JSON object for the selected field
func (hp HumanPayload) Payload() (interface{}, error) {
	switch hp.T {
	case types.Bool:
		return BoolT{Bool: hp.Bool}, nil
	case types.Float64:
		return FloatT{F64: hp.Float}, nil
	case types.Int:
		return IntT{Int: hp.Int}, nil
	case types.String:
		return StrT{Str: hp.String}, nil
	}
	return nil, fmt.Errorf("payload kind %v not supported", hp.T)
}

// EncodeAndRespond writes the payload as JSON with status 200
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	p, err := hp.Payload()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ReplyJSON(w, p)
}

// ReplyJSON writes v as JSON with status 200
func ReplyJSON(w http.ResponseWriter, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("error encoding data to json %q", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(append(buf, '\n'))
}
