package api

import (
	"encoding/json"
	"net/http"

	apierrors "callmaker/pkg/errors"
)

// Envelope is the uniform JSON body every endpoint returns.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	RequestID string      `json:"requestId"`
}

// Result lets a handler override the default 200 status on success.
type Result struct {
	Status int
	Data   interface{}
}

// Created is shorthand for a 201 Result.
func Created(data interface{}) *Result {
	return &Result{Status: http.StatusCreated, Data: data}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}, requestID string) {
	writeEnvelope(w, status, Envelope{
		Success:   true,
		Data:      data,
		RequestID: requestID,
	})
}

func writeFailure(w http.ResponseWriter, requestID string, apiErr *apierrors.Error) {
	env := Envelope{
		Success:   false,
		Error:     apiErr.Message,
		Code:      apiErr.Code,
		RequestID: requestID,
	}
	if len(apiErr.Fields) > 0 {
		env.Meta = map[string]interface{}{"fields": apiErr.Fields}
	}
	writeEnvelope(w, apiErr.Status, env)
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(RequestIDHeader, env.RequestID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
