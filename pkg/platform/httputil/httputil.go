// Package httputil writes the JSON envelopes used by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "sigil/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v verbatim.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps v in {"data": v}.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, envelope{Data: v})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err as {"error":{"code","message"}}. Anything that is
// not a domain error is treated as internal.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		de = &dErrors.Error{Code: dErrors.CodeInternal, Message: dErrors.MessageFor(dErrors.CodeInternal), Err: err}
	}
	WriteJSON(w, de.Status(), errorEnvelope{Error: errorBody{
		Code:    string(de.Code),
		Message: de.PublicMessage(),
	}})
}

// WriteOAuthError renders the RFC 6749 error shape.
func WriteOAuthError(w http.ResponseWriter, err error) {
	var oe *dErrors.OAuthError
	if !errors.As(err, &oe) {
		WriteJSON(w, http.StatusInternalServerError, oauthErrorBody{Error: "server_error"})
		return
	}
	if oe.Code == dErrors.OAuthInvalidClient {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth"`)
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, oe.Status(), oauthErrorBody{Error: string(oe.Code), ErrorDescription: oe.Description})
}

// DecodeJSON reads a bounded JSON body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return dErrors.BadRequest("invalid JSON body")
	}
	return nil
}
