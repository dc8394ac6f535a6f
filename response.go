package goDesk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Response is a completed 2xx response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Retried is true when the response came from a replay after a token refresh.
	Retried bool
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Envelope is the wrapper some backend endpoints use:
// {"success":true,"data":...} or {"success":false,"error":"...","code":"..."}.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// DecodeEnvelope unwraps an enveloped body. A success:false payload yields an error
// wrapping ErrEnvelopeFailure.
func DecodeEnvelope[T any](r *Response) (T, error) {
	var env Envelope[T]
	if err := r.Decode(&env); err != nil {
		return env.Data, err
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = MessageFallback
		}
		return env.Data, fmt.Errorf("%w: %s", ErrEnvelopeFailure, msg)
	}
	return env.Data, nil
}

// errorBody is the subset of a failure payload used for messages.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func parseErrorBody(body []byte) errorBody {
	var eb errorBody
	if len(body) == 0 {
		return eb
	}
	// A non-JSON body carries no message fields.
	_ = json.Unmarshal(body, &eb)
	return eb
}

// Multipart is a request body encoded as multipart/form-data.
type Multipart struct {
	Fields map[string]string
	Files  []MultipartFile
}

// MultipartFile is one file part of a [Multipart] body.
type MultipartFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

var errNilFileContent = errors.New("multipart file has no content")

func (m Multipart) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		if f.Content == nil {
			return nil, "", errNilFileContent
		}
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
