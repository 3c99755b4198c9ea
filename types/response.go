/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "net/http"

// paginatorLinkKeys are removed from every success envelope.
var paginatorLinkKeys = []string{
	"first_page_url",
	"next_page_url",
	"prev_page_url",
	"last_page_url",
	"path",
	"links",
}

// Result is the {code, message} pair returned by operations whose outcomes
// are reported rather than raised.
type Result struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// OK reports whether the result represents success at the transport layer.
func (r Result) OK() bool {
	return r.Code >= http.StatusOK && r.Code < http.StatusMultipleChoices
}

// Envelope is the success body sent to clients.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorEnvelope is the failure body sent to clients.
type ErrorEnvelope struct {
	Error string `json:"error"`
}

// NewEnvelope wraps data for transmission, stripping paginator link keys
// from map payloads.
func NewEnvelope(data any, message string) Envelope {
	if m, ok := data.(map[string]any); ok {
		data = StripLinks(m)
	}
	return Envelope{Message: message, Data: data}
}

// StripLinks returns a copy of m without the paginator link keys.
func StripLinks(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range paginatorLinkKeys {
		delete(out, k)
	}
	return out
}
