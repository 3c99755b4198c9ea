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

import (
	"fmt"
	"net/url"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 15
	MaxPageSize     = 1000
)

// Row is one result row keyed by column name. It must stay an unnamed map
// type so bun scans it as a map model.
type Row = map[string]interface{}

// PageRequest describes which page of a composed query to fetch.
type PageRequest struct {
	page     int
	pageSize int
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	if p.pageSize > MaxPageSize {
		p.pageSize = MaxPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = DefaultPage
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// NewPageRequest constructs a PageRequest, clamping invalid values later on access.
func NewPageRequest(page int, pageSize int) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize}
}

// PageRequestFrom reads page and per_page (or limit) from a request.
func PageRequestFrom(req Request) *PageRequest {
	size := req.Int(KeyPerPage, 0)
	if size == 0 {
		size = req.Int(KeyLimit, 0)
	}
	return NewPageRequest(req.Int(KeyPage, DefaultPage), size)
}

// Pagination holds one page of items along with pagination metadata.
type Pagination[T any] struct {
	Page     int `json:"current_page" msgpack:"page"`
	PageSize int `json:"per_page" msgpack:"page_size"`
	Total    int `json:"total" msgpack:"total"`
	Items    []T `json:"data" msgpack:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{Page: page, PageSize: pageSize, Items: make([]T, 0)}
}

// LastPage returns the index of the last page, at least 1.
func (p *Pagination[T]) LastPage() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// AsMap renders the page with the full set of paginator keys, links included.
// Envelopes strip the link keys before transmission.
func (p *Pagination[T]) AsMap(path string) map[string]any {
	from, to := 0, 0
	if len(p.Items) > 0 {
		from = (p.Page-1)*p.PageSize + 1
		to = from + len(p.Items) - 1
	}
	last := p.LastPage()
	m := map[string]any{
		"current_page":   p.Page,
		"data":           p.Items,
		"from":           from,
		"to":             to,
		"per_page":       p.PageSize,
		"total":          p.Total,
		"last_page":      last,
		"path":           path,
		"first_page_url": pageURL(path, 1),
		"last_page_url":  pageURL(path, last),
		"next_page_url":  nil,
		"prev_page_url":  nil,
		"links":          []any{},
	}
	if p.Page < last {
		m["next_page_url"] = pageURL(path, p.Page+1)
	}
	if p.Page > 1 {
		m["prev_page_url"] = pageURL(path, p.Page-1)
	}
	return m
}

func pageURL(path string, page int) string {
	return fmt.Sprintf("%s?%s", path, url.Values{KeyPage: {fmt.Sprint(page)}}.Encode())
}
