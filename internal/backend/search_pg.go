/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TemplateSearchQuery filters the card template catalog. Text is matched
// against name, category and description via full-text search; Tags must all
// be present on a template.
type TemplateSearchQuery struct {
	Text     string
	Category string
	Tags     []string
	Limit    int
	Offset   int
}

// TemplateHit is one catalog match. Snippet is a highlighted fragment of the
// description and is empty for non-text queries.
type TemplateHit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Snippet  string `json:"snippet,omitempty"`
}

// SearchTemplatesPG executes a catalog search over the Postgres templates
// table using tsvector and filters.
func SearchTemplatesPG(ctx context.Context, db *sql.DB, q TemplateSearchQuery) ([]TemplateHit, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT t.id, t.name, t.category, ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(t.description,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') AS snippet ")
		b.WriteString("FROM templates t WHERE t.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text)
	} else {
		b.WriteString("SELECT t.id, t.name, t.category, '' AS snippet ")
		b.WriteString("FROM templates t WHERE true ")
	}

	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(q.Category); s != "" {
		b.WriteString(" AND lower(t.category) = " + place(strings.ToLower(s)) + " ")
	}
	// Tags: require every requested tag on the template.
	for _, tag := range q.Tags {
		tt := strings.ToLower(strings.TrimSpace(tag))
		if tt == "" {
			continue
		}
		b.WriteString(" AND " + place(tt) + " = ANY (t.tags) ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if useFTS {
		b.WriteString(" ORDER BY ts_rank(t.search_vector, plainto_tsquery('simple', $1)) DESC, t.id ")
	} else {
		b.WriteString(" ORDER BY t.name, t.id ")
	}
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search templates: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []TemplateHit
	for rows.Next() {
		var h TemplateHit
		if err := rows.Scan(&h.ID, &h.Name, &h.Category, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
